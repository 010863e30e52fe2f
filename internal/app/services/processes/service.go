// Package processes owns process records. Processes are created by the
// scheduling subsystem; the app write path only bumps their versions.
package processes

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// Service manages process records.
type Service struct {
	apps  storage.AppStore
	store storage.ProcessStore
	log   *logger.Logger
}

// New constructs a process service.
func New(apps storage.AppStore, store storage.ProcessStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("processes")
	}
	return &Service{apps: apps, store: store, log: log}
}

// Create registers a process for an app. Type defaults to web and each new
// process starts at a fresh version token.
func (s *Service) Create(ctx context.Context, p process.Process) (process.Process, error) {
	if p.AppGUID == "" {
		return process.Process{}, fmt.Errorf("app guid is required")
	}
	if _, err := s.apps.GetApp(ctx, p.AppGUID); err != nil {
		return process.Process{}, fmt.Errorf("app validation failed: %w", err)
	}
	if p.Type == "" {
		p.Type = process.TypeWeb
	}
	if p.Version == "" {
		p.Version = uuid.NewString()
	}
	if p.DesiredState == "" {
		p.DesiredState = "STOPPED"
	}

	created, err := s.store.CreateProcess(ctx, p)
	if err != nil {
		return process.Process{}, err
	}
	s.log.WithField("app_guid", created.AppGUID).Infof("process %s (%s) created", created.GUID, created.Type)
	return created, nil
}

// Get retrieves a process by guid.
func (s *Service) Get(ctx context.Context, guid string) (process.Process, error) {
	return s.store.GetProcess(ctx, guid)
}

// ListForApp returns an app's processes.
func (s *Service) ListForApp(ctx context.Context, appGUID string) ([]process.Process, error) {
	return s.store.ListProcessesByApp(ctx, appGUID)
}
