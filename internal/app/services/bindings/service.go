// Package bindings owns service bindings and route mappings. Credential
// blobs pass through opaquely; consumers extract the keys they understand.
package bindings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nimbus-paas/control_plane/internal/app/domain/binding"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// Service manages service bindings and route mappings.
type Service struct {
	apps  storage.AppStore
	store storage.BindingStore
	log   *logger.Logger
}

// New constructs a binding service.
func New(apps storage.AppStore, store storage.BindingStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("bindings")
	}
	return &Service{apps: apps, store: store, log: log}
}

// CreateServiceBinding binds a service instance to an app. Credentials, when
// present, must at least parse as JSON.
func (s *Service) CreateServiceBinding(ctx context.Context, b binding.ServiceBinding) (binding.ServiceBinding, error) {
	if b.AppGUID == "" {
		return binding.ServiceBinding{}, fmt.Errorf("app guid is required")
	}
	if _, err := s.apps.GetApp(ctx, b.AppGUID); err != nil {
		return binding.ServiceBinding{}, fmt.Errorf("app validation failed: %w", err)
	}
	if len(b.Credentials) > 0 && !json.Valid(b.Credentials) {
		return binding.ServiceBinding{}, fmt.Errorf("credentials must be valid JSON")
	}

	created, err := s.store.CreateServiceBinding(ctx, b)
	if err != nil {
		return binding.ServiceBinding{}, err
	}
	s.log.WithField("app_guid", created.AppGUID).Infof("service binding %s created", created.GUID)
	return created, nil
}

// ListServiceBindings returns an app's bindings in creation order.
func (s *Service) ListServiceBindings(ctx context.Context, appGUID string) ([]binding.ServiceBinding, error) {
	return s.store.ListServiceBindingsByApp(ctx, appGUID)
}

// MapRoute attaches a route to one process type of an app.
func (s *Service) MapRoute(ctx context.Context, m binding.RouteMapping) (binding.RouteMapping, error) {
	if m.AppGUID == "" || m.RouteGUID == "" {
		return binding.RouteMapping{}, fmt.Errorf("app guid and route guid are required")
	}
	if _, err := s.apps.GetApp(ctx, m.AppGUID); err != nil {
		return binding.RouteMapping{}, fmt.Errorf("app validation failed: %w", err)
	}
	if m.ProcessType == "" {
		m.ProcessType = "web"
	}
	return s.store.CreateRouteMapping(ctx, m)
}

// ListRouteMappings returns an app's route mappings in creation order.
func (s *Service) ListRouteMappings(ctx context.Context, appGUID string) ([]binding.RouteMapping, error) {
	return s.store.ListRouteMappingsByApp(ctx, appGUID)
}
