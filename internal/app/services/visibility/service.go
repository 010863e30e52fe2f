// Package visibility computes which apps a principal may list or read. A
// principal sees a space's apps through any one of four independent grant
// paths: space developer, space manager, space auditor, or manager of the
// owning organization. Paths are unioned with no precedence between them.
package visibility

import (
	"context"
	"sort"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/metrics"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// ScopeSource answers the four grant-set queries. storage.TenancyStore
// satisfies it; the redis cache decorates it.
type ScopeSource interface {
	DeveloperSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	ManagerSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	AuditorSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	OrgManagedSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
}

// Service resolves visibility scopes and bounds app listings with them.
type Service struct {
	scopes ScopeSource
	apps   storage.AppStore
	log    *logger.Logger
}

// New constructs a visibility service.
func New(scopes ScopeSource, apps storage.AppStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("visibility")
	}
	return &Service{scopes: scopes, apps: apps, log: log}
}

// VisibleSpaceGUIDs returns the duplicate-free union of the four grant sets
// for the principal, sorted for stable query plans.
func (s *Service) VisibleSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	queries := []func(context.Context, string) ([]string, error){
		s.scopes.DeveloperSpaceGUIDs,
		s.scopes.ManagerSpaceGUIDs,
		s.scopes.AuditorSpaceGUIDs,
		s.scopes.OrgManagedSpaceGUIDs,
	}

	seen := make(map[string]bool)
	for _, query := range queries {
		guids, err := query(ctx, principal)
		if err != nil {
			return nil, err
		}
		for _, g := range guids {
			seen[g] = true
		}
	}

	result := make([]string, 0, len(seen))
	for g := range seen {
		result = append(result, g)
	}
	sort.Strings(result)

	metrics.RecordVisibilityLookup("store")
	return result, nil
}

// ListApps returns the apps the principal may see. The listing is bounded by
// the computed space set; the full app table is never materialized.
func (s *Service) ListApps(ctx context.Context, principal string) ([]app.App, error) {
	spaceGUIDs, err := s.VisibleSpaceGUIDs(ctx, principal)
	if err != nil {
		return nil, err
	}
	if len(spaceGUIDs) == 0 {
		return nil, nil
	}
	return s.apps.ListAppsBySpaceGUIDs(ctx, spaceGUIDs)
}

// CanSeeSpace reports whether the principal holds any grant on the space.
func (s *Service) CanSeeSpace(ctx context.Context, principal, spaceGUID string) (bool, error) {
	guids, err := s.VisibleSpaceGUIDs(ctx, principal)
	if err != nil {
		return false, err
	}
	for _, g := range guids {
		if g == spaceGUID {
			return true, nil
		}
	}
	return false, nil
}
