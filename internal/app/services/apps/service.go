// Package apps owns the app aggregate's write path: normalization,
// validation, enable_ssh default resolution, the process version cascade, and
// the ordered delete of owned sub-records.
package apps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/metrics"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/pkg/logger"
)

// Service manages app records.
type Service struct {
	apps      storage.AppStore
	processes storage.ProcessStore
	droplets  storage.DropletStore
	bindings  storage.BindingStore
	tenancy   storage.TenancyStore
	log       *logger.Logger

	// defaultSSH is the platform default resolved into enable_ssh when a
	// write leaves it unset. Injected so the write path never reads global
	// configuration state.
	defaultSSH bool

	envValidator EnvVarValidator
	uriGenerator URIGenerator
}

// Option configures the service.
type Option func(*Service)

// WithEnvVarValidator replaces the default environment variable validator.
func WithEnvVarValidator(v EnvVarValidator) Option {
	return func(s *Service) { s.envValidator = v }
}

// WithURIGenerator replaces the default database URI generator.
func WithURIGenerator(g URIGenerator) Option {
	return func(s *Service) { s.uriGenerator = g }
}

// New constructs an app service. defaultSSH is the platform's
// default_app_ssh_access setting.
func New(
	appStore storage.AppStore,
	processStore storage.ProcessStore,
	dropletStore storage.DropletStore,
	bindingStore storage.BindingStore,
	tenancyStore storage.TenancyStore,
	defaultSSH bool,
	log *logger.Logger,
	opts ...Option,
) *Service {
	if log == nil {
		log = logger.NewDefault("apps")
	}
	s := &Service{
		apps:         appStore,
		processes:    processStore,
		droplets:     dropletStore,
		bindings:     bindingStore,
		tenancy:      tenancyStore,
		log:          log,
		defaultSSH:   defaultSSH,
		envValidator: ReservedPrefixValidator{},
		uriGenerator: DefaultURIGenerator{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateRequest is a partial update; nil fields are left unchanged.
type UpdateRequest struct {
	GUID                 string
	Name                 *string
	DesiredState         *app.DesiredState
	EnableSSH            *bool
	EnvironmentVariables map[string]string
	Lifecycle            *app.BuildpackLifecycle
}

// Create validates and persists a new app. The name is whitespace-normalized
// before validation, enable_ssh is resolved from the platform default when
// unset, and the desired state defaults to STOPPED.
func (s *Service) Create(ctx context.Context, candidate app.App) (app.App, error) {
	candidate.Name = strings.TrimSpace(candidate.Name)
	if candidate.DesiredState == "" {
		candidate.DesiredState = app.DesiredStopped
	}
	if candidate.SpaceGUID == "" {
		metrics.RecordAppWrite("create", "error")
		return app.App{}, fmt.Errorf("space guid is required")
	}
	if _, err := s.tenancy.GetSpace(ctx, candidate.SpaceGUID); err != nil {
		metrics.RecordAppWrite("create", "error")
		return app.App{}, fmt.Errorf("space validation failed: %w", err)
	}

	violations, err := s.validate(ctx, candidate, "")
	if err != nil {
		metrics.RecordAppWrite("create", "error")
		return app.App{}, err
	}
	if len(violations) > 0 {
		return app.App{}, s.rejected("create", violations)
	}

	if candidate.EnableSSH == nil {
		v := s.defaultSSH
		candidate.EnableSSH = &v
	}

	created, err := s.apps.CreateApp(ctx, candidate)
	if errors.Is(err, storage.ErrNameTaken) {
		// Lost the race past the pre-check; the unique index decided.
		return app.App{}, s.rejected("create", []Violation{duplicateNameViolation()})
	}
	if err != nil {
		metrics.RecordAppWrite("create", "error")
		return app.App{}, err
	}

	metrics.RecordAppWrite("create", "ok")
	s.log.WithField("app_guid", created.GUID).Infof("app %s created in space %s", created.Name, created.SpaceGUID)
	return created, nil
}

// Update applies a partial update. The process version cascade runs after
// validation and strictly before the app row commit, so readers never observe
// a changed enable_ssh with stale processes inside one storage transaction.
func (s *Service) Update(ctx context.Context, req UpdateRequest) (app.App, error) {
	existing, err := s.apps.GetApp(ctx, req.GUID)
	if err != nil {
		metrics.RecordAppWrite("update", "error")
		return app.App{}, err
	}

	candidate := existing
	if req.Name != nil {
		candidate.Name = strings.TrimSpace(*req.Name)
	}
	if req.DesiredState != nil {
		candidate.DesiredState = *req.DesiredState
	}
	if req.EnableSSH != nil {
		v := *req.EnableSSH
		candidate.EnableSSH = &v
	}
	if req.EnvironmentVariables != nil {
		candidate.EnvironmentVariables = req.EnvironmentVariables
	}
	if req.Lifecycle != nil {
		lc := *req.Lifecycle
		candidate.Lifecycle = &lc
	}

	if candidate.EnableSSH == nil {
		v := s.defaultSSH
		candidate.EnableSSH = &v
	}

	violations, err := s.validate(ctx, candidate, existing.GUID)
	if err != nil {
		metrics.RecordAppWrite("update", "error")
		return app.App{}, err
	}
	if len(violations) > 0 {
		return app.App{}, s.rejected("update", violations)
	}

	if err := s.cascadeProcessVersions(ctx, existing, *candidate.EnableSSH); err != nil {
		metrics.RecordAppWrite("update", "error")
		return app.App{}, err
	}

	updated, err := s.apps.UpdateApp(ctx, candidate)
	if errors.Is(err, storage.ErrNameTaken) {
		return app.App{}, s.rejected("update", []Violation{duplicateNameViolation()})
	}
	if err != nil {
		metrics.RecordAppWrite("update", "error")
		return app.App{}, err
	}

	metrics.RecordAppWrite("update", "ok")
	s.log.WithField("app_guid", updated.GUID).Infof("app %s updated", updated.Name)
	return updated, nil
}

// cascadeProcessVersions forces every sibling process to a new version when
// the resolved enable_ssh differs from the committed value. Processes updated
// before a failure stay updated; the caller's transaction decides atomicity.
func (s *Service) cascadeProcessVersions(ctx context.Context, committed app.App, resolvedSSH bool) error {
	previous := s.defaultSSH
	if committed.EnableSSH != nil {
		previous = *committed.EnableSSH
	}
	if previous == resolvedSSH {
		return nil
	}

	procs, err := s.processes.ListProcessesByApp(ctx, committed.GUID)
	if err != nil {
		return err
	}
	for _, p := range procs {
		p.Version = uuid.NewString()
		if _, err := s.processes.UpdateProcess(ctx, p); err != nil {
			metrics.RecordCascadeFailure()
			return &CascadeError{ProcessGUID: p.GUID, Err: err}
		}
	}
	metrics.RecordCascadedProcesses(len(procs))
	if len(procs) > 0 {
		s.log.WithField("app_guid", committed.GUID).
			Infof("enable_ssh change cascaded to %d processes", len(procs))
	}
	return nil
}

// Get retrieves an app by guid.
func (s *Service) Get(ctx context.Context, guid string) (app.App, error) {
	return s.apps.GetApp(ctx, guid)
}

// Delete removes an app and the sub-records it owns, in order: the buildpack
// lifecycle row first, then the app row.
func (s *Service) Delete(ctx context.Context, guid string) error {
	if _, err := s.apps.GetApp(ctx, guid); err != nil {
		return err
	}
	if err := s.apps.DeleteAppLifecycle(ctx, guid); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("delete lifecycle record: %w", err)
	}
	if err := s.apps.DeleteApp(ctx, guid); err != nil {
		return err
	}
	s.log.WithField("app_guid", guid).Info("app deleted")
	return nil
}

// SetCurrentDroplet assigns the app's current droplet. Only droplets in the
// STAGED state are assignable.
func (s *Service) SetCurrentDroplet(ctx context.Context, appGUID, dropletGUID string) (app.App, error) {
	existing, err := s.apps.GetApp(ctx, appGUID)
	if err != nil {
		return app.App{}, err
	}

	droplet, err := s.droplets.GetDroplet(ctx, dropletGUID)
	if errors.Is(err, storage.ErrNotFound) {
		return app.App{}, s.rejected("set_droplet", []Violation{{
			Field: "droplet", Code: CodeDropletNotStaged, Message: "current droplet does not exist",
		}})
	}
	if err != nil {
		return app.App{}, err
	}
	if droplet.State != artifact.DropletStaged {
		return app.App{}, s.rejected("set_droplet", []Violation{{
			Field: "droplet", Code: CodeDropletNotStaged, Message: "current droplet must be in the STAGED state",
		}})
	}
	if droplet.AppGUID != appGUID {
		return app.App{}, fmt.Errorf("droplet %s does not belong to app %s", dropletGUID, appGUID)
	}

	existing.DropletGUID = dropletGUID
	updated, err := s.apps.UpdateApp(ctx, existing)
	if err != nil {
		return app.App{}, err
	}
	metrics.RecordAppWrite("set_droplet", "ok")
	return updated, nil
}

// Start marks the app as started.
func (s *Service) Start(ctx context.Context, guid string) (app.App, error) {
	return s.setDesiredState(ctx, guid, app.DesiredStarted)
}

// Stop marks the app as stopped.
func (s *Service) Stop(ctx context.Context, guid string) (app.App, error) {
	return s.setDesiredState(ctx, guid, app.DesiredStopped)
}

func (s *Service) setDesiredState(ctx context.Context, guid string, state app.DesiredState) (app.App, error) {
	existing, err := s.apps.GetApp(ctx, guid)
	if err != nil {
		return app.App{}, err
	}
	existing.DesiredState = state
	updated, err := s.apps.UpdateApp(ctx, existing)
	if err != nil {
		return app.App{}, err
	}
	s.log.WithField("app_guid", guid).Infof("desired state set to %s", state)
	return updated, nil
}

func (s *Service) rejected(operation string, violations []Violation) error {
	for _, v := range violations {
		metrics.RecordValidationFailure(string(v.Code))
	}
	metrics.RecordAppWrite(operation, "rejected")
	return &ValidationError{Violations: violations}
}
