package apps

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/internal/app/storage/memory"
	"github.com/nimbus-paas/control_plane/pkg/testutil"
)

func newService(t *testing.T, store *memory.Store, defaultSSH bool, opts ...Option) *Service {
	t.Helper()
	return New(store, store, store, store, store, defaultSSH, nil, opts...)
}

func boolPtr(b bool) *bool { return &b }

func TestCreateNormalizesAndDefaults(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, true)

	created, err := svc.Create(context.Background(), app.App{Name: "  my-app  ", SpaceGUID: fix.SpaceGUID})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if created.Name != "my-app" {
		t.Fatalf("name not trimmed: %q", created.Name)
	}
	if created.DesiredState != app.DesiredStopped {
		t.Fatalf("expected STOPPED default, got %s", created.DesiredState)
	}
	if created.EnableSSH == nil || !*created.EnableSSH {
		t.Fatalf("enable_ssh not resolved from platform default")
	}
}

func TestCreateEmptyNameReportsMissingFieldAndInvalidFormat(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)

	_, err := svc.Create(context.Background(), app.App{Name: "   ", SpaceGUID: fix.SpaceGUID})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !verr.Has(CodeMissingField) {
		t.Fatalf("missing_field violation absent: %v", verr.Violations)
	}
	if !verr.Has(CodeInvalidFormat) {
		t.Fatalf("invalid_format violation absent: %v", verr.Violations)
	}
}

func TestCreateCollectsAllViolationsAtOnce(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)

	droplet, err := store.CreateDroplet(context.Background(), artifact.Droplet{AppGUID: "other", State: artifact.DropletStaging})
	if err != nil {
		t.Fatalf("create droplet: %v", err)
	}

	_, err = svc.Create(context.Background(), app.App{
		Name:                 "",
		SpaceGUID:            fix.SpaceGUID,
		DropletGUID:          droplet.GUID,
		EnvironmentVariables: map[string]string{"VCAP_SERVICES": "x"},
	})

	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	for _, code := range []Code{CodeMissingField, CodeInvalidFormat, CodeInvalidEnvVar, CodeDropletNotStaged} {
		if !verr.Has(code) {
			t.Fatalf("expected %s in %v", code, verr.Violations)
		}
	}
}

func TestCreateDuplicateName(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)

	if _, err := svc.Create(context.Background(), app.App{Name: "web", SpaceGUID: fix.SpaceGUID}); err != nil {
		t.Fatalf("create: %v", err)
	}

	_, err := svc.Create(context.Background(), app.App{Name: "web", SpaceGUID: fix.SpaceGUID})
	var verr *ValidationError
	if !errors.As(err, &verr) || !verr.Has(CodeDuplicateName) {
		t.Fatalf("expected duplicate_name, got %v", err)
	}
	for _, v := range verr.Violations {
		if v.Code == CodeDuplicateName && v.Message != "name must be unique in space" {
			t.Fatalf("unexpected message %q", v.Message)
		}
	}
}

func TestConcurrentCreatesExactlyOneWinner(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)

	const writers = 16
	var wg sync.WaitGroup
	errs := make([]error, writers)

	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.Create(context.Background(), app.App{Name: "contended", SpaceGUID: fix.SpaceGUID})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Has(CodeDuplicateName) {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}

func TestUpdateCascadesProcessVersionsOnSSHChange(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID, EnableSSH: boolPtr(false)})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	before := make(map[string]string)
	for _, typ := range []string{"web", "worker", "clock"} {
		p, err := store.CreateProcess(ctx, process.Process{AppGUID: created.GUID, Type: typ, Version: "v-" + typ})
		if err != nil {
			t.Fatalf("create process: %v", err)
		}
		before[p.GUID] = p.Version
	}

	if _, err := svc.Update(ctx, UpdateRequest{GUID: created.GUID, EnableSSH: boolPtr(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	procs, err := store.ListProcessesByApp(ctx, created.GUID)
	if err != nil {
		t.Fatalf("list processes: %v", err)
	}
	if len(procs) != 3 {
		t.Fatalf("expected 3 processes, got %d", len(procs))
	}
	for _, p := range procs {
		if p.Version == before[p.GUID] {
			t.Fatalf("process %s kept stale version %s", p.GUID, p.Version)
		}
	}
}

func TestUpdateNoCascadeWhenSSHUnchanged(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, true)
	ctx := context.Background()

	// enable_ssh left unset resolves to the default (true); updating with an
	// explicit true is not a change.
	created, err := svc.Create(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	p, err := store.CreateProcess(ctx, process.Process{AppGUID: created.GUID, Type: "web", Version: "v1"})
	if err != nil {
		t.Fatalf("create process: %v", err)
	}

	if _, err := svc.Update(ctx, UpdateRequest{GUID: created.GUID, EnableSSH: boolPtr(true)}); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetProcess(ctx, p.GUID)
	if err != nil {
		t.Fatalf("get process: %v", err)
	}
	if got.Version != "v1" {
		t.Fatalf("version changed without an enable_ssh change: %s", got.Version)
	}
}

// failAfter wraps the process store and fails the nth update.
type failAfter struct {
	*memory.Store
	mu      sync.Mutex
	allowed int
}

func (f *failAfter) UpdateProcess(ctx context.Context, p process.Process) (process.Process, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.allowed <= 0 {
		return process.Process{}, fmt.Errorf("disk full")
	}
	f.allowed--
	return f.Store.UpdateProcess(ctx, p)
}

func TestCascadeFailureFailsWholeWrite(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	flaky := &failAfter{Store: store, allowed: 1}
	svc := New(store, flaky, store, store, store, false, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID, EnableSSH: boolPtr(false)})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	for i := 0; i < 3; i++ {
		if _, err := store.CreateProcess(ctx, process.Process{AppGUID: created.GUID, Type: fmt.Sprintf("t%d", i), Version: "v1"}); err != nil {
			t.Fatalf("create process: %v", err)
		}
	}

	_, err = svc.Update(ctx, UpdateRequest{GUID: created.GUID, EnableSSH: boolPtr(true)})
	var cerr *CascadeError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected CascadeError, got %v", err)
	}

	// The app row must not have committed the new enable_ssh.
	got, err := store.GetApp(ctx, created.GUID)
	if err != nil {
		t.Fatalf("get app: %v", err)
	}
	if got.SSHEnabled() {
		t.Fatalf("app committed enable_ssh despite cascade failure")
	}
}

func TestSetCurrentDroplet(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	staging, _ := store.CreateDroplet(ctx, artifact.Droplet{AppGUID: created.GUID, State: artifact.DropletStaging})
	if _, err := svc.SetCurrentDroplet(ctx, created.GUID, staging.GUID); err == nil {
		t.Fatalf("expected rejection for unstaged droplet")
	} else {
		var verr *ValidationError
		if !errors.As(err, &verr) || !verr.Has(CodeDropletNotStaged) {
			t.Fatalf("expected droplet_not_staged, got %v", err)
		}
	}

	// Rejection must leave the app untouched.
	got, _ := store.GetApp(ctx, created.GUID)
	if got.DropletGUID != "" {
		t.Fatalf("droplet assigned despite rejection")
	}

	staged, _ := store.CreateDroplet(ctx, artifact.Droplet{AppGUID: created.GUID, State: artifact.DropletStaged})
	updated, err := svc.SetCurrentDroplet(ctx, created.GUID, staged.GUID)
	if err != nil {
		t.Fatalf("set staged droplet: %v", err)
	}
	if updated.DropletGUID != staged.GUID {
		t.Fatalf("droplet not assigned")
	}
}

func TestLifecycleFlipsWithSubRecord(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{Name: "a1", SpaceGUID: fix.SpaceGUID})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}
	if created.LifecycleType() != app.LifecycleDocker {
		t.Fatalf("expected docker lifecycle, got %s", created.LifecycleType())
	}

	updated, err := svc.Update(ctx, UpdateRequest{
		GUID:      created.GUID,
		Lifecycle: &app.BuildpackLifecycle{Buildpacks: []string{"go_buildpack"}, Stack: "cflinuxfs4"},
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.LifecycleType() != app.LifecycleBuildpack {
		t.Fatalf("expected buildpack lifecycle, got %s", updated.LifecycleType())
	}
	// No other attribute changes.
	if updated.Name != created.Name || updated.DesiredState != created.DesiredState ||
		updated.SSHEnabled() != created.SSHEnabled() {
		t.Fatalf("lifecycle flip changed unrelated attributes")
	}
}

func TestDeleteCascadesLifecycleFirst(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	recorder := &orderRecorder{Store: store}
	svc := New(recorder, store, store, store, store, false, nil)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{
		Name:      "web",
		SpaceGUID: fix.SpaceGUID,
		Lifecycle: &app.BuildpackLifecycle{Stack: "cflinuxfs4"},
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	if err := svc.Delete(ctx, created.GUID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if len(recorder.order) != 2 || recorder.order[0] != "lifecycle" || recorder.order[1] != "app" {
		t.Fatalf("expected ordered cascade [lifecycle app], got %v", recorder.order)
	}
	if _, err := store.GetApp(ctx, created.GUID); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("app still present after delete")
	}
}

type orderRecorder struct {
	*memory.Store
	order []string
}

func (r *orderRecorder) DeleteAppLifecycle(ctx context.Context, appGUID string) error {
	r.order = append(r.order, "lifecycle")
	return r.Store.DeleteAppLifecycle(ctx, appGUID)
}

func (r *orderRecorder) DeleteApp(ctx context.Context, guid string) error {
	r.order = append(r.order, "app")
	return r.Store.DeleteApp(ctx, guid)
}

func TestStartStop(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	svc := newService(t, store, false)
	ctx := context.Background()

	created, err := svc.Create(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	started, err := svc.Start(ctx, created.GUID)
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if started.DesiredState != app.DesiredStarted {
		t.Fatalf("expected STARTED, got %s", started.DesiredState)
	}

	stopped, err := svc.Stop(ctx, created.GUID)
	if err != nil {
		t.Fatalf("stop: %v", err)
	}
	if stopped.DesiredState != app.DesiredStopped {
		t.Fatalf("expected STOPPED, got %s", stopped.DesiredState)
	}
}
