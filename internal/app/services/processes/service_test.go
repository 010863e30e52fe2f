package processes

import (
	"context"
	"testing"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/storage/memory"
	"github.com/nimbus-paas/control_plane/pkg/testutil"
)

func TestCreateDefaults(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	fix := testutil.SeedTenancy(t, store)

	ssh := false
	parent, err := store.CreateApp(ctx, app.App{Name: "web", SpaceGUID: fix.SpaceGUID, DesiredState: app.DesiredStopped, EnableSSH: &ssh})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	svc := New(store, store, nil)
	created, err := svc.Create(ctx, process.Process{AppGUID: parent.GUID})
	if err != nil {
		t.Fatalf("create process: %v", err)
	}
	if created.Type != process.TypeWeb {
		t.Fatalf("expected web type default, got %s", created.Type)
	}
	if created.Version == "" {
		t.Fatalf("expected a fresh version token")
	}

	second, err := svc.Create(ctx, process.Process{AppGUID: parent.GUID, Type: "worker"})
	if err != nil {
		t.Fatalf("create second process: %v", err)
	}
	if second.Version == created.Version {
		t.Fatalf("version tokens must be unique per process")
	}

	listed, err := svc.ListForApp(ctx, parent.GUID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 2 {
		t.Fatalf("expected 2 processes, got %d", len(listed))
	}
}

func TestCreateRequiresExistingApp(t *testing.T) {
	store := memory.New()
	svc := New(store, store, nil)

	if _, err := svc.Create(context.Background(), process.Process{AppGUID: "missing"}); err == nil {
		t.Fatalf("expected error for unknown app")
	}
	if _, err := svc.Create(context.Background(), process.Process{}); err == nil {
		t.Fatalf("expected error for empty app guid")
	}
}
