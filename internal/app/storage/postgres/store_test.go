package postgres

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
	"github.com/nimbus-paas/control_plane/internal/platform/migrations"
)

func TestStoreIntegration(t *testing.T) {
	dsn := os.Getenv("TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("TEST_POSTGRES_DSN not set; skipping postgres integration test")
	}

	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer db.Close()

	ctx := context.Background()
	if err := migrations.Apply(ctx, db.DB); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}

	store := New(db)

	org, err := store.CreateOrganization(ctx, tenancy.Organization{Name: "acme"})
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	sp, err := store.CreateSpace(ctx, tenancy.Space{OrganizationGUID: org.GUID, Name: "prod"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}

	created, err := store.CreateApp(ctx, app.App{
		Name:                 "web",
		SpaceGUID:            sp.GUID,
		DesiredState:         app.DesiredStopped,
		EnvironmentVariables: map[string]string{"KEY": "value"},
		Lifecycle:            &app.BuildpackLifecycle{Buildpacks: []string{"go_buildpack"}, Stack: "cflinuxfs4"},
	})
	if err != nil {
		t.Fatalf("create app: %v", err)
	}

	got, err := store.GetApp(ctx, created.GUID)
	if err != nil {
		t.Fatalf("get app: %v", err)
	}
	if got.LifecycleType() != app.LifecycleBuildpack {
		t.Fatalf("expected buildpack lifecycle, got %s", got.LifecycleType())
	}
	if got.EnvironmentVariables["KEY"] != "value" {
		t.Fatalf("environment variables did not round trip: %v", got.EnvironmentVariables)
	}

	// The unique index is the authoritative guard.
	if _, err := store.CreateApp(ctx, app.App{Name: "web", SpaceGUID: sp.GUID, DesiredState: app.DesiredStopped}); !errors.Is(err, storage.ErrNameTaken) {
		t.Fatalf("expected ErrNameTaken, got %v", err)
	}

	// Ordered cascade: lifecycle row first, then the app row.
	if err := store.DeleteAppLifecycle(ctx, created.GUID); err != nil {
		t.Fatalf("delete lifecycle: %v", err)
	}
	if err := store.DeleteApp(ctx, created.GUID); err != nil {
		t.Fatalf("delete app: %v", err)
	}
}
