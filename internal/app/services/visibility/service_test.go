package visibility

import (
	"context"
	"reflect"
	"sort"
	"testing"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
	"github.com/nimbus-paas/control_plane/internal/app/storage/memory"
	"github.com/nimbus-paas/control_plane/pkg/testutil"
)

func seedApp(t *testing.T, store *memory.Store, spaceGUID, name string) app.App {
	t.Helper()
	ssh := false
	created, err := store.CreateApp(context.Background(), app.App{
		Name: name, SpaceGUID: spaceGUID, DesiredState: app.DesiredStopped, EnableSSH: &ssh,
	})
	if err != nil {
		t.Fatalf("seed app %s: %v", name, err)
	}
	return created
}

func TestVisibleSpaceGUIDsUnionsAllGrantPaths(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	fix := testutil.SeedTenancy(t, store)
	s2 := testutil.SeedSpace(t, store, fix.OrgGUID, "staging")
	s3 := testutil.SeedSpace(t, store, fix.OrgGUID, "prod")

	org2, err := store.CreateOrganization(ctx, tenancy.Organization{Name: "other-org"})
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	s4 := testutil.SeedSpace(t, store, org2.GUID, "other-space")

	const principal = "user-1"
	if err := store.GrantSpaceRole(ctx, fix.SpaceGUID, principal, tenancy.RoleSpaceDeveloper); err != nil {
		t.Fatalf("grant developer: %v", err)
	}
	if err := store.GrantSpaceRole(ctx, s2, principal, tenancy.RoleSpaceAuditor); err != nil {
		t.Fatalf("grant auditor: %v", err)
	}
	// Developer and manager on the same space must not duplicate it.
	if err := store.GrantSpaceRole(ctx, fix.SpaceGUID, principal, tenancy.RoleSpaceManager); err != nil {
		t.Fatalf("grant manager: %v", err)
	}
	// Org manager of org2 reaches s4 without any space role there.
	if err := store.GrantOrgManager(ctx, org2.GUID, principal); err != nil {
		t.Fatalf("grant org manager: %v", err)
	}

	svc := New(store, store, nil)
	got, err := svc.VisibleSpaceGUIDs(ctx, principal)
	if err != nil {
		t.Fatalf("visible spaces: %v", err)
	}

	want := []string{fix.SpaceGUID, s2, s4}
	sort.Strings(want)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("visible spaces = %v, want %v", got, want)
	}
	for _, g := range got {
		if g == s3 {
			t.Fatalf("s3 visible without any grant")
		}
	}
}

func TestListAppsAuditorSeesExactlyItsSpace(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	fix := testutil.SeedTenancy(t, store)
	other := testutil.SeedSpace(t, store, fix.OrgGUID, "other")

	a1 := seedApp(t, store, fix.SpaceGUID, "visible-1")
	a2 := seedApp(t, store, fix.SpaceGUID, "visible-2")
	seedApp(t, store, other, "hidden")

	const principal = "auditor-1"
	if err := store.GrantSpaceRole(ctx, fix.SpaceGUID, principal, tenancy.RoleSpaceAuditor); err != nil {
		t.Fatalf("grant auditor: %v", err)
	}

	svc := New(store, store, nil)
	apps, err := svc.ListApps(ctx, principal)
	if err != nil {
		t.Fatalf("list apps: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("expected 2 apps, got %d", len(apps))
	}
	guids := map[string]bool{apps[0].GUID: true, apps[1].GUID: true}
	if !guids[a1.GUID] || !guids[a2.GUID] {
		t.Fatalf("unexpected app set %v", guids)
	}
}

func TestListAppsNoGrants(t *testing.T) {
	store := memory.New()
	fix := testutil.SeedTenancy(t, store)
	seedApp(t, store, fix.SpaceGUID, "invisible")

	svc := New(store, store, nil)
	apps, err := svc.ListApps(context.Background(), "stranger")
	if err != nil {
		t.Fatalf("list apps: %v", err)
	}
	if len(apps) != 0 {
		t.Fatalf("principal without grants saw %d apps", len(apps))
	}
}

func TestRevokeRemovesVisibility(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	fix := testutil.SeedTenancy(t, store)

	const principal = "dev-1"
	if err := store.GrantSpaceRole(ctx, fix.SpaceGUID, principal, tenancy.RoleSpaceDeveloper); err != nil {
		t.Fatalf("grant: %v", err)
	}

	svc := New(store, store, nil)
	ok, err := svc.CanSeeSpace(ctx, principal, fix.SpaceGUID)
	if err != nil || !ok {
		t.Fatalf("expected visibility before revoke, ok=%v err=%v", ok, err)
	}

	if err := store.RevokeSpaceRole(ctx, fix.SpaceGUID, principal, tenancy.RoleSpaceDeveloper); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	ok, err = svc.CanSeeSpace(ctx, principal, fix.SpaceGUID)
	if err != nil || ok {
		t.Fatalf("expected no visibility after revoke, ok=%v err=%v", ok, err)
	}
}
