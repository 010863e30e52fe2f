// Package testutil provides common fixtures for service tests.
package testutil

import (
	"context"
	"testing"

	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
)

// TenancyFixture is a seeded organization and space.
type TenancyFixture struct {
	OrgGUID   string
	SpaceGUID string
}

// SeedTenancy creates one organization with one space and returns their guids.
func SeedTenancy(t *testing.T, store storage.TenancyStore) TenancyFixture {
	t.Helper()
	ctx := context.Background()

	org, err := store.CreateOrganization(ctx, tenancy.Organization{Name: "org"})
	if err != nil {
		t.Fatalf("create organization: %v", err)
	}
	sp, err := store.CreateSpace(ctx, tenancy.Space{OrganizationGUID: org.GUID, Name: "space"})
	if err != nil {
		t.Fatalf("create space: %v", err)
	}
	return TenancyFixture{OrgGUID: org.GUID, SpaceGUID: sp.GUID}
}

// SeedSpace creates an additional space under an existing organization.
func SeedSpace(t *testing.T, store storage.TenancyStore, orgGUID, name string) string {
	t.Helper()

	sp, err := store.CreateSpace(context.Background(), tenancy.Space{OrganizationGUID: orgGUID, Name: name})
	if err != nil {
		t.Fatalf("create space %s: %v", name, err)
	}
	return sp.GUID
}
