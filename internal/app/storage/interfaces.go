package storage

import (
	"context"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/domain/binding"
	"github.com/nimbus-paas/control_plane/internal/app/domain/deployment"
	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
)

// AppStore persists app records. Create and Update return ErrNameTaken when
// the (space, name) pair collides with a committed app; the store's own
// uniqueness guard is authoritative, any caller-side check is an early reject.
type AppStore interface {
	CreateApp(ctx context.Context, a app.App) (app.App, error)
	UpdateApp(ctx context.Context, a app.App) (app.App, error)
	GetApp(ctx context.Context, guid string) (app.App, error)
	DeleteApp(ctx context.Context, guid string) error
	ListAppsBySpaceGUIDs(ctx context.Context, spaceGUIDs []string) ([]app.App, error)
	AppNameTaken(ctx context.Context, spaceGUID, name, excludeGUID string) (bool, error)

	// Lifecycle sub-record ownership: deleted explicitly before the app row.
	DeleteAppLifecycle(ctx context.Context, appGUID string) error
}

// ProcessStore persists the runtime processes belonging to apps.
type ProcessStore interface {
	CreateProcess(ctx context.Context, p process.Process) (process.Process, error)
	UpdateProcess(ctx context.Context, p process.Process) (process.Process, error)
	GetProcess(ctx context.Context, guid string) (process.Process, error)
	ListProcessesByApp(ctx context.Context, appGUID string) ([]process.Process, error)
}

// DropletStore persists staged droplets.
type DropletStore interface {
	CreateDroplet(ctx context.Context, d artifact.Droplet) (artifact.Droplet, error)
	UpdateDroplet(ctx context.Context, d artifact.Droplet) (artifact.Droplet, error)
	GetDroplet(ctx context.Context, guid string) (artifact.Droplet, error)
	ListDropletsByApp(ctx context.Context, appGUID string) ([]artifact.Droplet, error)
}

// BuildStore persists staging builds.
type BuildStore interface {
	CreateBuild(ctx context.Context, b artifact.Build) (artifact.Build, error)
	UpdateBuild(ctx context.Context, b artifact.Build) (artifact.Build, error)
	ListBuildsByApp(ctx context.Context, appGUID string) ([]artifact.Build, error)
}

// PackageStore persists uploaded source packages.
type PackageStore interface {
	CreatePackage(ctx context.Context, p artifact.Package) (artifact.Package, error)
	GetPackage(ctx context.Context, guid string) (artifact.Package, error)
	ListPackagesByApp(ctx context.Context, appGUID string) ([]artifact.Package, error)
}

// BindingStore persists service bindings and route mappings.
type BindingStore interface {
	CreateServiceBinding(ctx context.Context, b binding.ServiceBinding) (binding.ServiceBinding, error)
	ListServiceBindingsByApp(ctx context.Context, appGUID string) ([]binding.ServiceBinding, error)
	CreateRouteMapping(ctx context.Context, m binding.RouteMapping) (binding.RouteMapping, error)
	ListRouteMappingsByApp(ctx context.Context, appGUID string) ([]binding.RouteMapping, error)
}

// DeploymentStore persists droplet rollouts.
type DeploymentStore interface {
	CreateDeployment(ctx context.Context, d deployment.Deployment) (deployment.Deployment, error)
	ListDeploymentsByApp(ctx context.Context, appGUID string) ([]deployment.Deployment, error)
}

// TenancyStore persists organizations, spaces and role memberships, and
// answers the four independent grant-set queries visibility scoping unions.
type TenancyStore interface {
	CreateOrganization(ctx context.Context, org tenancy.Organization) (tenancy.Organization, error)
	CreateSpace(ctx context.Context, sp tenancy.Space) (tenancy.Space, error)
	GetSpace(ctx context.Context, guid string) (tenancy.Space, error)

	GrantSpaceRole(ctx context.Context, spaceGUID, principal string, role tenancy.Role) error
	RevokeSpaceRole(ctx context.Context, spaceGUID, principal string, role tenancy.Role) error
	GrantOrgManager(ctx context.Context, orgGUID, principal string) error
	RevokeOrgManager(ctx context.Context, orgGUID, principal string) error

	DeveloperSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	ManagerSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	AuditorSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
	OrgManagedSpaceGUIDs(ctx context.Context, principal string) ([]string, error)
}
