package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/domain/binding"
	"github.com/nimbus-paas/control_plane/internal/app/domain/deployment"
	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
)

// Store is an in-memory implementation of the storage interfaces. It is safe
// for concurrent use and is primarily intended for tests and local
// development. The (space, name) uniqueness index is maintained under the
// store mutex, so concurrent same-name creates resolve to exactly one winner,
// matching the unique index the postgres store relies on.
type Store struct {
	mu sync.RWMutex

	apps          map[string]app.App
	appNames      map[string]string // spaceGUID|name -> app GUID
	processes     map[string]process.Process
	droplets      map[string]artifact.Droplet
	builds        map[string]artifact.Build
	packages      map[string]artifact.Package
	bindings      map[string]binding.ServiceBinding
	routeMappings map[string]binding.RouteMapping
	deployments   map[string]deployment.Deployment

	orgs   map[string]tenancy.Organization
	spaces map[string]tenancy.Space

	spaceRoles  map[string]map[string]bool // role|spaceGUID -> principals
	orgManagers map[string]map[string]bool // orgGUID -> principals
}

var _ storage.AppStore = (*Store)(nil)
var _ storage.ProcessStore = (*Store)(nil)
var _ storage.DropletStore = (*Store)(nil)
var _ storage.BuildStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.BindingStore = (*Store)(nil)
var _ storage.DeploymentStore = (*Store)(nil)
var _ storage.TenancyStore = (*Store)(nil)

// New creates an empty store.
func New() *Store {
	return &Store{
		apps:          make(map[string]app.App),
		appNames:      make(map[string]string),
		processes:     make(map[string]process.Process),
		droplets:      make(map[string]artifact.Droplet),
		builds:        make(map[string]artifact.Build),
		packages:      make(map[string]artifact.Package),
		bindings:      make(map[string]binding.ServiceBinding),
		routeMappings: make(map[string]binding.RouteMapping),
		deployments:   make(map[string]deployment.Deployment),
		orgs:          make(map[string]tenancy.Organization),
		spaces:        make(map[string]tenancy.Space),
		spaceRoles:    make(map[string]map[string]bool),
		orgManagers:   make(map[string]map[string]bool),
	}
}

func nameKey(spaceGUID, name string) string { return spaceGUID + "|" + name }

func roleKey(role tenancy.Role, spaceGUID string) string { return string(role) + "|" + spaceGUID }

// AppStore implementation -----------------------------------------------------

func (s *Store) CreateApp(_ context.Context, a app.App) (app.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if a.GUID == "" {
		a.GUID = uuid.NewString()
	}
	key := nameKey(a.SpaceGUID, a.Name)
	if _, taken := s.appNames[key]; taken {
		return app.App{}, storage.ErrNameTaken
	}

	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	s.apps[a.GUID] = cloneApp(a)
	s.appNames[key] = a.GUID
	return cloneApp(a), nil
}

func (s *Store) UpdateApp(_ context.Context, a app.App) (app.App, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.apps[a.GUID]
	if !ok {
		return app.App{}, storage.ErrNotFound
	}

	key := nameKey(a.SpaceGUID, a.Name)
	if owner, taken := s.appNames[key]; taken && owner != a.GUID {
		return app.App{}, storage.ErrNameTaken
	}

	a.CreatedAt = original.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	delete(s.appNames, nameKey(original.SpaceGUID, original.Name))
	s.appNames[key] = a.GUID
	s.apps[a.GUID] = cloneApp(a)
	return cloneApp(a), nil
}

func (s *Store) GetApp(_ context.Context, guid string) (app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.apps[guid]
	if !ok {
		return app.App{}, storage.ErrNotFound
	}
	return cloneApp(a), nil
}

func (s *Store) DeleteApp(_ context.Context, guid string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.apps[guid]
	if !ok {
		return storage.ErrNotFound
	}
	delete(s.appNames, nameKey(a.SpaceGUID, a.Name))
	delete(s.apps, guid)
	return nil
}

func (s *Store) ListAppsBySpaceGUIDs(_ context.Context, spaceGUIDs []string) ([]app.App, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	want := make(map[string]bool, len(spaceGUIDs))
	for _, g := range spaceGUIDs {
		want[g] = true
	}

	var result []app.App
	for _, a := range s.apps {
		if want[a.SpaceGUID] {
			result = append(result, cloneApp(a))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) AppNameTaken(_ context.Context, spaceGUID, name, excludeGUID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	owner, taken := s.appNames[nameKey(spaceGUID, name)]
	return taken && owner != excludeGUID, nil
}

func (s *Store) DeleteAppLifecycle(_ context.Context, appGUID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.apps[appGUID]
	if !ok {
		return storage.ErrNotFound
	}
	a.Lifecycle = nil
	s.apps[appGUID] = a
	return nil
}

// ProcessStore implementation -------------------------------------------------

func (s *Store) CreateProcess(_ context.Context, p process.Process) (process.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.GUID == "" {
		p.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.processes[p.GUID] = p
	return p, nil
}

func (s *Store) UpdateProcess(_ context.Context, p process.Process) (process.Process, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.processes[p.GUID]
	if !ok {
		return process.Process{}, storage.ErrNotFound
	}
	p.CreatedAt = original.CreatedAt
	p.UpdatedAt = time.Now().UTC()

	s.processes[p.GUID] = p
	return p, nil
}

func (s *Store) GetProcess(_ context.Context, guid string) (process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.processes[guid]
	if !ok {
		return process.Process{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListProcessesByApp(_ context.Context, appGUID string) ([]process.Process, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []process.Process
	for _, p := range s.processes {
		if p.AppGUID == appGUID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// DropletStore implementation -------------------------------------------------

func (s *Store) CreateDroplet(_ context.Context, d artifact.Droplet) (artifact.Droplet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.GUID == "" {
		d.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	s.droplets[d.GUID] = d
	return d, nil
}

func (s *Store) UpdateDroplet(_ context.Context, d artifact.Droplet) (artifact.Droplet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.droplets[d.GUID]
	if !ok {
		return artifact.Droplet{}, storage.ErrNotFound
	}
	d.CreatedAt = original.CreatedAt
	d.UpdatedAt = time.Now().UTC()

	s.droplets[d.GUID] = d
	return d, nil
}

func (s *Store) GetDroplet(_ context.Context, guid string) (artifact.Droplet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.droplets[guid]
	if !ok {
		return artifact.Droplet{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) ListDropletsByApp(_ context.Context, appGUID string) ([]artifact.Droplet, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []artifact.Droplet
	for _, d := range s.droplets {
		if d.AppGUID == appGUID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// BuildStore implementation ---------------------------------------------------

func (s *Store) CreateBuild(_ context.Context, b artifact.Build) (artifact.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.GUID == "" {
		b.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	s.builds[b.GUID] = b
	return b, nil
}

func (s *Store) UpdateBuild(_ context.Context, b artifact.Build) (artifact.Build, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	original, ok := s.builds[b.GUID]
	if !ok {
		return artifact.Build{}, storage.ErrNotFound
	}
	b.CreatedAt = original.CreatedAt
	b.UpdatedAt = time.Now().UTC()

	s.builds[b.GUID] = b
	return b, nil
}

func (s *Store) ListBuildsByApp(_ context.Context, appGUID string) ([]artifact.Build, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []artifact.Build
	for _, b := range s.builds {
		if b.AppGUID == appGUID {
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// PackageStore implementation -------------------------------------------------

func (s *Store) CreatePackage(_ context.Context, p artifact.Package) (artifact.Package, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.GUID == "" {
		p.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	s.packages[p.GUID] = p
	return p, nil
}

func (s *Store) GetPackage(_ context.Context, guid string) (artifact.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.packages[guid]
	if !ok {
		return artifact.Package{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) ListPackagesByApp(_ context.Context, appGUID string) ([]artifact.Package, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []artifact.Package
	for _, p := range s.packages {
		if p.AppGUID == appGUID {
			result = append(result, p)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// BindingStore implementation -------------------------------------------------

func (s *Store) CreateServiceBinding(_ context.Context, b binding.ServiceBinding) (binding.ServiceBinding, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b.GUID == "" {
		b.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now
	b.Credentials = append([]byte(nil), b.Credentials...)

	s.bindings[b.GUID] = b
	return b, nil
}

func (s *Store) ListServiceBindingsByApp(_ context.Context, appGUID string) ([]binding.ServiceBinding, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []binding.ServiceBinding
	for _, b := range s.bindings {
		if b.AppGUID == appGUID {
			b.Credentials = append([]byte(nil), b.Credentials...)
			result = append(result, b)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

func (s *Store) CreateRouteMapping(_ context.Context, m binding.RouteMapping) (binding.RouteMapping, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if m.GUID == "" {
		m.GUID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	s.routeMappings[m.GUID] = m
	return m, nil
}

func (s *Store) ListRouteMappingsByApp(_ context.Context, appGUID string) ([]binding.RouteMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []binding.RouteMapping
	for _, m := range s.routeMappings {
		if m.AppGUID == appGUID {
			result = append(result, m)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// DeploymentStore implementation ----------------------------------------------

func (s *Store) CreateDeployment(_ context.Context, d deployment.Deployment) (deployment.Deployment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if d.GUID == "" {
		d.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	s.deployments[d.GUID] = d
	return d, nil
}

func (s *Store) ListDeploymentsByApp(_ context.Context, appGUID string) ([]deployment.Deployment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []deployment.Deployment
	for _, d := range s.deployments {
		if d.AppGUID == appGUID {
			result = append(result, d)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.Before(result[j].CreatedAt) })
	return result, nil
}

// TenancyStore implementation -------------------------------------------------

func (s *Store) CreateOrganization(_ context.Context, org tenancy.Organization) (tenancy.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if org.GUID == "" {
		org.GUID = uuid.NewString()
	}
	org.CreatedAt = time.Now().UTC()

	s.orgs[org.GUID] = org
	return org, nil
}

func (s *Store) CreateSpace(_ context.Context, sp tenancy.Space) (tenancy.Space, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[sp.OrganizationGUID]; !ok {
		return tenancy.Space{}, storage.ErrNotFound
	}
	if sp.GUID == "" {
		sp.GUID = uuid.NewString()
	}
	sp.CreatedAt = time.Now().UTC()

	s.spaces[sp.GUID] = sp
	return sp, nil
}

func (s *Store) GetSpace(_ context.Context, guid string) (tenancy.Space, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sp, ok := s.spaces[guid]
	if !ok {
		return tenancy.Space{}, storage.ErrNotFound
	}
	return sp, nil
}

func (s *Store) GrantSpaceRole(_ context.Context, spaceGUID, principal string, role tenancy.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.spaces[spaceGUID]; !ok {
		return storage.ErrNotFound
	}
	key := roleKey(role, spaceGUID)
	if s.spaceRoles[key] == nil {
		s.spaceRoles[key] = make(map[string]bool)
	}
	s.spaceRoles[key][principal] = true
	return nil
}

func (s *Store) RevokeSpaceRole(_ context.Context, spaceGUID, principal string, role tenancy.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.spaceRoles[roleKey(role, spaceGUID)], principal)
	return nil
}

func (s *Store) GrantOrgManager(_ context.Context, orgGUID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[orgGUID]; !ok {
		return storage.ErrNotFound
	}
	if s.orgManagers[orgGUID] == nil {
		s.orgManagers[orgGUID] = make(map[string]bool)
	}
	s.orgManagers[orgGUID][principal] = true
	return nil
}

func (s *Store) RevokeOrgManager(_ context.Context, orgGUID, principal string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.orgManagers[orgGUID], principal)
	return nil
}

func (s *Store) spacesWithRole(role tenancy.Role, principal string) []string {
	var result []string
	for guid := range s.spaces {
		if s.spaceRoles[roleKey(role, guid)][principal] {
			result = append(result, guid)
		}
	}
	sort.Strings(result)
	return result
}

func (s *Store) DeveloperSpaceGUIDs(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spacesWithRole(tenancy.RoleSpaceDeveloper, principal), nil
}

func (s *Store) ManagerSpaceGUIDs(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spacesWithRole(tenancy.RoleSpaceManager, principal), nil
}

func (s *Store) AuditorSpaceGUIDs(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.spacesWithRole(tenancy.RoleSpaceAuditor, principal), nil
}

func (s *Store) OrgManagedSpaceGUIDs(_ context.Context, principal string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []string
	for guid, sp := range s.spaces {
		if s.orgManagers[sp.OrganizationGUID][principal] {
			result = append(result, guid)
		}
	}
	sort.Strings(result)
	return result, nil
}

// helpers ----------------------------------------------------------------------

func cloneApp(a app.App) app.App {
	if a.EnvironmentVariables != nil {
		envs := make(map[string]string, len(a.EnvironmentVariables))
		for k, v := range a.EnvironmentVariables {
			envs[k] = v
		}
		a.EnvironmentVariables = envs
	}
	if a.EnableSSH != nil {
		v := *a.EnableSSH
		a.EnableSSH = &v
	}
	if a.Lifecycle != nil {
		lc := *a.Lifecycle
		lc.Buildpacks = append([]string(nil), lc.Buildpacks...)
		a.Lifecycle = &lc
	}
	return a
}
