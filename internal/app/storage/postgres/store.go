package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/nimbus-paas/control_plane/internal/app/cipher"
	"github.com/nimbus-paas/control_plane/internal/app/domain/app"
	"github.com/nimbus-paas/control_plane/internal/app/domain/artifact"
	"github.com/nimbus-paas/control_plane/internal/app/domain/binding"
	"github.com/nimbus-paas/control_plane/internal/app/domain/deployment"
	"github.com/nimbus-paas/control_plane/internal/app/domain/process"
	"github.com/nimbus-paas/control_plane/internal/app/domain/tenancy"
	"github.com/nimbus-paas/control_plane/internal/app/storage"
)

// Store implements the storage interfaces backed by PostgreSQL. The unique
// index on apps(space_guid, name) is the authoritative guard against
// concurrent same-name writes; violations are surfaced as storage.ErrNameTaken.
type Store struct {
	db     *sqlx.DB
	cipher cipher.Cipher
}

var _ storage.AppStore = (*Store)(nil)
var _ storage.ProcessStore = (*Store)(nil)
var _ storage.DropletStore = (*Store)(nil)
var _ storage.BuildStore = (*Store)(nil)
var _ storage.PackageStore = (*Store)(nil)
var _ storage.BindingStore = (*Store)(nil)
var _ storage.DeploymentStore = (*Store)(nil)
var _ storage.TenancyStore = (*Store)(nil)

// Option configures the store.
type Option func(*Store)

// WithCipher supplies the cipher used for the environment variables column.
func WithCipher(c cipher.Cipher) Option {
	return func(s *Store) { s.cipher = c }
}

// New creates a Store using the provided database handle.
func New(db *sqlx.DB, opts ...Option) *Store {
	s := &Store{db: db, cipher: cipher.Noop{}}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func translateGetErr(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return storage.ErrNotFound
	}
	return err
}

// --- AppStore -----------------------------------------------------------------

type appRow struct {
	GUID         string         `db:"guid"`
	SpaceGUID    string         `db:"space_guid"`
	Name         string         `db:"name"`
	DesiredState string         `db:"desired_state"`
	EnableSSH    sql.NullBool   `db:"enable_ssh"`
	EnvVars      []byte         `db:"environment_variables"`
	DropletGUID  sql.NullString `db:"droplet_guid"`
	CreatedAt    time.Time      `db:"created_at"`
	UpdatedAt    time.Time      `db:"updated_at"`

	// joined from app_lifecycles
	Buildpacks []byte         `db:"buildpacks"`
	Stack      sql.NullString `db:"stack"`
	HasLC      sql.NullBool   `db:"has_lifecycle"`
}

const appSelect = `
	SELECT a.guid, a.space_guid, a.name, a.desired_state, a.enable_ssh,
	       a.environment_variables, a.droplet_guid, a.created_at, a.updated_at,
	       l.buildpacks, l.stack, (l.app_guid IS NOT NULL) AS has_lifecycle
	FROM apps a
	LEFT JOIN app_lifecycles l ON l.app_guid = a.guid`

func (s *Store) sealEnvVars(envs map[string]string) ([]byte, error) {
	if envs == nil {
		return nil, nil
	}
	raw, err := json.Marshal(envs)
	if err != nil {
		return nil, err
	}
	return s.cipher.Encrypt(raw)
}

func (s *Store) openEnvVars(sealed []byte) (map[string]string, error) {
	if len(sealed) == 0 {
		return nil, nil
	}
	raw, err := s.cipher.Decrypt(sealed)
	if err != nil {
		return nil, err
	}
	var envs map[string]string
	if err := json.Unmarshal(raw, &envs); err != nil {
		return nil, err
	}
	return envs, nil
}

func (s *Store) rowToApp(row appRow) (app.App, error) {
	envs, err := s.openEnvVars(row.EnvVars)
	if err != nil {
		return app.App{}, err
	}

	a := app.App{
		GUID:                 row.GUID,
		SpaceGUID:            row.SpaceGUID,
		Name:                 row.Name,
		DesiredState:         app.DesiredState(row.DesiredState),
		EnvironmentVariables: envs,
		CreatedAt:            row.CreatedAt,
		UpdatedAt:            row.UpdatedAt,
	}
	if row.EnableSSH.Valid {
		v := row.EnableSSH.Bool
		a.EnableSSH = &v
	}
	if row.DropletGUID.Valid {
		a.DropletGUID = row.DropletGUID.String
	}
	if row.HasLC.Valid && row.HasLC.Bool {
		lc := app.BuildpackLifecycle{Stack: row.Stack.String}
		if len(row.Buildpacks) > 0 {
			if err := json.Unmarshal(row.Buildpacks, &lc.Buildpacks); err != nil {
				return app.App{}, err
			}
		}
		a.Lifecycle = &lc
	}
	return a, nil
}

func (s *Store) upsertLifecycle(ctx context.Context, tx *sqlx.Tx, appGUID string, lc *app.BuildpackLifecycle) error {
	if lc == nil {
		_, err := tx.ExecContext(ctx, `DELETE FROM app_lifecycles WHERE app_guid = $1`, appGUID)
		return err
	}
	buildpacks, err := json.Marshal(lc.Buildpacks)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO app_lifecycles (app_guid, buildpacks, stack)
		VALUES ($1, $2, $3)
		ON CONFLICT (app_guid) DO UPDATE SET buildpacks = $2, stack = $3
	`, appGUID, buildpacks, lc.Stack)
	return err
}

func (s *Store) CreateApp(ctx context.Context, a app.App) (app.App, error) {
	if a.GUID == "" {
		a.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	a.CreatedAt = now
	a.UpdatedAt = now

	sealed, err := s.sealEnvVars(a.EnvironmentVariables)
	if err != nil {
		return app.App{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return app.App{}, err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO apps (guid, space_guid, name, desired_state, enable_ssh,
		                  environment_variables, droplet_guid, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9)
	`, a.GUID, a.SpaceGUID, a.Name, string(a.DesiredState), boolPtrToNull(a.EnableSSH),
		sealed, a.DropletGUID, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return app.App{}, storage.ErrNameTaken
		}
		return app.App{}, err
	}

	if err := s.upsertLifecycle(ctx, tx, a.GUID, a.Lifecycle); err != nil {
		return app.App{}, err
	}
	if err := tx.Commit(); err != nil {
		return app.App{}, err
	}
	return a, nil
}

func (s *Store) UpdateApp(ctx context.Context, a app.App) (app.App, error) {
	existing, err := s.GetApp(ctx, a.GUID)
	if err != nil {
		return app.App{}, err
	}

	a.CreatedAt = existing.CreatedAt
	a.UpdatedAt = time.Now().UTC()

	sealed, err := s.sealEnvVars(a.EnvironmentVariables)
	if err != nil {
		return app.App{}, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return app.App{}, err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		UPDATE apps
		SET space_guid = $2, name = $3, desired_state = $4, enable_ssh = $5,
		    environment_variables = $6, droplet_guid = NULLIF($7, ''), updated_at = $8
		WHERE guid = $1
	`, a.GUID, a.SpaceGUID, a.Name, string(a.DesiredState), boolPtrToNull(a.EnableSSH),
		sealed, a.DropletGUID, a.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return app.App{}, storage.ErrNameTaken
		}
		return app.App{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return app.App{}, storage.ErrNotFound
	}

	if err := s.upsertLifecycle(ctx, tx, a.GUID, a.Lifecycle); err != nil {
		return app.App{}, err
	}
	if err := tx.Commit(); err != nil {
		return app.App{}, err
	}
	return a, nil
}

func (s *Store) GetApp(ctx context.Context, guid string) (app.App, error) {
	var row appRow
	if err := s.db.GetContext(ctx, &row, appSelect+` WHERE a.guid = $1`, guid); err != nil {
		return app.App{}, translateGetErr(err)
	}
	return s.rowToApp(row)
}

func (s *Store) DeleteApp(ctx context.Context, guid string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM apps WHERE guid = $1`, guid)
	if err != nil {
		return err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func (s *Store) ListAppsBySpaceGUIDs(ctx context.Context, spaceGUIDs []string) ([]app.App, error) {
	if len(spaceGUIDs) == 0 {
		return nil, nil
	}

	query, args, err := sqlx.In(appSelect+` WHERE a.space_guid IN (?) ORDER BY a.created_at`, spaceGUIDs)
	if err != nil {
		return nil, err
	}
	query = s.db.Rebind(query)

	var rows []appRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, err
	}

	result := make([]app.App, 0, len(rows))
	for _, row := range rows {
		a, err := s.rowToApp(row)
		if err != nil {
			return nil, err
		}
		result = append(result, a)
	}
	return result, nil
}

func (s *Store) AppNameTaken(ctx context.Context, spaceGUID, name, excludeGUID string) (bool, error) {
	var count int
	err := s.db.GetContext(ctx, &count, `
		SELECT count(*) FROM apps
		WHERE space_guid = $1 AND name = $2 AND guid <> $3
	`, spaceGUID, name, excludeGUID)
	return count > 0, err
}

func (s *Store) DeleteAppLifecycle(ctx context.Context, appGUID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM app_lifecycles WHERE app_guid = $1`, appGUID)
	return err
}

// --- ProcessStore ---------------------------------------------------------------

func (s *Store) CreateProcess(ctx context.Context, p process.Process) (process.Process, error) {
	if p.GUID == "" {
		p.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processes (guid, app_guid, type, version, desired_state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, p.GUID, p.AppGUID, p.Type, p.Version, p.DesiredState, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return process.Process{}, err
	}
	return p, nil
}

func (s *Store) UpdateProcess(ctx context.Context, p process.Process) (process.Process, error) {
	p.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE processes
		SET type = $2, version = $3, desired_state = $4, updated_at = $5
		WHERE guid = $1
	`, p.GUID, p.Type, p.Version, p.DesiredState, p.UpdatedAt)
	if err != nil {
		return process.Process{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return process.Process{}, storage.ErrNotFound
	}
	return p, nil
}

func (s *Store) GetProcess(ctx context.Context, guid string) (process.Process, error) {
	var p process.Process
	err := s.db.QueryRowxContext(ctx, `
		SELECT guid, app_guid, type, version, desired_state, created_at, updated_at
		FROM processes WHERE guid = $1
	`, guid).Scan(&p.GUID, &p.AppGUID, &p.Type, &p.Version, &p.DesiredState, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return process.Process{}, translateGetErr(err)
	}
	return p, nil
}

func (s *Store) ListProcessesByApp(ctx context.Context, appGUID string) ([]process.Process, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, type, version, desired_state, created_at, updated_at
		FROM processes WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []process.Process
	for rows.Next() {
		var p process.Process
		if err := rows.Scan(&p.GUID, &p.AppGUID, &p.Type, &p.Version, &p.DesiredState, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- DropletStore ---------------------------------------------------------------

func (s *Store) CreateDroplet(ctx context.Context, d artifact.Droplet) (artifact.Droplet, error) {
	if d.GUID == "" {
		d.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO droplets (guid, app_guid, package_guid, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.GUID, d.AppGUID, d.PackageGUID, d.State, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return artifact.Droplet{}, err
	}
	return d, nil
}

func (s *Store) UpdateDroplet(ctx context.Context, d artifact.Droplet) (artifact.Droplet, error) {
	d.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE droplets SET state = $2, updated_at = $3 WHERE guid = $1
	`, d.GUID, d.State, d.UpdatedAt)
	if err != nil {
		return artifact.Droplet{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return artifact.Droplet{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) GetDroplet(ctx context.Context, guid string) (artifact.Droplet, error) {
	var d artifact.Droplet
	err := s.db.QueryRowxContext(ctx, `
		SELECT guid, app_guid, package_guid, state, created_at, updated_at
		FROM droplets WHERE guid = $1
	`, guid).Scan(&d.GUID, &d.AppGUID, &d.PackageGUID, &d.State, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		return artifact.Droplet{}, translateGetErr(err)
	}
	return d, nil
}

func (s *Store) ListDropletsByApp(ctx context.Context, appGUID string) ([]artifact.Droplet, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, package_guid, state, created_at, updated_at
		FROM droplets WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []artifact.Droplet
	for rows.Next() {
		var d artifact.Droplet
		if err := rows.Scan(&d.GUID, &d.AppGUID, &d.PackageGUID, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// --- BuildStore -----------------------------------------------------------------

func (s *Store) CreateBuild(ctx context.Context, b artifact.Build) (artifact.Build, error) {
	if b.GUID == "" {
		b.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO builds (guid, app_guid, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
	`, b.GUID, b.AppGUID, b.State, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return artifact.Build{}, err
	}
	return b, nil
}

func (s *Store) UpdateBuild(ctx context.Context, b artifact.Build) (artifact.Build, error) {
	b.UpdatedAt = time.Now().UTC()
	result, err := s.db.ExecContext(ctx, `
		UPDATE builds SET state = $2, updated_at = $3 WHERE guid = $1
	`, b.GUID, b.State, b.UpdatedAt)
	if err != nil {
		return artifact.Build{}, err
	}
	if rows, _ := result.RowsAffected(); rows == 0 {
		return artifact.Build{}, storage.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBuildsByApp(ctx context.Context, appGUID string) ([]artifact.Build, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, state, created_at, updated_at
		FROM builds WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []artifact.Build
	for rows.Next() {
		var b artifact.Build
		if err := rows.Scan(&b.GUID, &b.AppGUID, &b.State, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, b)
	}
	return result, rows.Err()
}

// --- PackageStore ---------------------------------------------------------------

func (s *Store) CreatePackage(ctx context.Context, p artifact.Package) (artifact.Package, error) {
	if p.GUID == "" {
		p.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO packages (guid, app_guid, type, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, p.GUID, p.AppGUID, p.Type, p.State, p.CreatedAt, p.UpdatedAt)
	if err != nil {
		return artifact.Package{}, err
	}
	return p, nil
}

func (s *Store) GetPackage(ctx context.Context, guid string) (artifact.Package, error) {
	var p artifact.Package
	err := s.db.QueryRowxContext(ctx, `
		SELECT guid, app_guid, type, state, created_at, updated_at
		FROM packages WHERE guid = $1
	`, guid).Scan(&p.GUID, &p.AppGUID, &p.Type, &p.State, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return artifact.Package{}, translateGetErr(err)
	}
	return p, nil
}

func (s *Store) ListPackagesByApp(ctx context.Context, appGUID string) ([]artifact.Package, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, type, state, created_at, updated_at
		FROM packages WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []artifact.Package
	for rows.Next() {
		var p artifact.Package
		if err := rows.Scan(&p.GUID, &p.AppGUID, &p.Type, &p.State, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// --- BindingStore ---------------------------------------------------------------

func (s *Store) CreateServiceBinding(ctx context.Context, b binding.ServiceBinding) (binding.ServiceBinding, error) {
	if b.GUID == "" {
		b.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	b.CreatedAt = now
	b.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO service_bindings (guid, app_guid, service_instance_name, credentials, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, b.GUID, b.AppGUID, b.ServiceInstanceName, []byte(b.Credentials), b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return binding.ServiceBinding{}, err
	}
	return b, nil
}

func (s *Store) ListServiceBindingsByApp(ctx context.Context, appGUID string) ([]binding.ServiceBinding, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, service_instance_name, credentials, created_at, updated_at
		FROM service_bindings WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []binding.ServiceBinding
	for rows.Next() {
		var (
			b     binding.ServiceBinding
			creds []byte
		)
		if err := rows.Scan(&b.GUID, &b.AppGUID, &b.ServiceInstanceName, &creds, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, err
		}
		b.Credentials = creds
		result = append(result, b)
	}
	return result, rows.Err()
}

func (s *Store) CreateRouteMapping(ctx context.Context, m binding.RouteMapping) (binding.RouteMapping, error) {
	if m.GUID == "" {
		m.GUID = uuid.NewString()
	}
	m.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO route_mappings (guid, app_guid, route_guid, process_type, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, m.GUID, m.AppGUID, m.RouteGUID, m.ProcessType, m.CreatedAt)
	if err != nil {
		return binding.RouteMapping{}, err
	}
	return m, nil
}

func (s *Store) ListRouteMappingsByApp(ctx context.Context, appGUID string) ([]binding.RouteMapping, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, route_guid, process_type, created_at
		FROM route_mappings WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []binding.RouteMapping
	for rows.Next() {
		var m binding.RouteMapping
		if err := rows.Scan(&m.GUID, &m.AppGUID, &m.RouteGUID, &m.ProcessType, &m.CreatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// --- DeploymentStore ------------------------------------------------------------

func (s *Store) CreateDeployment(ctx context.Context, d deployment.Deployment) (deployment.Deployment, error) {
	if d.GUID == "" {
		d.GUID = uuid.NewString()
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO deployments (guid, app_guid, droplet_guid, state, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, d.GUID, d.AppGUID, d.DropletGUID, d.State, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		return deployment.Deployment{}, err
	}
	return d, nil
}

func (s *Store) ListDeploymentsByApp(ctx context.Context, appGUID string) ([]deployment.Deployment, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT guid, app_guid, droplet_guid, state, created_at, updated_at
		FROM deployments WHERE app_guid = $1 ORDER BY created_at
	`, appGUID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []deployment.Deployment
	for rows.Next() {
		var d deployment.Deployment
		if err := rows.Scan(&d.GUID, &d.AppGUID, &d.DropletGUID, &d.State, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, d)
	}
	return result, rows.Err()
}

// --- TenancyStore ----------------------------------------------------------------

func (s *Store) CreateOrganization(ctx context.Context, org tenancy.Organization) (tenancy.Organization, error) {
	if org.GUID == "" {
		org.GUID = uuid.NewString()
	}
	org.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organizations (guid, name, created_at) VALUES ($1, $2, $3)
	`, org.GUID, org.Name, org.CreatedAt)
	if err != nil {
		return tenancy.Organization{}, err
	}
	return org, nil
}

func (s *Store) CreateSpace(ctx context.Context, sp tenancy.Space) (tenancy.Space, error) {
	if sp.GUID == "" {
		sp.GUID = uuid.NewString()
	}
	sp.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO spaces (guid, organization_guid, name, created_at) VALUES ($1, $2, $3, $4)
	`, sp.GUID, sp.OrganizationGUID, sp.Name, sp.CreatedAt)
	if err != nil {
		return tenancy.Space{}, err
	}
	return sp, nil
}

func (s *Store) GetSpace(ctx context.Context, guid string) (tenancy.Space, error) {
	var sp tenancy.Space
	err := s.db.QueryRowxContext(ctx, `
		SELECT guid, organization_guid, name, created_at FROM spaces WHERE guid = $1
	`, guid).Scan(&sp.GUID, &sp.OrganizationGUID, &sp.Name, &sp.CreatedAt)
	if err != nil {
		return tenancy.Space{}, translateGetErr(err)
	}
	return sp, nil
}

func (s *Store) GrantSpaceRole(ctx context.Context, spaceGUID, principal string, role tenancy.Role) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO space_roles (space_guid, principal, role)
		VALUES ($1, $2, $3) ON CONFLICT DO NOTHING
	`, spaceGUID, principal, string(role))
	return err
}

func (s *Store) RevokeSpaceRole(ctx context.Context, spaceGUID, principal string, role tenancy.Role) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM space_roles WHERE space_guid = $1 AND principal = $2 AND role = $3
	`, spaceGUID, principal, string(role))
	return err
}

func (s *Store) GrantOrgManager(ctx context.Context, orgGUID, principal string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO organization_managers (organization_guid, principal)
		VALUES ($1, $2) ON CONFLICT DO NOTHING
	`, orgGUID, principal)
	return err
}

func (s *Store) RevokeOrgManager(ctx context.Context, orgGUID, principal string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM organization_managers WHERE organization_guid = $1 AND principal = $2
	`, orgGUID, principal)
	return err
}

func (s *Store) spaceGUIDsWithRole(ctx context.Context, principal string, role tenancy.Role) ([]string, error) {
	var guids []string
	err := s.db.SelectContext(ctx, &guids, `
		SELECT space_guid FROM space_roles
		WHERE principal = $1 AND role = $2 ORDER BY space_guid
	`, principal, string(role))
	return guids, err
}

func (s *Store) DeveloperSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return s.spaceGUIDsWithRole(ctx, principal, tenancy.RoleSpaceDeveloper)
}

func (s *Store) ManagerSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return s.spaceGUIDsWithRole(ctx, principal, tenancy.RoleSpaceManager)
}

func (s *Store) AuditorSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	return s.spaceGUIDsWithRole(ctx, principal, tenancy.RoleSpaceAuditor)
}

func (s *Store) OrgManagedSpaceGUIDs(ctx context.Context, principal string) ([]string, error) {
	var guids []string
	err := s.db.SelectContext(ctx, &guids, `
		SELECT sp.guid FROM spaces sp
		JOIN organization_managers om ON om.organization_guid = sp.organization_guid
		WHERE om.principal = $1 ORDER BY sp.guid
	`, principal)
	return guids, err
}

func boolPtrToNull(b *bool) sql.NullBool {
	if b == nil {
		return sql.NullBool{}
	}
	return sql.NullBool{Bool: *b, Valid: true}
}
