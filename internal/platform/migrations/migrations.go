// Package migrations applies the control plane schema. Statements are ordered
// and idempotent so Apply can run at every startup.
package migrations

import (
	"context"
	"database/sql"
	"fmt"
)

var statements = []string{
	`CREATE TABLE IF NOT EXISTS organizations (
		guid       TEXT PRIMARY KEY,
		name       TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS spaces (
		guid              TEXT PRIMARY KEY,
		organization_guid TEXT NOT NULL REFERENCES organizations (guid),
		name              TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS apps (
		guid                  TEXT PRIMARY KEY,
		space_guid            TEXT NOT NULL REFERENCES spaces (guid),
		name                  TEXT NOT NULL,
		desired_state         TEXT NOT NULL DEFAULT 'STOPPED',
		enable_ssh            BOOLEAN,
		environment_variables BYTEA,
		droplet_guid          TEXT,
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL,
		CONSTRAINT apps_space_guid_name_key UNIQUE (space_guid, name)
	)`,
	`CREATE TABLE IF NOT EXISTS app_lifecycles (
		app_guid   TEXT PRIMARY KEY REFERENCES apps (guid) ON DELETE CASCADE,
		buildpacks JSONB,
		stack      TEXT
	)`,
	`CREATE TABLE IF NOT EXISTS processes (
		guid          TEXT PRIMARY KEY,
		app_guid      TEXT NOT NULL,
		type          TEXT NOT NULL DEFAULT 'web',
		version       TEXT NOT NULL,
		desired_state TEXT NOT NULL DEFAULT 'STOPPED',
		created_at    TIMESTAMPTZ NOT NULL,
		updated_at    TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS droplets (
		guid         TEXT PRIMARY KEY,
		app_guid     TEXT NOT NULL,
		package_guid TEXT NOT NULL DEFAULT '',
		state        TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS builds (
		guid       TEXT PRIMARY KEY,
		app_guid   TEXT NOT NULL,
		state      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS packages (
		guid       TEXT PRIMARY KEY,
		app_guid   TEXT NOT NULL,
		type       TEXT NOT NULL DEFAULT 'bits',
		state      TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS service_bindings (
		guid                  TEXT PRIMARY KEY,
		app_guid              TEXT NOT NULL,
		service_instance_name TEXT NOT NULL DEFAULT '',
		credentials           BYTEA,
		created_at            TIMESTAMPTZ NOT NULL,
		updated_at            TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS route_mappings (
		guid         TEXT PRIMARY KEY,
		app_guid     TEXT NOT NULL,
		route_guid   TEXT NOT NULL,
		process_type TEXT NOT NULL DEFAULT 'web',
		created_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS deployments (
		guid         TEXT PRIMARY KEY,
		app_guid     TEXT NOT NULL,
		droplet_guid TEXT NOT NULL,
		state        TEXT NOT NULL,
		created_at   TIMESTAMPTZ NOT NULL,
		updated_at   TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS space_roles (
		space_guid TEXT NOT NULL,
		principal  TEXT NOT NULL,
		role       TEXT NOT NULL,
		PRIMARY KEY (space_guid, principal, role)
	)`,
	`CREATE TABLE IF NOT EXISTS organization_managers (
		organization_guid TEXT NOT NULL,
		principal         TEXT NOT NULL,
		PRIMARY KEY (organization_guid, principal)
	)`,
	`CREATE INDEX IF NOT EXISTS processes_app_guid_idx ON processes (app_guid)`,
	`CREATE INDEX IF NOT EXISTS service_bindings_app_guid_idx ON service_bindings (app_guid)`,
	`CREATE INDEX IF NOT EXISTS space_roles_principal_idx ON space_roles (principal, role)`,
}

// Count reports how many migration statements Apply runs.
func Count() int { return len(statements) }

// Apply runs every migration statement in order against db.
func Apply(ctx context.Context, db *sql.DB) error {
	for i, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i+1, err)
		}
	}
	return nil
}
