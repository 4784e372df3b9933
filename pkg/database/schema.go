package database

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// schema is idempotent; statements run in order inside one transaction.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id TEXT PRIMARY KEY,
		tenant_id TEXT,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		full_name TEXT NOT NULL,
		role TEXT NOT NULL,
		profiles TEXT[] NOT NULL DEFAULT '{}',
		permissions TEXT[] NOT NULL DEFAULT '{}',
		remote_authorizations TEXT[] NOT NULL DEFAULT '{}',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS authorization_requests (
		id TEXT PRIMARY KEY,
		tenant_id TEXT,
		action_key TEXT NOT NULL,
		action_label TEXT NOT NULL,
		requested_by_id TEXT NOT NULL,
		requested_by_name TEXT NOT NULL,
		protocol_id TEXT NOT NULL,
		approval_code TEXT,
		status TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL,
		responded_at TIMESTAMPTZ,
		responded_by_id TEXT,
		responded_by_name TEXT,
		processed_at TIMESTAMPTZ
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS authorization_requests_pending_uniq
		ON authorization_requests (COALESCE(tenant_id, ''), action_key, md5(action_label))
		WHERE status = 'PENDING'`,
	`CREATE UNIQUE INDEX IF NOT EXISTS authorization_requests_protocol_uniq
		ON authorization_requests (COALESCE(tenant_id, ''), protocol_id)`,
	`CREATE INDEX IF NOT EXISTS authorization_requests_requester_idx
		ON authorization_requests (requested_by_id, status)`,
	`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		tenant_id TEXT,
		body JSONB NOT NULL DEFAULT '{}'::jsonb,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (collection, id)
	)`,
	`CREATE INDEX IF NOT EXISTS documents_tenant_idx ON documents (tenant_id, collection)`,
	`CREATE TABLE IF NOT EXISTS audit_logs (
		id TEXT PRIMARY KEY,
		tenant_id TEXT,
		actor_id TEXT NOT NULL,
		actor_name TEXT NOT NULL,
		action TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
}

// EnsureSchema creates the tables used by the service when they are missing.
func EnsureSchema(ctx context.Context, db *sqlx.DB) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	for i, stmt := range schema {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("apply schema statement %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}
