package repository

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/pkg/delta"
)

// DocumentRepository is the tenant-scoped JSON document store that approved
// mutations are applied to. Every write is safe to repeat.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// Insert stores body under (collection, id). It reports false when the id
// already exists, leaving the stored document untouched.
func (r *DocumentRepository) Insert(ctx context.Context, tenantID *string, collection, id string, body json.RawMessage) (bool, error) {
	canonical, err := delta.CanonicalizeJSON(body)
	if err != nil {
		return false, err
	}
	now := time.Now().UTC()
	const query = `INSERT INTO documents (collection, id, tenant_id, body, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $5) ON CONFLICT (collection, id) DO NOTHING`
	result, err := r.db.ExecContext(ctx, query, collection, id, tenantID, []byte(canonical), now)
	if err != nil {
		return false, fmt.Errorf("insert document %s/%s: %w", collection, id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check document insert rows: %w", err)
	}
	return rows > 0, nil
}

// Get fetches one document; sql.ErrNoRows when absent.
func (r *DocumentRepository) Get(ctx context.Context, tenantID *string, collection, id string) (*models.Document, error) {
	const query = `SELECT collection, id, tenant_id, body, created_at, updated_at FROM documents
	WHERE collection = $1 AND id = $2 AND COALESCE(tenant_id, '') = $3`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, collection, id, tenantKey(tenantID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get document %s/%s: %w", collection, id, err)
	}
	return &doc, nil
}

// Update merges patch into the stored document under a row lock and
// returns both versions. sql.ErrNoRows when absent.
func (r *DocumentRepository) Update(ctx context.Context, tenantID *string, collection, id string, patch json.RawMessage) (*models.DocumentChange, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin document update: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var before []byte
	const selectQuery = `SELECT body FROM documents
	WHERE collection = $1 AND id = $2 AND COALESCE(tenant_id, '') = $3 FOR UPDATE`
	if err := tx.GetContext(ctx, &before, selectQuery, collection, id, tenantKey(tenantID)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("lock document %s/%s: %w", collection, id, err)
	}

	after, err := delta.Apply(before, patch)
	if err != nil {
		return nil, fmt.Errorf("apply patch to %s/%s: %w", collection, id, err)
	}

	const updateQuery = `UPDATE documents SET body = $1, updated_at = $2 WHERE collection = $3 AND id = $4`
	if _, err := tx.ExecContext(ctx, updateQuery, []byte(after), time.Now().UTC(), collection, id); err != nil {
		return nil, fmt.Errorf("update document %s/%s: %w", collection, id, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit document update: %w", err)
	}
	return &models.DocumentChange{Before: before, After: after}, nil
}

// Delete removes a document if present and reports whether a row went away.
func (r *DocumentRepository) Delete(ctx context.Context, tenantID *string, collection, id string) (bool, error) {
	const query = `DELETE FROM documents WHERE collection = $1 AND id = $2 AND COALESCE(tenant_id, '') = $3`
	result, err := r.db.ExecContext(ctx, query, collection, id, tenantKey(tenantID))
	if err != nil {
		return false, fmt.Errorf("delete document %s/%s: %w", collection, id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("check document delete rows: %w", err)
	}
	return rows > 0, nil
}

// Query returns the documents of a collection whose body contains match.
// An empty match returns the whole collection.
func (r *DocumentRepository) Query(ctx context.Context, tenantID *string, collection string, match json.RawMessage) ([]models.Document, error) {
	query := `SELECT collection, id, tenant_id, body, created_at, updated_at FROM documents
	WHERE collection = $1 AND COALESCE(tenant_id, '') = $2`
	args := []interface{}{collection, tenantKey(tenantID)}
	if trimmed := bytes.TrimSpace(match); len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("{}")) {
		canonical, err := delta.CanonicalizeJSON(trimmed)
		if err != nil {
			return nil, err
		}
		args = append(args, string(canonical))
		query += fmt.Sprintf(" AND body @> $%d::jsonb", len(args))
	}
	query += " ORDER BY created_at ASC"

	var docs []models.Document
	if err := r.db.SelectContext(ctx, &docs, query, args...); err != nil {
		return nil, fmt.Errorf("query documents %s: %w", collection, err)
	}
	return docs, nil
}
