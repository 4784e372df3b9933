package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

// DocumentStore is the tenant-scoped document store mutations are applied to.
type DocumentStore interface {
	Get(ctx context.Context, tenantID *string, collection, id string) (*models.Document, error)
	Insert(ctx context.Context, tenantID *string, collection, id string, body json.RawMessage) (bool, error)
	Update(ctx context.Context, tenantID *string, collection, id string, patch json.RawMessage) (*models.DocumentChange, error)
	Delete(ctx context.Context, tenantID *string, collection, id string) (bool, error)
}

// MutationApplier writes a planned mutation to the document store. Every
// implementation is safe to call again with the same mutation.
type MutationApplier interface {
	Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error)
}

// MutationApplierFunc allows using plain functions.
type MutationApplierFunc func(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error)

// Apply implements MutationApplier.
func (f MutationApplierFunc) Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error) {
	return f(ctx, m)
}

// DeleteApplier removes the record if it still exists.
type DeleteApplier struct {
	docs DocumentStore
}

// NewDeleteApplier constructs the applier.
func NewDeleteApplier(docs DocumentStore) *DeleteApplier {
	return &DeleteApplier{docs: docs}
}

// Apply deletes m.RecordID. A record already gone is not an error.
func (a *DeleteApplier) Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error) {
	if m.RecordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	before, err := a.docs.Get(ctx, m.TenantID, m.Collection, m.RecordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return &models.DocumentChange{}, nil
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}
	if _, err := a.docs.Delete(ctx, m.TenantID, m.Collection, m.RecordID); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete record")
	}
	return &models.DocumentChange{Before: before.Body}, nil
}

// MergePatchApplier merges the mutation patch into the stored record.
type MergePatchApplier struct {
	docs DocumentStore
}

// NewMergePatchApplier constructs the applier.
func NewMergePatchApplier(docs DocumentStore) *MergePatchApplier {
	return &MergePatchApplier{docs: docs}
}

// Apply merges m.Patch into m.RecordID.
func (a *MergePatchApplier) Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error) {
	if m.RecordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	if len(m.Patch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "mutation carries no changes")
	}
	return update(ctx, a.docs, m, m.Patch)
}

// FixedPatchApplier merges a constant patch, ignoring any carried delta.
type FixedPatchApplier struct {
	docs  DocumentStore
	patch json.RawMessage
}

// NewFixedPatchApplier constructs the applier for patch.
func NewFixedPatchApplier(docs DocumentStore, patch json.RawMessage) *FixedPatchApplier {
	return &FixedPatchApplier{docs: docs, patch: patch}
}

// Apply merges the fixed patch into m.RecordID.
func (a *FixedPatchApplier) Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error) {
	if m.RecordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	return update(ctx, a.docs, m, a.patch)
}

// InsertApplier creates the record under its pre-assigned id.
type InsertApplier struct {
	docs DocumentStore
}

// NewInsertApplier constructs the applier.
func NewInsertApplier(docs DocumentStore) *InsertApplier {
	return &InsertApplier{docs: docs}
}

// Apply inserts m.Patch as the body of m.RecordID. A second call leaves
// the first insert in place.
func (a *InsertApplier) Apply(ctx context.Context, m models.PlannedMutation) (*models.DocumentChange, error) {
	if m.RecordID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "record id is required")
	}
	if len(m.Patch) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "insert carries no body")
	}
	created, err := a.docs.Insert(ctx, m.TenantID, m.Collection, m.RecordID, m.Patch)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert record")
	}
	if !created {
		return &models.DocumentChange{}, nil
	}
	return &models.DocumentChange{After: m.Patch}, nil
}

// ApplierFor returns the applier matching spec.Kind.
func ApplierFor(spec permissions.ActionSpec, docs DocumentStore) (MutationApplier, error) {
	switch spec.Kind {
	case permissions.KindDelete:
		return NewDeleteApplier(docs), nil
	case permissions.KindMergePatch:
		return NewMergePatchApplier(docs), nil
	case permissions.KindFixedPatch:
		return NewFixedPatchApplier(docs, spec.FixedPatch), nil
	case permissions.KindInsert:
		return NewInsertApplier(docs), nil
	default:
		return nil, fmt.Errorf("no applier for action kind %q", spec.Kind)
	}
}

func update(ctx context.Context, docs DocumentStore, m models.PlannedMutation, patch json.RawMessage) (*models.DocumentChange, error) {
	change, err := docs.Update(ctx, m.TenantID, m.Collection, m.RecordID, patch)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s record %s not found", m.Collection, m.RecordID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update record")
	}
	return change, nil
}
