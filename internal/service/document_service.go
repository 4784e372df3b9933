package service

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type documentQuerier interface {
	Query(ctx context.Context, tenantID *string, collection string, match json.RawMessage) ([]models.Document, error)
}

// DocumentService reads the collections catalogued actions mutate, so a
// requester can pick the record a mutation targets and check its effect.
type DocumentService struct {
	docs        documentQuerier
	collections map[string]struct{}
	logger      *zap.Logger
}

// NewDocumentService constructs the service.
func NewDocumentService(docs documentQuerier, logger *zap.Logger) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	collections := make(map[string]struct{})
	for _, spec := range permissions.Catalog() {
		collections[spec.Collection] = struct{}{}
	}
	return &DocumentService{docs: docs, collections: collections, logger: logger}
}

// List returns the records of collection in the actor's tenant whose body
// contains match. Platform-admins may name another tenant.
func (s *DocumentService) List(ctx context.Context, actor *models.Operator, tenantID *string, collection string, match json.RawMessage) ([]models.Document, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if _, ok := s.collections[collection]; !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown collection %q", collection))
	}
	if len(match) > 0 && !json.Valid(match) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "match must be a JSON object")
	}

	scope := actor.TenantID
	if tenantID != nil && *tenantID != actor.Tenant() {
		if !actor.IsPlatformAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another tenant's records")
		}
		scope = tenantID
	}

	docs, err := s.docs.Query(ctx, scope, collection, match)
	if err != nil {
		s.logger.Warn("document query failed", zap.String("collection", collection), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list records")
	}
	return docs, nil
}
