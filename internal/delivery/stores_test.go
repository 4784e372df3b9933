package delivery

import (
	"context"
	"database/sql"
	"encoding/json"
	"sort"
	"sync"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/repository"
	"github.com/noah-isme/backoffice-authz/pkg/delta"
)

func strPtr(s string) *string { return &s }

func tenant(id *string) string {
	if id == nil {
		return ""
	}
	return *id
}

// docBook is an in-memory document store keyed by tenant/collection/id.
type docBook struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	inserts int
	updates int
	deletes int
}

func newDocBook() *docBook {
	return &docBook{docs: make(map[string]json.RawMessage)}
}

func bookKey(tenantID *string, collection, id string) string {
	return tenant(tenantID) + "/" + collection + "/" + id
}

func (b *docBook) put(tenantID *string, collection, id, body string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.docs[bookKey(tenantID, collection, id)] = json.RawMessage(body)
}

func (b *docBook) body(tenantID *string, collection, id string) (string, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.docs[bookKey(tenantID, collection, id)]
	return string(raw), ok
}

func (b *docBook) Get(ctx context.Context, tenantID *string, collection, id string) (*models.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw, ok := b.docs[bookKey(tenantID, collection, id)]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &models.Document{Collection: collection, ID: id, TenantID: tenantID, Body: raw}, nil
}

func (b *docBook) Insert(ctx context.Context, tenantID *string, collection, id string, body json.RawMessage) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := bookKey(tenantID, collection, id)
	if _, ok := b.docs[key]; ok {
		return false, nil
	}
	b.docs[key] = body
	b.inserts++
	return true, nil
}

func (b *docBook) Update(ctx context.Context, tenantID *string, collection, id string, patch json.RawMessage) (*models.DocumentChange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := bookKey(tenantID, collection, id)
	before, ok := b.docs[key]
	if !ok {
		return nil, sql.ErrNoRows
	}
	after, err := delta.Apply(before, patch)
	if err != nil {
		return nil, err
	}
	b.docs[key] = after
	b.updates++
	return &models.DocumentChange{Before: before, After: after}, nil
}

func (b *docBook) Delete(ctx context.Context, tenantID *string, collection, id string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	key := bookKey(tenantID, collection, id)
	if _, ok := b.docs[key]; !ok {
		return false, nil
	}
	delete(b.docs, key)
	b.deletes++
	return true, nil
}

// requestBook is an in-memory authorization store with compare-and-set
// transitions.
type requestBook struct {
	mu    sync.Mutex
	items map[string]models.AuthorizationRequest
}

func newRequestBook() *requestBook {
	return &requestBook{items: make(map[string]models.AuthorizationRequest)}
}

func (s *requestBook) status(id string) models.AuthorizationStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

func (s *requestBook) Create(ctx context.Context, req *models.AuthorizationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.items {
		if existing.Tenant() != req.Tenant() {
			continue
		}
		if existing.ProtocolID == req.ProtocolID {
			return repository.ErrProtocolTaken
		}
		if existing.Status == models.AuthorizationPending && existing.ActionKey == req.ActionKey && existing.ActionLabel == req.ActionLabel {
			return repository.ErrDuplicatePending
		}
	}
	s.items[req.ID] = *req
	return nil
}

func (s *requestBook) GetByID(ctx context.Context, id string) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (s *requestBook) FindPending(ctx context.Context, tenantID *string, actionKey, actionLabel string) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.items {
		if req.Status == models.AuthorizationPending && req.Tenant() == tenant(tenantID) &&
			req.ActionKey == actionKey && req.ActionLabel == actionLabel {
			out := req
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *requestBook) List(ctx context.Context, filter models.AuthorizationFilter) ([]models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuthorizationRequest
	for _, req := range s.items {
		if !filter.AllTenants && req.Tenant() != tenant(filter.TenantID) {
			continue
		}
		if filter.RequestedByID != "" && req.RequestedByID != filter.RequestedByID {
			continue
		}
		if len(filter.Statuses) > 0 && !hasStatus(filter.Statuses, req.Status) {
			continue
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProtocolID < out[j].ProtocolID })
	return out, nil
}

func hasStatus(set []models.AuthorizationStatus, st models.AuthorizationStatus) bool {
	for _, s := range set {
		if s == st {
			return true
		}
	}
	return false
}

func (s *requestBook) Transition(ctx context.Context, t models.StatusTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[t.ID]
	if !ok || req.Status != t.From || !t.From.CanTransitionTo(t.To) {
		return sql.ErrNoRows
	}
	req.Status = t.To
	if t.ApprovalCode != nil {
		req.ApprovalCode = t.ApprovalCode
	}
	if t.RespondedAt != nil {
		req.RespondedAt = t.RespondedAt
		req.RespondedByID = t.RespondedByID
		req.RespondedByName = t.RespondedByName
	}
	if t.ProcessedAt != nil {
		req.ProcessedAt = t.ProcessedAt
	}
	s.items[t.ID] = req
	return nil
}
