package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/repository"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type memoryRequestStore struct {
	mu          sync.Mutex
	items       map[string]models.AuthorizationRequest
	createErr   error
	createCalls int
	listCalls   int
	transitions []models.StatusTransition
}

func newMemoryRequestStore() *memoryRequestStore {
	return &memoryRequestStore{items: make(map[string]models.AuthorizationRequest)}
}

func (s *memoryRequestStore) Create(ctx context.Context, req *models.AuthorizationRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.createCalls++
	if s.createErr != nil {
		err := s.createErr
		s.createErr = nil
		return err
	}
	for _, existing := range s.items {
		if existing.Tenant() == req.Tenant() && existing.ProtocolID == req.ProtocolID {
			return repository.ErrProtocolTaken
		}
		if existing.Status == models.AuthorizationPending && existing.Tenant() == req.Tenant() &&
			existing.ActionKey == req.ActionKey && existing.ActionLabel == req.ActionLabel {
			return repository.ErrDuplicatePending
		}
	}
	s.items[req.ID] = *req
	return nil
}

func (s *memoryRequestStore) GetByID(ctx context.Context, id string) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return &req, nil
}

func (s *memoryRequestStore) FindPending(ctx context.Context, tenantID *string, actionKey, actionLabel string) (*models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, req := range s.items {
		if req.Status == models.AuthorizationPending && req.Tenant() == tenantOf(tenantID) &&
			req.ActionKey == actionKey && req.ActionLabel == actionLabel {
			out := req
			return &out, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *memoryRequestStore) List(ctx context.Context, filter models.AuthorizationFilter) ([]models.AuthorizationRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []models.AuthorizationRequest
	for _, req := range s.items {
		if !filter.AllTenants && req.Tenant() != tenantOf(filter.TenantID) {
			continue
		}
		if filter.RequestedByID != "" && req.RequestedByID != filter.RequestedByID {
			continue
		}
		if len(filter.Statuses) > 0 {
			match := false
			for _, st := range filter.Statuses {
				if req.Status == st {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, req)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	s.listCalls++
	limit := filter.Limit
	if limit <= 0 {
		limit = 200
	}
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *memoryRequestStore) Transition(ctx context.Context, t models.StatusTransition) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transitions = append(s.transitions, t)
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

func (s *memoryRequestStore) force(id string, status models.AuthorizationStatus) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req := s.items[id]
	req.Status = status
	s.items[id] = req
}

type gateStub struct {
	approvers map[string]*models.Operator
	rejects   []string
}

func (g *gateStub) Authenticate(ctx context.Context, email, password, requiredPermission string) (*models.Operator, error) {
	op, ok := g.approvers[email]
	if !ok || password != "secret" {
		g.rejects = append(g.rejects, "credentials")
		return nil, appErrors.ErrAuthFailed
	}
	return op, nil
}

func (g *gateStub) Reject(reason string, fields ...zap.Field) error {
	g.rejects = append(g.rejects, reason)
	return appErrors.ErrAuthFailed
}

type auditEntry struct {
	tenant  string
	actorID string
	kind    string
	message string
}

type auditRecorder struct {
	mu      sync.Mutex
	entries []auditEntry
}

func (a *auditRecorder) Log(ctx context.Context, tenantID *string, actorID, actorName, eventKind, message string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, auditEntry{tenant: tenantOf(tenantID), actorID: actorID, kind: eventKind, message: message})
}

func (a *auditRecorder) kinds() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.kind)
	}
	return out
}

type workflowMetricsStub struct {
	submitted   []string
	transitions []models.AuthorizationStatus
}

func (m *workflowMetricsStub) RequestSubmitted(actionKey string) {
	m.submitted = append(m.submitted, actionKey)
}

func (m *workflowMetricsStub) RequestTransitioned(status models.AuthorizationStatus) {
	m.transitions = append(m.transitions, status)
}

func strPtr(v string) *string { return &v }

type authzFixture struct {
	store   *memoryRequestStore
	gate    *gateStub
	audit   *auditRecorder
	metrics *workflowMetricsStub
	svc     *AuthorizationService
	alice   *models.Operator
	bob     *models.Operator
	carol   *models.Operator
}

func newAuthzFixture() *authzFixture {
	tenant := strPtr("company-1")
	f := &authzFixture{
		store:   newMemoryRequestStore(),
		audit:   &auditRecorder{},
		metrics: &workflowMetricsStub{},
		alice:   &models.Operator{ID: "alice", Name: "Alice", Email: "alice@example.com", TenantID: tenant, Role: models.RoleStaff},
		bob:     &models.Operator{ID: "bob", Name: "Bob", Email: "bob@example.com", TenantID: tenant, Role: models.RoleStaff},
		carol:   &models.Operator{ID: "carol", Name: "Carol", Email: "carol@example.com", TenantID: strPtr("company-2"), Role: models.RoleStaff},
	}
	f.gate = &gateStub{approvers: map[string]*models.Operator{"bob@example.com": f.bob, "carol@example.com": f.carol}}
	clock := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.svc = NewAuthorizationService(f.store, NewTicketIssuer(NewMemoryTicketCounter()), f.gate, zap.NewNop(),
		WithAuthorizationAudit(f.audit),
		WithAuthorizationMetrics(f.metrics),
		WithAuthorizationClock(func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		}),
	)
	return f
}

const stockEditLabel = `OP: Edição de Material | CTX: Estoque | DET: Ajuste de cadastro | VAL: R$ 0,00 | REAL_ID: mat-1 | JSON: {"name":"Cobre"}`

func TestAuthorizationServiceSubmitAssignsProtocol(t *testing.T) {
	f := newAuthzFixture()

	req, err := f.svc.Submit(context.Background(), f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00001", req.ProtocolID)
	assert.Equal(t, models.AuthorizationPending, req.Status)
	assert.Equal(t, "alice", req.RequestedByID)
	assert.Nil(t, req.ApprovalCode)
	assert.Equal(t, []string{models.AuditActionRequestCreated}, f.audit.kinds())
	assert.Contains(t, f.audit.entries[0].message, "(PEDIDO REQ-00001)")
	assert.Equal(t, []string{"AUTH_ESTOQUE_EDIT"}, f.metrics.submitted)

	second, err := f.svc.Submit(context.Background(), f.alice.TenantID, "AUTH_ESTOQUE_DELETE", "OP: Exclusão | REAL_ID: mat-2", f.alice)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00002", second.ProtocolID)
}

func TestAuthorizationServiceSubmitRejectsDuplicatePending(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	_, err = f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.bob)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateRequest))

	items, err := f.svc.ListPending(ctx, f.alice, f.alice.TenantID)
	require.NoError(t, err)
	assert.Len(t, items, 1)

	_, err = f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel+" ", f.alice)
	require.NoError(t, err, "labels are compared by exact string equality")
}

func TestAuthorizationServiceSubmitMapsStoreUniqueViolation(t *testing.T) {
	f := newAuthzFixture()
	f.store.createErr = repository.ErrDuplicatePending

	_, err := f.svc.Submit(context.Background(), f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateRequest))
	assert.Empty(t, f.audit.kinds())
}

func TestAuthorizationServiceSubmitReissuesOnProtocolCollision(t *testing.T) {
	f := newAuthzFixture()
	f.store.createErr = repository.ErrProtocolTaken

	req, err := f.svc.Submit(context.Background(), f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)
	assert.Equal(t, "REQ-00002", req.ProtocolID)
	assert.Equal(t, 2, f.store.createCalls)
}

func TestAuthorizationServiceSubmitValidation(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()

	_, err := f.svc.Submit(ctx, f.alice.TenantID, "", stockEditLabel, f.alice)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", "  ", f.alice)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))

	_, err = f.svc.Submit(ctx, f.carol.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestAuthorizationServiceListPendingScopes(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	_, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.carol.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.carol)
	require.NoError(t, err)

	_, err = f.svc.ListPending(ctx, f.alice, nil)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	_, err = f.svc.ListPending(ctx, f.alice, f.carol.TenantID)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))

	admin := &models.Operator{ID: "root", Role: models.RoleSuperAdmin}
	all, err := f.svc.ListPending(ctx, admin, nil)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	own, err := f.svc.ListPending(ctx, f.carol, f.carol.TenantID)
	require.NoError(t, err)
	require.Len(t, own, 1)
	assert.Equal(t, "carol", own[0].RequestedByID)
}

func TestAuthorizationServiceResolveApprove(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, req.ID, ApprovalCredentials{Email: "bob@example.com", Password: "secret"}, models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationApproved, resolved.Status)
	require.NotNil(t, resolved.ApprovalCode)
	assert.Equal(t, "APR-00001", *resolved.ApprovalCode)
	assert.Equal(t, "bob", *resolved.RespondedByID)
	assert.Equal(t, "Bob", *resolved.RespondedByName)
	require.NotNil(t, resolved.RespondedAt)

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationApproved, stored.Status)
	assert.Equal(t, req.ProtocolID, stored.ProtocolID)
	assert.Contains(t, f.audit.kinds(), models.AuditActionRequestApproved)
	assert.Equal(t, []models.AuthorizationStatus{models.AuthorizationApproved}, f.metrics.transitions)
}

func TestAuthorizationServiceResolveDeny(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	resolved, err := f.svc.Resolve(ctx, req.ID, ApprovalCredentials{Email: "bob@example.com", Password: "secret"}, models.DecisionDeny)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationDenied, resolved.Status)
	assert.Nil(t, resolved.ApprovalCode)
	assert.Contains(t, f.audit.kinds(), models.AuditActionRequestDenied)

	_, err = f.svc.MarkProcessed(ctx, req.ID, f.alice)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
}

func TestAuthorizationServiceResolveRejectsBadCredentialsFirst(t *testing.T) {
	f := newAuthzFixture()

	_, err := f.svc.Resolve(context.Background(), "missing", ApprovalCredentials{Email: "bob@example.com", Password: "nope"}, models.DecisionApprove)
	require.Error(t, err)
	assert.True(t, errors.Is(err, appErrors.ErrAuthFailed))
	assert.Empty(t, f.store.transitions)
}

func TestAuthorizationServiceResolveNonPendingLeavesRecord(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)
	creds := ApprovalCredentials{Email: "bob@example.com", Password: "secret"}

	_, err = f.svc.Resolve(ctx, req.ID, creds, models.DecisionDeny)
	require.NoError(t, err)
	before, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, req.ID, creds, models.DecisionApprove)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyResolved))

	after, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	_, err = f.svc.Resolve(ctx, "missing", creds, models.DecisionApprove)
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAuthorizationServiceResolveLostRace(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	racing := &raceStore{memoryRequestStore: f.store, onTransition: func() { f.store.force(req.ID, models.AuthorizationDenied) }}
	svc := NewAuthorizationService(racing, NewTicketIssuer(NewMemoryTicketCounter()), f.gate, nil)

	_, err = svc.Resolve(ctx, req.ID, ApprovalCredentials{Email: "bob@example.com", Password: "secret"}, models.DecisionApprove)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyResolved))
	stored, err := f.store.GetByID(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationDenied, stored.Status)
}

type raceStore struct {
	*memoryRequestStore
	onTransition func()
}

func (r *raceStore) Transition(ctx context.Context, t models.StatusTransition) error {
	if r.onTransition != nil {
		r.onTransition()
	}
	return r.memoryRequestStore.Transition(ctx, t)
}

func TestAuthorizationServiceResolveRequiresSameTenant(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, req.ID, ApprovalCredentials{Email: "carol@example.com", Password: "secret"}, models.DecisionApprove)
	assert.True(t, errors.Is(err, appErrors.ErrAuthFailed))
	assert.Equal(t, []string{"tenant"}, f.gate.rejects)

	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationPending, stored.Status)
}

func TestAuthorizationServiceResolveInvalidDecision(t *testing.T) {
	f := newAuthzFixture()
	_, err := f.svc.Resolve(context.Background(), "id", ApprovalCredentials{}, models.Decision("MAYBE"))
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestAuthorizationServiceMarkProcessed(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	req, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)

	_, err = f.svc.MarkProcessed(ctx, req.ID, f.alice)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden), "pending requests cannot be processed")

	_, err = f.svc.Resolve(ctx, req.ID, ApprovalCredentials{Email: "bob@example.com", Password: "secret"}, models.DecisionApprove)
	require.NoError(t, err)

	_, err = f.svc.MarkProcessed(ctx, req.ID, f.bob)
	assert.True(t, errors.Is(err, appErrors.ErrForbidden))
	stored, err := f.svc.Get(ctx, req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationApproved, stored.Status)

	processed, err := f.svc.MarkProcessed(ctx, req.ID, f.alice)
	require.NoError(t, err)
	assert.Equal(t, models.AuthorizationProcessed, processed.Status)
	require.NotNil(t, processed.ProcessedAt)

	_, err = f.svc.MarkProcessed(ctx, req.ID, f.alice)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyResolved))
	assert.Contains(t, f.audit.kinds(), models.AuditActionRequestProcessed)
}

func TestAuthorizationServiceListForRequester(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	creds := ApprovalCredentials{Email: "bob@example.com", Password: "secret"}

	pending, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_EDIT", stockEditLabel, f.alice)
	require.NoError(t, err)
	approved, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_DELETE", "OP: Exclusão | REAL_ID: mat-2", f.alice)
	require.NoError(t, err)
	denied, err := f.svc.Submit(ctx, f.alice.TenantID, "AUTH_ESTOQUE_DELETE", "OP: Exclusão | REAL_ID: mat-3", f.alice)
	require.NoError(t, err)
	_, err = f.svc.Submit(ctx, f.bob.TenantID, "AUTH_ESTOQUE_DELETE", "OP: Exclusão | REAL_ID: mat-4", f.bob)
	require.NoError(t, err)

	_, err = f.svc.Resolve(ctx, approved.ID, creds, models.DecisionApprove)
	require.NoError(t, err)
	_, err = f.svc.Resolve(ctx, denied.ID, creds, models.DecisionDeny)
	require.NoError(t, err)

	items, err := f.svc.ListForRequester(ctx, f.alice)
	require.NoError(t, err)
	ids := []string{}
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	assert.ElementsMatch(t, []string{pending.ID, approved.ID}, ids)
}

func TestAuthorizationServiceListsReadPastOnePage(t *testing.T) {
	f := newAuthzFixture()
	ctx := context.Background()
	base := time.Date(2024, 4, 1, 8, 0, 0, 0, time.UTC)
	seed := func(n int, status models.AuthorizationStatus, offset int) {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("%s-%03d", status, i)
			f.store.items[id] = models.AuthorizationRequest{
				ID:            id,
				TenantID:      f.alice.TenantID,
				ActionKey:     "AUTH_ESTOQUE_DELETE",
				ActionLabel:   "OP: Exclusão | REAL_ID: " + id,
				Status:        status,
				RequestedByID: f.alice.ID,
				CreatedAt:     base.Add(time.Duration(offset+i) * time.Minute),
			}
		}
	}
	seed(450, models.AuthorizationPending, 0)
	seed(3, models.AuthorizationApproved, 1000)

	deliverable, err := f.svc.ListDeliverable(ctx, f.alice)
	require.NoError(t, err)
	require.Len(t, deliverable, 3)
	for _, item := range deliverable {
		assert.Equal(t, models.AuthorizationApproved, item.Status)
	}

	f.store.listCalls = 0
	pending, err := f.svc.ListPending(ctx, f.alice, f.alice.TenantID)
	require.NoError(t, err)
	assert.Len(t, pending, 450)
	assert.Equal(t, 3, f.store.listCalls)
	assert.Equal(t, "PENDING-000", pending[0].ID)
	assert.Equal(t, "PENDING-449", pending[449].ID)

	own, err := f.svc.ListForRequester(ctx, f.alice)
	require.NoError(t, err)
	assert.Len(t, own, 453)
	assert.Equal(t, "APPROVED-002", own[452].ID)
}
