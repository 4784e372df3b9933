package delivery

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/internal/service"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type approverBook map[string]*models.Operator

func (b approverBook) Verify(ctx context.Context, email, password string) (*models.Operator, error) {
	op, ok := b[email]
	if !ok || password != "secret" {
		return nil, appErrors.ErrInvalidCredentials
	}
	return op, nil
}

type workflow struct {
	docs      *docBook
	store     *requestBook
	authz     *service.AuthorizationService
	mutations *service.MutationService
	loop      *Loop
	clerk     *models.Operator
}

func newWorkflow(t *testing.T) *workflow {
	t.Helper()
	docs := newDocBook()
	docs.put(strPtr("company-1"), permissions.CollectionMaterials, "mat-1", `{"name":"Cobre","current_stock":10}`)

	clerk := &models.Operator{
		ID:                   "clerk",
		Name:                 "Joana",
		TenantID:             strPtr("company-1"),
		Role:                 models.RoleStaff,
		Permissions:          []string{permissions.StockView},
		RemoteAuthorizations: []string{permissions.AuthStockEdit, permissions.AuthPOSManualIn},
	}
	manager := &models.Operator{
		ID:          "manager",
		Name:        "Carlos",
		TenantID:    strPtr("company-1"),
		Role:        models.RoleCompanyAdmin,
		Permissions: []string{permissions.ActionEdit},
	}

	store := newRequestBook()
	gate := service.NewApprovalGate(approverBook{"gerente@example.com": manager}, nil)
	authz := service.NewAuthorizationService(store, service.NewTicketIssuer(service.NewMemoryTicketCounter()), gate, nil)
	mutations := service.NewMutationService(permissions.Policy{}, docs, authz, nil)

	registry, err := RegistryFromCatalog(docs, nil)
	require.NoError(t, err)
	loop, err := NewLoop(Config{}, clerk, authz, registry, nil)
	require.NoError(t, err)

	return &workflow{docs: docs, store: store, authz: authz, mutations: mutations, loop: loop, clerk: clerk}
}

func (w *workflow) requestStockEdit(t *testing.T) *models.AuthorizationRequest {
	t.Helper()
	result, err := w.mutations.Execute(context.Background(), w.clerk, service.MutationCommand{
		ActionKey: permissions.ActionStockEdit,
		RecordID:  "mat-1",
		Changes:   json.RawMessage(`{"current_stock":15}`),
	})
	require.NoError(t, err)
	require.Equal(t, permissions.OutcomeRequiresApproval, result.Outcome)
	return result.Request
}

var managerCreds = service.ApprovalCredentials{Email: "gerente@example.com", Password: "secret"}

func TestApprovedRequestIsAppliedOnce(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	req := w.requestStockEdit(t)
	assert.Equal(t, "REQ-00001", req.ProtocolID)
	assert.Zero(t, w.loop.Tick(ctx).Examined)

	approvedReq, err := w.authz.Resolve(ctx, req.ID, managerCreds, models.DecisionApprove)
	require.NoError(t, err)
	require.NotNil(t, approvedReq.ApprovalCode)
	assert.Equal(t, "APR-00001", *approvedReq.ApprovalCode)

	report := w.loop.Tick(ctx)
	require.NoError(t, report.Err)
	assert.Equal(t, 1, report.Applied)
	assert.Equal(t, models.AuthorizationProcessed, w.store.status(req.ID))

	body, _ := w.docs.body(strPtr("company-1"), permissions.CollectionMaterials, "mat-1")
	assert.JSONEq(t, `{"name":"Cobre","current_stock":15}`, body)

	assert.Zero(t, w.loop.Tick(ctx).Examined)
	_, err = w.authz.MarkProcessed(ctx, req.ID, w.clerk)
	assert.True(t, errors.Is(err, appErrors.ErrAlreadyResolved))
	assert.Equal(t, 1, w.docs.updates)
}

func TestDeniedRequestIsNeverApplied(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	req := w.requestStockEdit(t)
	_, err := w.authz.Resolve(ctx, req.ID, managerCreds, models.DecisionDeny)
	require.NoError(t, err)

	assert.Zero(t, w.loop.Tick(ctx).Examined)
	assert.Equal(t, models.AuthorizationDenied, w.store.status(req.ID))
	body, _ := w.docs.body(strPtr("company-1"), permissions.CollectionMaterials, "mat-1")
	assert.JSONEq(t, `{"name":"Cobre","current_stock":10}`, body)
}

func TestIdenticalPendingRequestIsRejected(t *testing.T) {
	w := newWorkflow(t)
	w.requestStockEdit(t)

	_, err := w.mutations.Execute(context.Background(), w.clerk, service.MutationCommand{
		ActionKey: permissions.ActionStockEdit,
		RecordID:  "mat-1",
		Changes:   json.RawMessage(`{"current_stock":15}`),
	})
	assert.True(t, errors.Is(err, appErrors.ErrDuplicateRequest))
}

func TestWrongApproverPasswordLeavesRequestPending(t *testing.T) {
	w := newWorkflow(t)
	req := w.requestStockEdit(t)

	_, err := w.authz.Resolve(context.Background(), req.ID, service.ApprovalCredentials{Email: "gerente@example.com", Password: "guess"}, models.DecisionApprove)
	assert.True(t, errors.Is(err, appErrors.ErrAuthFailed))
	assert.Equal(t, models.AuthorizationPending, w.store.status(req.ID))
}

func TestApprovedInsertKeepsPreassignedID(t *testing.T) {
	w := newWorkflow(t)
	ctx := context.Background()

	result, err := w.mutations.Execute(ctx, w.clerk, service.MutationCommand{
		ActionKey: permissions.ActionManualEntry,
		Changes:   json.RawMessage(`{"amount":50,"description":"Suprimento"}`),
		Value:     "R$ 50,00",
	})
	require.NoError(t, err)
	require.NotEmpty(t, result.RecordID)

	_, err = w.authz.Resolve(ctx, result.Request.ID, managerCreds, models.DecisionApprove)
	require.NoError(t, err)
	assert.Equal(t, 1, w.loop.Tick(ctx).Applied)

	body, ok := w.docs.body(strPtr("company-1"), permissions.CollectionFinancials, result.RecordID)
	require.True(t, ok)
	assert.JSONEq(t, `{"amount":50,"description":"Suprimento"}`, body)

	registry, err := RegistryFromCatalog(w.docs, nil)
	require.NoError(t, err)
	h, _ := registry.Lookup(permissions.ActionManualEntry)
	stored, err := w.authz.Get(ctx, result.Request.ID)
	require.NoError(t, err)
	require.NoError(t, h.Handle(ctx, Delivery{Request: *stored, Fields: descriptor.Decode(stored.ActionLabel)}))
	assert.Equal(t, 1, w.docs.inserts)
}
