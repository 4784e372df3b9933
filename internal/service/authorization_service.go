package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/repository"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

const (
	protocolAttempts = 3
	// listPageSize is the page the store is read in. Callers always get every row.
	listPageSize = 200
)

type authorizationStore interface {
	Create(ctx context.Context, req *models.AuthorizationRequest) error
	GetByID(ctx context.Context, id string) (*models.AuthorizationRequest, error)
	FindPending(ctx context.Context, tenantID *string, actionKey, actionLabel string) (*models.AuthorizationRequest, error)
	List(ctx context.Context, filter models.AuthorizationFilter) ([]models.AuthorizationRequest, error)
	Transition(ctx context.Context, t models.StatusTransition) error
}

type ticketSource interface {
	Issue(ctx context.Context, tenant, prefix string) (string, error)
}

type approverAuthenticator interface {
	Authenticate(ctx context.Context, email, password, requiredPermission string) (*models.Operator, error)
	Reject(reason string, fields ...zap.Field) error
}

type workflowAuditor interface {
	Log(ctx context.Context, tenantID *string, actorID, actorName, eventKind, message string)
}

type workflowMetrics interface {
	RequestSubmitted(actionKey string)
	RequestTransitioned(status models.AuthorizationStatus)
}

// ApprovalCredentials are the approver's own email and password, checked
// independently of whoever is signed in.
type ApprovalCredentials struct {
	Email    string
	Password string
}

// AuthorizationService manages the lifecycle of authorization requests.
type AuthorizationService struct {
	store   authorizationStore
	tickets ticketSource
	gate    approverAuthenticator
	audit   workflowAuditor
	metrics workflowMetrics
	now     func() time.Time
	logger  *zap.Logger
}

// AuthorizationServiceOption configures optional collaborators.
type AuthorizationServiceOption func(*AuthorizationService)

// WithAuthorizationAudit records lifecycle events.
func WithAuthorizationAudit(a workflowAuditor) AuthorizationServiceOption {
	return func(s *AuthorizationService) {
		s.audit = a
	}
}

// WithAuthorizationMetrics counts submissions and transitions.
func WithAuthorizationMetrics(m workflowMetrics) AuthorizationServiceOption {
	return func(s *AuthorizationService) {
		s.metrics = m
	}
}

// WithAuthorizationClock overrides time.Now.
func WithAuthorizationClock(now func() time.Time) AuthorizationServiceOption {
	return func(s *AuthorizationService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewAuthorizationService constructs the engine.
func NewAuthorizationService(store authorizationStore, tickets ticketSource, gate approverAuthenticator, logger *zap.Logger, opts ...AuthorizationServiceOption) *AuthorizationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuthorizationService{
		store:   store,
		tickets: tickets,
		gate:    gate,
		now:     time.Now,
		logger:  logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// Submit records a PENDING request for actionKey carrying actionLabel.
// An identical pending request yields ErrDuplicateRequest.
func (s *AuthorizationService) Submit(ctx context.Context, tenantID *string, actionKey, actionLabel string, requester *models.Operator) (*models.AuthorizationRequest, error) {
	actionKey = strings.TrimSpace(actionKey)
	if actionKey == "" || strings.TrimSpace(actionLabel) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "actionKey and actionLabel are required")
	}
	if requester == nil || requester.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if !requester.IsPlatformAdmin() && tenantOf(tenantID) != requester.Tenant() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot submit requests for another tenant")
	}

	if _, err := s.store.FindPending(ctx, tenantID, actionKey, actionLabel); err == nil {
		return nil, appErrors.ErrDuplicateRequest
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pending requests")
	}

	req := &models.AuthorizationRequest{
		ID:              uuid.NewString(),
		TenantID:        tenantID,
		ActionKey:       actionKey,
		ActionLabel:     actionLabel,
		RequestedByID:   requester.ID,
		RequestedByName: requester.Name,
		Status:          models.AuthorizationPending,
		CreatedAt:       s.now().UTC(),
	}

	var lastErr error
	for attempt := 0; attempt < protocolAttempts; attempt++ {
		protocol, err := s.tickets.Issue(ctx, tenantOf(tenantID), ProtocolPrefix)
		if err != nil {
			return nil, err
		}
		req.ProtocolID = protocol

		err = s.store.Create(ctx, req)
		switch {
		case err == nil:
			lastErr = nil
		case errors.Is(err, repository.ErrDuplicatePending):
			return nil, appErrors.ErrDuplicateRequest
		case errors.Is(err, repository.ErrProtocolTaken):
			s.logger.Warn("protocol id collision, reissuing", zap.String("protocol_id", protocol))
			lastErr = err
			continue
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create authorization request")
		}
		break
	}
	if lastErr != nil {
		return nil, appErrors.Wrap(lastErr, appErrors.ErrTicketExhausted.Code, appErrors.ErrTicketExhausted.Status, "could not allocate a protocol id")
	}

	if s.metrics != nil {
		s.metrics.RequestSubmitted(actionKey)
	}
	s.logAudit(ctx, tenantID, requester.ID, requester.Name, models.AuditActionRequestCreated,
		fmt.Sprintf("(PEDIDO %s) - SOLICITAÇÃO DE LIBERAÇÃO PARA AÇÃO: %s", req.ProtocolID, strings.ToUpper(descriptor.Decode(actionLabel).Summary())))
	s.logger.Info("authorization request submitted",
		zap.String("request_id", req.ID),
		zap.String("protocol_id", req.ProtocolID),
		zap.String("action_key", actionKey),
	)
	return req, nil
}

// ListPending returns the PENDING requests of tenantID. A nil tenantID lists
// every tenant and is reserved to platform admins.
func (s *AuthorizationService) ListPending(ctx context.Context, actor *models.Operator, tenantID *string) ([]models.AuthorizationRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	filter := models.AuthorizationFilter{Statuses: []models.AuthorizationStatus{models.AuthorizationPending}}
	switch {
	case tenantID == nil:
		if !actor.IsPlatformAdmin() {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "cross-tenant listing requires a platform admin")
		}
		filter.AllTenants = true
	case !actor.IsPlatformAdmin() && *tenantID != actor.Tenant():
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot list another tenant")
	default:
		filter.TenantID = tenantID
	}
	items, err := s.listAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list authorization requests")
	}
	return items, nil
}

// ListForRequester returns the actor's own PENDING and APPROVED requests
// within the actor's tenant.
func (s *AuthorizationService) ListForRequester(ctx context.Context, actor *models.Operator) ([]models.AuthorizationRequest, error) {
	return s.listOwn(ctx, actor, models.AuthorizationPending, models.AuthorizationApproved)
}

// ListDeliverable returns the actor's own APPROVED requests, the ones a
// delivery loop still has to apply.
func (s *AuthorizationService) ListDeliverable(ctx context.Context, actor *models.Operator) ([]models.AuthorizationRequest, error) {
	return s.listOwn(ctx, actor, models.AuthorizationApproved)
}

func (s *AuthorizationService) listOwn(ctx context.Context, actor *models.Operator, statuses ...models.AuthorizationStatus) ([]models.AuthorizationRequest, error) {
	if actor == nil || actor.ID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := s.listAll(ctx, models.AuthorizationFilter{
		TenantID:      actor.TenantID,
		Statuses:      statuses,
		RequestedByID: actor.ID,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requester view")
	}
	return items, nil
}

// listAll reads the store page by page until a short page comes back.
func (s *AuthorizationService) listAll(ctx context.Context, filter models.AuthorizationFilter) ([]models.AuthorizationRequest, error) {
	filter.Limit = listPageSize
	var out []models.AuthorizationRequest
	for offset := 0; ; offset += listPageSize {
		filter.Offset = offset
		page, err := s.store.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		out = append(out, page...)
		if len(page) < listPageSize {
			return out, nil
		}
	}
}

// Get returns one request.
func (s *AuthorizationService) Get(ctx context.Context, id string) (*models.AuthorizationRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "authorization request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authorization request")
	}
	return req, nil
}

// Resolve approves or denies a PENDING request on behalf of the approver
// identified by creds. Credentials are checked before anything else.
func (s *AuthorizationService) Resolve(ctx context.Context, requestID string, creds ApprovalCredentials, decision models.Decision) (*models.AuthorizationRequest, error) {
	if !decision.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "decision must be APPROVE or DENY")
	}
	approver, err := s.gate.Authenticate(ctx, creds.Email, creds.Password, "")
	if err != nil {
		return nil, err
	}

	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.Status != models.AuthorizationPending {
		return nil, appErrors.ErrAlreadyResolved
	}
	if !approver.IsPlatformAdmin() && req.Tenant() != approver.Tenant() {
		return nil, s.gate.Reject("tenant",
			zap.String("approver_id", approver.ID),
			zap.String("request_id", req.ID),
		)
	}

	now := s.now().UTC()
	next := decision.Status()
	transition := models.StatusTransition{
		ID:              req.ID,
		From:            models.AuthorizationPending,
		To:              next,
		RespondedAt:     &now,
		RespondedByID:   &approver.ID,
		RespondedByName: &approver.Name,
	}
	if next == models.AuthorizationApproved {
		code, err := s.tickets.Issue(ctx, req.Tenant(), ApprovalPrefix)
		if err != nil {
			return nil, err
		}
		transition.ApprovalCode = &code
	}

	if err := s.store.Transition(ctx, transition); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyResolved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve authorization request")
	}

	req.Status = next
	req.ApprovalCode = transition.ApprovalCode
	req.RespondedAt = transition.RespondedAt
	req.RespondedByID = transition.RespondedByID
	req.RespondedByName = transition.RespondedByName

	if s.metrics != nil {
		s.metrics.RequestTransitioned(next)
	}
	if next == models.AuthorizationApproved {
		s.logAudit(ctx, req.TenantID, approver.ID, approver.Name, models.AuditActionRequestApproved,
			fmt.Sprintf("[(APROVAÇÃO %s)] CONCEDIDA PARA O (PEDIDO %s). OPERAÇÃO LIBERADA PELO GESTOR %s", *req.ApprovalCode, req.ProtocolID, strings.ToUpper(approver.Name)))
	} else {
		s.logAudit(ctx, req.TenantID, approver.ID, approver.Name, models.AuditActionRequestDenied,
			fmt.Sprintf("LIBERAÇÃO NEGADA PELO GESTOR PARA O (PEDIDO %s)", req.ProtocolID))
	}
	s.logger.Info("authorization request resolved",
		zap.String("request_id", req.ID),
		zap.String("protocol_id", req.ProtocolID),
		zap.String("status", string(next)),
		zap.String("approver_id", approver.ID),
	)
	return req, nil
}

// MarkProcessed retires an APPROVED request once its requester applied it.
func (s *AuthorizationService) MarkProcessed(ctx context.Context, requestID string, actor *models.Operator) (*models.AuthorizationRequest, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.Get(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req.RequestedByID != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may mark a request processed")
	}
	switch req.Status {
	case models.AuthorizationProcessed:
		return nil, appErrors.ErrAlreadyResolved
	case models.AuthorizationApproved:
	default:
		return nil, appErrors.Clone(appErrors.ErrForbidden, fmt.Sprintf("request is %s", req.Status))
	}

	now := s.now().UTC()
	err = s.store.Transition(ctx, models.StatusTransition{
		ID:          req.ID,
		From:        models.AuthorizationApproved,
		To:          models.AuthorizationProcessed,
		ProcessedAt: &now,
	})
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrAlreadyResolved
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark request processed")
	}
	req.Status = models.AuthorizationProcessed
	req.ProcessedAt = &now

	if s.metrics != nil {
		s.metrics.RequestTransitioned(models.AuthorizationProcessed)
	}
	s.logAudit(ctx, req.TenantID, actor.ID, actor.Name, models.AuditActionRequestProcessed,
		fmt.Sprintf("(PEDIDO %s) EXECUTADO: %s", req.ProtocolID, descriptor.Decode(req.ActionLabel).Summary()))
	return req, nil
}

func (s *AuthorizationService) logAudit(ctx context.Context, tenantID *string, actorID, actorName, kind, message string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, tenantID, actorID, actorName, kind, message)
}

func tenantOf(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
