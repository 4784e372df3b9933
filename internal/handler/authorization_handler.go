package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/dto"
	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/service"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type authorizationService interface {
	Submit(ctx context.Context, tenantID *string, actionKey, actionLabel string, requester *models.Operator) (*models.AuthorizationRequest, error)
	ListPending(ctx context.Context, actor *models.Operator, tenantID *string) ([]models.AuthorizationRequest, error)
	ListForRequester(ctx context.Context, actor *models.Operator) ([]models.AuthorizationRequest, error)
	Get(ctx context.Context, id string) (*models.AuthorizationRequest, error)
	Resolve(ctx context.Context, requestID string, creds service.ApprovalCredentials, decision models.Decision) (*models.AuthorizationRequest, error)
	MarkProcessed(ctx context.Context, requestID string, actor *models.Operator) (*models.AuthorizationRequest, error)
}

type deliveryTrigger interface {
	Trigger(operatorID string) bool
}

// AuthorizationHandler exposes the authorization request lifecycle.
type AuthorizationHandler struct {
	service   authorizationService
	deliverer deliveryTrigger
}

// NewAuthorizationHandler constructs the handler. deliverer may be nil.
func NewAuthorizationHandler(service authorizationService, deliverer deliveryTrigger) *AuthorizationHandler {
	return &AuthorizationHandler{service: service, deliverer: deliverer}
}

// Submit godoc
// @Summary File an authorization request
// @Tags Authorizations
// @Accept json
// @Produce json
// @Param payload body dto.SubmitAuthorizationRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /authorizations [post]
func (h *AuthorizationHandler) Submit(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.SubmitAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid authorization payload"))
		return
	}
	tenantID := req.TenantID
	if tenantID == nil {
		tenantID = op.TenantID
	}
	created, err := h.service.Submit(c.Request.Context(), tenantID, req.ActionKey, req.ActionLabel, op)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewAuthorizationView(*created))
}

// ListPending godoc
// @Summary List pending requests awaiting review
// @Tags Authorizations
// @Produce json
// @Param tenantId query string false "Tenant; platform admins may omit it to list every tenant"
// @Success 200 {object} response.Envelope
// @Router /authorizations [get]
func (h *AuthorizationHandler) ListPending(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListPending(c.Request.Context(), op, tenantParam(c, op.TenantID))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAuthorizationViews(items), nil)
}

// ListMine godoc
// @Summary List the caller's open and approved requests
// @Tags Authorizations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /authorizations/mine [get]
func (h *AuthorizationHandler) ListMine(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.ListForRequester(c.Request.Context(), op)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAuthorizationViews(items), nil)
}

// Get godoc
// @Summary Get a request with its decoded descriptor and narrative
// @Tags Authorizations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /authorizations/{id} [get]
func (h *AuthorizationHandler) Get(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if !op.IsPlatformAdmin() && req.Tenant() != op.Tenant() {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "authorization request not found"))
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAuthorizationView(*req), nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Description The approver authenticates with their own email and password
// @Tags Authorizations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ResolveAuthorizationRequest true "Approver credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /authorizations/{id}/approve [post]
func (h *AuthorizationHandler) Approve(c *gin.Context) {
	h.resolve(c, models.DecisionApprove)
}

// Deny godoc
// @Summary Deny a pending request
// @Tags Authorizations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ResolveAuthorizationRequest true "Approver credentials"
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /authorizations/{id}/deny [post]
func (h *AuthorizationHandler) Deny(c *gin.Context) {
	h.resolve(c, models.DecisionDeny)
}

func (h *AuthorizationHandler) resolve(c *gin.Context, decision models.Decision) {
	var req dto.ResolveAuthorizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "approver email and password are required"))
		return
	}
	resolved, err := h.service.Resolve(c.Request.Context(), c.Param("id"), service.ApprovalCredentials{
		Email:    req.Email,
		Password: req.Password,
	}, decision)
	if err != nil {
		response.Error(c, err)
		return
	}
	if decision == models.DecisionApprove && h.deliverer != nil {
		h.deliverer.Trigger(resolved.RequestedByID)
	}
	response.JSON(c, http.StatusOK, dto.NewAuthorizationView(*resolved), nil)
}

// MarkProcessed godoc
// @Summary Mark an approved request as applied
// @Description Only the original requester may mark its request processed
// @Tags Authorizations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /authorizations/{id}/processed [post]
func (h *AuthorizationHandler) MarkProcessed(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	processed, err := h.service.MarkProcessed(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.NewAuthorizationView(*processed), nil)
}
