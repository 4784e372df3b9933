package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/service"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type operatorAdmin interface {
	List(ctx context.Context, actor *models.Operator, tenantID *string) ([]*models.Operator, error)
	Create(ctx context.Context, actor *models.Operator, req service.CreateOperatorRequest) (*models.Operator, error)
	UpdateGrants(ctx context.Context, actor *models.Operator, id string, req service.UpdateGrantsRequest) (*models.Operator, error)
}

// OperatorHandler manages operator accounts and profile assignments.
type OperatorHandler struct {
	service operatorAdmin
}

// NewOperatorHandler constructs the handler.
func NewOperatorHandler(svc operatorAdmin) *OperatorHandler {
	return &OperatorHandler{service: svc}
}

// List godoc
// @Summary List a tenant's operators with resolved grants
// @Tags Operators
// @Produce json
// @Param tenantId query string false "Tenant (platform admins only)"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /operators [get]
func (h *OperatorHandler) List(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	items, err := h.service.List(c.Request.Context(), op, tenantParam(c, nil))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, nil)
}

// Create godoc
// @Summary Provision an operator account
// @Tags Operators
// @Accept json
// @Produce json
// @Param payload body service.CreateOperatorRequest true "Operator payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /operators [post]
func (h *OperatorHandler) Create(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.CreateOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid operator payload"))
		return
	}
	created, err := h.service.Create(c.Request.Context(), op, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// UpdateGrants godoc
// @Summary Replace an operator's profiles and explicit grants
// @Tags Operators
// @Accept json
// @Produce json
// @Param id path string true "Operator ID"
// @Param payload body service.UpdateGrantsRequest true "Grants payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /operators/{id}/grants [put]
func (h *OperatorHandler) UpdateGrants(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req service.UpdateGrantsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid grants payload"))
		return
	}
	updated, err := h.service.UpdateGrants(c.Request.Context(), op, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, updated, nil)
}
