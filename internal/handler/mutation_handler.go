package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/dto"
	"github.com/noah-isme/backoffice-authz/internal/middleware"
	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/internal/service"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type mutationGateway interface {
	Execute(ctx context.Context, op *models.Operator, cmd service.MutationCommand) (*service.MutationResult, error)
}

// MutationHandler exposes the mutation gateway.
type MutationHandler struct {
	service mutationGateway
}

// NewMutationHandler constructs the handler.
func NewMutationHandler(service mutationGateway) *MutationHandler {
	return &MutationHandler{service: service}
}

// Execute godoc
// @Summary Apply or request a mutation
// @Description Applies the change directly when the operator may, otherwise files a pending authorization request
// @Tags Mutations
// @Accept json
// @Produce json
// @Param payload body dto.MutationRequest true "Mutation payload"
// @Success 200 {object} response.Envelope "Applied directly"
// @Success 202 {object} response.Envelope "Awaiting approval"
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /mutations [post]
func (h *MutationHandler) Execute(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "mutation service not configured"))
		return
	}
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.MutationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid mutation payload"))
		return
	}
	result, err := h.service.Execute(c.Request.Context(), op, service.MutationCommand{
		ActionKey: req.ActionKey,
		RecordID:  req.RecordID,
		Changes:   req.Changes,
		Detail:    req.Detail,
		Value:     req.Value,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "outcome", result.Outcome)
	status := http.StatusOK
	if result.Outcome == permissions.OutcomeRequiresApproval {
		status = http.StatusAccepted
	}
	respond(c, status, result)
}
