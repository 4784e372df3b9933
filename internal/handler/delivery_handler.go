package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/dto"
	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type deliveryManager interface {
	Attach(op *models.Operator) (bool, error)
	Detach(operatorID string) bool
	Trigger(operatorID string) bool
	Active(operatorID string) bool
}

// DeliveryHandler controls the caller's server-side delivery loop.
type DeliveryHandler struct {
	manager deliveryManager
}

// NewDeliveryHandler constructs the handler.
func NewDeliveryHandler(manager deliveryManager) *DeliveryHandler {
	return &DeliveryHandler{manager: manager}
}

// Status godoc
// @Summary Report whether the caller's delivery loop runs
// @Tags Deliveries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deliveries [get]
func (h *DeliveryHandler) Status(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeliveryStatus{OperatorID: op.ID, Active: h.manager.Active(op.ID)}, nil)
}

// Attach godoc
// @Summary Start delivering the caller's approved requests
// @Tags Deliveries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deliveries [post]
func (h *DeliveryHandler) Attach(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	started, err := h.manager.Attach(op)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to start delivery loop"))
		return
	}
	response.JSON(c, http.StatusOK, dto.DeliveryStatus{OperatorID: op.ID, Active: true, Changed: started}, nil)
}

// Detach godoc
// @Summary Stop the caller's delivery loop
// @Tags Deliveries
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /deliveries [delete]
func (h *DeliveryHandler) Detach(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	stopped := h.manager.Detach(op.ID)
	response.JSON(c, http.StatusOK, dto.DeliveryStatus{OperatorID: op.ID, Active: false, Changed: stopped}, nil)
}

// Trigger godoc
// @Summary Run the caller's delivery loop now
// @Tags Deliveries
// @Produce json
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /deliveries/trigger [post]
func (h *DeliveryHandler) Trigger(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	if !h.manager.Trigger(op.ID) {
		response.Error(c, appErrors.Clone(appErrors.ErrNotFound, "no delivery loop attached"))
		return
	}
	response.JSON(c, http.StatusAccepted, dto.DeliveryStatus{OperatorID: op.ID, Active: true}, nil)
}
