package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type auditTrail interface {
	Recent(ctx context.Context, actor *models.Operator, tenantID *string, limit int) ([]models.AuditLog, error)
}

// AuditHandler exposes the workflow audit trail.
type AuditHandler struct {
	trail auditTrail
}

// NewAuditHandler constructs the handler.
func NewAuditHandler(trail auditTrail) *AuditHandler {
	return &AuditHandler{trail: trail}
}

// Recent godoc
// @Summary Latest audit entries of a tenant
// @Tags Audit
// @Produce json
// @Param tenantId query string false "Tenant; platform admins pass an empty value for platform entries"
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {object} response.Envelope
// @Router /audit-logs [get]
func (h *AuditHandler) Recent(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}
	logs, err := h.trail.Recent(c.Request.Context(), op, tenantParam(c, op.TenantID), limit)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, nil)
}
