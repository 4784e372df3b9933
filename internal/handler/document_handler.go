package handler

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

type documentLister interface {
	List(ctx context.Context, actor *models.Operator, tenantID *string, collection string, match json.RawMessage) ([]models.Document, error)
}

// DocumentHandler lists the records catalogued actions operate on.
type DocumentHandler struct {
	service documentLister
}

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(svc documentLister) *DocumentHandler {
	return &DocumentHandler{service: svc}
}

// List godoc
// @Summary List a collection's records
// @Tags Documents
// @Produce json
// @Param collection path string true "Collection"
// @Param match query string false "JSON object the record body must contain"
// @Param tenantId query string false "Tenant (platform admins only)"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /documents/{collection} [get]
func (h *DocumentHandler) List(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var match json.RawMessage
	if raw := c.Query("match"); raw != "" {
		match = json.RawMessage(raw)
	}
	docs, err := h.service.List(c.Request.Context(), op, tenantParam(c, op.TenantID), c.Param("collection"), match)
	if err != nil {
		response.Error(c, err)
		return
	}
	respond(c, http.StatusOK, docs)
}
