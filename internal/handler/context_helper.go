package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/middleware"
	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

func operatorFromContext(c *gin.Context) *models.Operator {
	return middleware.CurrentOperator(c)
}

func respond(c *gin.Context, status int, data interface{}) {
	response.JSON(c, status, data, nil, middleware.ExtractMeta(c))
}

// tenantParam reads the tenantId query parameter. An absent parameter yields
// fallback; an empty one yields nil, meaning platform scope.
func tenantParam(c *gin.Context, fallback *string) *string {
	raw, ok := c.GetQuery("tenantId")
	if !ok {
		return fallback
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	return &raw
}
