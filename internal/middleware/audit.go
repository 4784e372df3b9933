package middleware

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
)

type requestAuditor interface {
	Log(ctx context.Context, tenantID *string, actorID, actorName, eventKind, message string)
}

// Audit records one audit entry for every successful request on the route.
func Audit(auditor requestAuditor, eventKind string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if auditor == nil || c.Writer.Status() >= 400 {
			return
		}
		op := CurrentOperator(c)
		if op == nil {
			return
		}
		message := fmt.Sprintf("%s %s por %s", c.Request.Method, c.FullPath(), op.Name)
		auditor.Log(c.Request.Context(), op.TenantID, op.ID, op.Name, eventKind, message)
	}
}
