package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

// Context keys.
const (
	ContextUserKey     = "currentUser"
	ContextOperatorKey = "currentOperator"
)

type tokenValidator interface {
	ValidateToken(token string) (*models.JWTClaims, error)
}

type operatorLoader interface {
	Operator(ctx context.Context, userID string) (*models.Operator, error)
}

// JWT protects routes by requiring a valid access token. The operator is
// reloaded on every request so revoked or deactivated users lose access
// before their token expires.
func JWT(tokens tokenValidator, operators operatorLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			response.Error(c, appErrors.Clone(appErrors.ErrUnauthorized, "invalid authorization header"))
			c.Abort()
			return
		}

		claims, err := tokens.ValidateToken(parts[1])
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		op, err := operators.Operator(c.Request.Context(), claims.UserID)
		if err != nil {
			response.Error(c, err)
			c.Abort()
			return
		}

		c.Set(ContextUserKey, claims)
		c.Set(ContextOperatorKey, op)
		c.Next()
	}
}

// CurrentOperator returns the operator attached by JWT.
func CurrentOperator(c *gin.Context) *models.Operator {
	value, exists := c.Get(ContextOperatorKey)
	if !exists {
		return nil
	}
	op, _ := value.(*models.Operator)
	return op
}
