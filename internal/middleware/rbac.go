package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

// RBAC enforces role-based access control for routes. Platform admins pass
// every check.
func RBAC(allowed ...string) gin.HandlerFunc {
	allowedRoles := make(map[models.UserRole]struct{}, len(allowed))
	for _, a := range allowed {
		allowedRoles[models.UserRole(a)] = struct{}{}
	}
	return func(c *gin.Context) {
		op := CurrentOperator(c)
		if op == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if op.IsPlatformAdmin() {
			c.Next()
			return
		}
		if _, ok := allowedRoles[op.Role]; ok {
			c.Next()
			return
		}
		response.Error(c, appErrors.ErrForbidden)
		c.Abort()
	}
}

// RequireRoles is a helper that accepts a list of roles.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make([]string, len(roles))
	for i, r := range roles {
		allowed[i] = string(r)
	}
	return RBAC(allowed...)
}

// RequirePermission admits operators holding any of the given permissions.
func RequirePermission(perms ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		op := CurrentOperator(c)
		if op == nil {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if op.IsPlatformAdmin() {
			c.Next()
			return
		}
		for _, p := range perms {
			if op.HasPermission(p) {
				c.Next()
				return
			}
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "missing permission"))
		c.Abort()
	}
}
