package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/response"
)

// PermissionHandler exposes profile resolution and the action catalogue.
type PermissionHandler struct {
	policy permissions.Policy
}

// NewPermissionHandler constructs the handler.
func NewPermissionHandler(policy permissions.Policy) *PermissionHandler {
	return &PermissionHandler{policy: policy}
}

// Resolve godoc
// @Summary Resolve profiles
// @Description Union of permissions and remote authorizations for the given profiles
// @Tags Permissions
// @Produce json
// @Param profile query []string true "Profile names; repeat or comma separate"
// @Success 200 {object} response.Envelope
// @Router /permissions/resolve [get]
func (h *PermissionHandler) Resolve(c *gin.Context) {
	var profiles []string
	for _, raw := range c.QueryArray("profile") {
		for _, part := range strings.Split(raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				profiles = append(profiles, part)
			}
		}
	}
	if len(profiles) == 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "at least one profile is required"))
		return
	}
	response.JSON(c, http.StatusOK, permissions.Resolve(profiles...), nil)
}

// Me godoc
// @Summary Current operator grants
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions/me [get]
func (h *PermissionHandler) Me(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{
		"profiles":             op.Profiles,
		"permissions":          op.Permissions,
		"remoteAuthorizations": op.RemoteAuthorizations,
		"bypass":               h.policy.Privileged(op),
	}, nil)
}

// Catalog godoc
// @Summary List catalogued actions with the caller's verdict for each
// @Tags Permissions
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /permissions/actions [get]
func (h *PermissionHandler) Catalog(c *gin.Context) {
	op := operatorFromContext(c)
	if op == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	specs := permissions.Catalog()
	out := make([]permissions.Decision, 0, len(specs))
	for _, spec := range specs {
		out = append(out, h.policy.Decide(op, spec.Key))
	}
	response.JSON(c, http.StatusOK, out, nil)
}
