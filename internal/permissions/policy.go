package permissions

import (
	"strings"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

// Outcome is the policy verdict for one operator and action.
type Outcome string

const (
	OutcomeDirect           Outcome = "DIRECT"
	OutcomeRequiresApproval Outcome = "REQUIRES_APPROVAL"
	OutcomeDenied           Outcome = "DENIED"
)

// Decision carries the outcome plus the matched action.
type Decision struct {
	Outcome Outcome    `json:"outcome"`
	Action  ActionSpec `json:"action"`
	// Bypassed is set when an administrative identity skipped dual control.
	Bypassed bool   `json:"bypassed,omitempty"`
	Reason   string `json:"reason,omitempty"`
}

// Policy decides whether an operator mutates directly or through a request.
type Policy struct {
	// AdminBypass lets tenant-admins, platform-admins and the reserved
	// super-user mutate gated actions without a request.
	AdminBypass    bool
	SuperUserEmail string
}

// Decide evaluates actionKey for op. Unknown actions are denied.
func (p Policy) Decide(op *models.Operator, actionKey string) Decision {
	spec, ok := Lookup(actionKey)
	if !ok {
		return Decision{Outcome: OutcomeDenied, Action: ActionSpec{Key: actionKey}, Reason: "unknown action"}
	}
	if op == nil {
		return Decision{Outcome: OutcomeDenied, Action: spec, Reason: "no operator"}
	}
	if p.privileged(op) {
		return Decision{Outcome: OutcomeDirect, Action: spec, Bypassed: spec.Gated()}
	}

	if !spec.Gated() {
		if op.HasPermission(spec.Permission) {
			return Decision{Outcome: OutcomeDirect, Action: spec}
		}
		return Decision{Outcome: OutcomeDenied, Action: spec, Reason: "missing permission " + spec.Permission}
	}

	if op.HasPermission(spec.Permission) {
		return Decision{Outcome: OutcomeRequiresApproval, Action: spec}
	}
	for _, auth := range spec.RemoteAuthorizations {
		if op.HasRemoteAuthorization(auth) {
			return Decision{Outcome: OutcomeRequiresApproval, Action: spec}
		}
	}
	return Decision{Outcome: OutcomeDenied, Action: spec, Reason: "action not requestable by operator"}
}

// Privileged reports whether op falls under the administrative bypass.
func (p Policy) Privileged(op *models.Operator) bool {
	return p.privileged(op)
}

func (p Policy) privileged(op *models.Operator) bool {
	if !p.AdminBypass || op == nil {
		return false
	}
	if op.Role.IsAdmin() || op.SuperUser {
		return true
	}
	return p.SuperUserEmail != "" && strings.EqualFold(strings.TrimSpace(op.Email), p.SuperUserEmail)
}
