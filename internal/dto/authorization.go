package dto

import (
	"encoding/json"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
)

// MutationRequest is an operator's proposed change routed through the gateway.
type MutationRequest struct {
	ActionKey string `json:"actionKey" binding:"required"`
	RecordID  string `json:"recordId"`
	// Changes carries the edited fields for edits and the full body for inserts.
	Changes json.RawMessage `json:"changes"`
	Detail  string          `json:"detail"`
	Value   string          `json:"value"`
}

// SubmitAuthorizationRequest files a request with a caller-built label.
type SubmitAuthorizationRequest struct {
	TenantID    *string `json:"tenantId"`
	ActionKey   string  `json:"actionKey" binding:"required"`
	ActionLabel string  `json:"actionLabel" binding:"required"`
}

// ResolveAuthorizationRequest carries the approver's own credentials.
type ResolveAuthorizationRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// AuthorizationView is a request with its decoded descriptor and the
// narrative shown to reviewers.
type AuthorizationView struct {
	models.AuthorizationRequest
	Descriptor descriptor.Fields `json:"descriptor"`
	Narrative  string            `json:"narrative"`
}

// NewAuthorizationView decodes req.ActionLabel.
func NewAuthorizationView(req models.AuthorizationRequest) AuthorizationView {
	fields := descriptor.Decode(req.ActionLabel)
	return AuthorizationView{
		AuthorizationRequest: req,
		Descriptor:           fields,
		Narrative:            fields.Narrative(req.ProtocolID, req.RequestedByName),
	}
}

// NewAuthorizationViews decodes every request.
func NewAuthorizationViews(reqs []models.AuthorizationRequest) []AuthorizationView {
	views := make([]AuthorizationView, 0, len(reqs))
	for _, req := range reqs {
		views = append(views, NewAuthorizationView(req))
	}
	return views
}

// DeliveryStatus reports the caller's delivery loop.
type DeliveryStatus struct {
	OperatorID string `json:"operatorId"`
	Active     bool   `json:"active"`
	Changed    bool   `json:"changed"`
}
