package models

import "time"

// AuthorizationStatus is the lifecycle state of an authorization request.
type AuthorizationStatus string

const (
	AuthorizationPending   AuthorizationStatus = "PENDING"
	AuthorizationApproved  AuthorizationStatus = "APPROVED"
	AuthorizationDenied    AuthorizationStatus = "DENIED"
	AuthorizationProcessed AuthorizationStatus = "PROCESSED"
)

// Terminal reports whether no further transition is allowed.
func (s AuthorizationStatus) Terminal() bool {
	return s == AuthorizationDenied || s == AuthorizationProcessed
}

// CanTransitionTo enforces PENDING -> {APPROVED, DENIED} -> PROCESSED.
func (s AuthorizationStatus) CanTransitionTo(next AuthorizationStatus) bool {
	switch s {
	case AuthorizationPending:
		return next == AuthorizationApproved || next == AuthorizationDenied
	case AuthorizationApproved:
		return next == AuthorizationProcessed
	default:
		return false
	}
}

// Decision is an approver's verdict on a pending request.
type Decision string

const (
	DecisionApprove Decision = "APPROVE"
	DecisionDeny    Decision = "DENY"
)

// Valid reports whether d is a known decision.
func (d Decision) Valid() bool {
	return d == DecisionApprove || d == DecisionDeny
}

// Status maps the decision to the status it produces.
func (d Decision) Status() AuthorizationStatus {
	if d == DecisionApprove {
		return AuthorizationApproved
	}
	return AuthorizationDenied
}

// AuthorizationRequest is one proposed sensitive mutation awaiting or past review.
// ActionLabel is the only copy of the mutation to apply.
type AuthorizationRequest struct {
	ID              string              `db:"id" json:"id"`
	TenantID        *string             `db:"tenant_id" json:"tenantId"`
	ActionKey       string              `db:"action_key" json:"actionKey"`
	ActionLabel     string              `db:"action_label" json:"actionLabel"`
	RequestedByID   string              `db:"requested_by_id" json:"requestedById"`
	RequestedByName string              `db:"requested_by_name" json:"requestedByName"`
	ProtocolID      string              `db:"protocol_id" json:"protocolId"`
	ApprovalCode    *string             `db:"approval_code" json:"approvalCode,omitempty"`
	Status          AuthorizationStatus `db:"status" json:"status"`
	CreatedAt       time.Time           `db:"created_at" json:"createdAt"`
	RespondedAt     *time.Time          `db:"responded_at" json:"respondedAt,omitempty"`
	RespondedByID   *string             `db:"responded_by_id" json:"respondedById,omitempty"`
	RespondedByName *string             `db:"responded_by_name" json:"respondedByName,omitempty"`
	ProcessedAt     *time.Time          `db:"processed_at" json:"processedAt,omitempty"`
}

// Tenant returns the tenant id or the empty string for platform-level requests.
func (r *AuthorizationRequest) Tenant() string {
	if r == nil || r.TenantID == nil {
		return ""
	}
	return *r.TenantID
}

// AuthorizationFilter constrains listing queries. A nil TenantID with
// AllTenants unset matches platform-level requests only.
type AuthorizationFilter struct {
	TenantID      *string
	AllTenants    bool
	Statuses      []AuthorizationStatus
	RequestedByID string
	ActionKey     string
	Limit         int
	Offset        int
}

// StatusTransition describes a guarded status update. The store applies it
// only while the record is still in From.
type StatusTransition struct {
	ID              string
	From            AuthorizationStatus
	To              AuthorizationStatus
	ApprovalCode    *string
	RespondedAt     *time.Time
	RespondedByID   *string
	RespondedByName *string
	ProcessedAt     *time.Time
}
