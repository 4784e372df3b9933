package models

import "time"

// Audit event kinds.
const (
	AuditActionLogin                = "LOGIN"
	AuditActionRequestCreated       = "AUTH_REQUEST_CREATED"
	AuditActionRequestApproved      = "AUTH_REQUEST_APPROVED"
	AuditActionRequestDenied        = "AUTH_REQUEST_DENIED"
	AuditActionRequestProcessed     = "AUTH_REQUEST_PROCESSED"
	AuditActionDirectMutationBypass = "DIRECT_MUTATION_BYPASS"
	AuditActionDirectMutation       = "DIRECT_MUTATION"
	AuditActionDeliveryAttached     = "DELIVERY_ATTACHED"
	AuditActionDeliveryDetached     = "DELIVERY_DETACHED"
	AuditActionOperatorCreated      = "OPERATOR_CREATED"
	AuditActionOperatorGrants       = "OPERATOR_GRANTS_CHANGED"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID        string    `db:"id" json:"id"`
	TenantID  *string   `db:"tenant_id" json:"tenantId,omitempty"`
	ActorID   string    `db:"actor_id" json:"actorId"`
	ActorName string    `db:"actor_name" json:"actorName"`
	Action    string    `db:"action" json:"action"`
	Message   string    `db:"message" json:"message"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}
