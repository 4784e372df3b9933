package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type credentialVerifier interface {
	Verify(ctx context.Context, email, password string) (*models.Operator, error)
}

type gateMetrics interface {
	GateFailure()
}

// ApprovalGate authenticates approvers with their own credentials, outside
// of the session that shows the request.
type ApprovalGate struct {
	verifier           credentialVerifier
	requiredPermission string
	metrics            gateMetrics
	logger             *zap.Logger
}

// ApprovalGateOption configures the gate.
type ApprovalGateOption func(*ApprovalGate)

// WithRequiredPermission overrides the default approval permission.
func WithRequiredPermission(permission string) ApprovalGateOption {
	return func(g *ApprovalGate) {
		if permission != "" {
			g.requiredPermission = permission
		}
	}
}

// WithGateMetrics records rejected attempts.
func WithGateMetrics(m gateMetrics) ApprovalGateOption {
	return func(g *ApprovalGate) {
		g.metrics = m
	}
}

// NewApprovalGate constructs the gate.
func NewApprovalGate(verifier credentialVerifier, logger *zap.Logger, opts ...ApprovalGateOption) *ApprovalGate {
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &ApprovalGate{verifier: verifier, requiredPermission: permissions.ActionEdit, logger: logger}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// RequiredPermission returns the default permission demanded of approvers.
func (g *ApprovalGate) RequiredPermission() string {
	return g.requiredPermission
}

// Authenticate returns the approver or ErrAuthFailed. An empty
// requiredPermission uses the gate default.
func (g *ApprovalGate) Authenticate(ctx context.Context, email, password, requiredPermission string) (*models.Operator, error) {
	if requiredPermission == "" {
		requiredPermission = g.requiredPermission
	}
	op, err := g.verifier.Verify(ctx, email, password)
	if err != nil {
		return nil, g.reject("credentials", err)
	}
	if !op.HasPermission(requiredPermission) {
		return nil, g.reject("permission", nil, zap.String("approver_id", op.ID), zap.String("required", requiredPermission))
	}
	return op, nil
}

// Reject records a gate failure discovered after authentication.
func (g *ApprovalGate) Reject(reason string, fields ...zap.Field) error {
	return g.reject(reason, nil, fields...)
}

func (g *ApprovalGate) reject(reason string, cause error, fields ...zap.Field) error {
	if g.metrics != nil {
		g.metrics.GateFailure()
	}
	fields = append(fields, zap.String("reason", reason))
	if cause != nil {
		fields = append(fields, zap.Error(cause))
	}
	g.logger.Debug("approval gate rejected", fields...)
	return appErrors.ErrAuthFailed
}
