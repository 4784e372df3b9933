package service

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	"github.com/noah-isme/backoffice-authz/pkg/delta"
	"github.com/noah-isme/backoffice-authz/pkg/descriptor"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type requestSubmitter interface {
	Submit(ctx context.Context, tenantID *string, actionKey, actionLabel string, requester *models.Operator) (*models.AuthorizationRequest, error)
}

type directMutationMetrics interface {
	DirectMutation(actionKey string, bypassed bool)
}

// MutationCommand is an operator's proposed change to one record.
type MutationCommand struct {
	ActionKey string
	RecordID  string
	// Changes is the edited form of the record for merge-patch actions and
	// the full body for inserts. Other kinds ignore it.
	Changes json.RawMessage
	Detail  string
	Value   string
}

// MutationResult reports what happened to a command.
type MutationResult struct {
	Outcome     permissions.Outcome          `json:"outcome"`
	Bypassed    bool                         `json:"bypassed,omitempty"`
	ActionKey   string                       `json:"actionKey"`
	RecordID    string                       `json:"recordId"`
	ActionLabel string                       `json:"actionLabel,omitempty"`
	Request     *models.AuthorizationRequest `json:"request,omitempty"`
	Change      *models.DocumentChange       `json:"change,omitempty"`
}

// MutationService routes operator mutations either straight to the document
// store or through an authorization request.
type MutationService struct {
	policy    permissions.Policy
	docs      DocumentStore
	submitter requestSubmitter
	audit     workflowAuditor
	metrics   directMutationMetrics
	logger    *zap.Logger
}

// MutationServiceOption configures the service.
type MutationServiceOption func(*MutationService)

// WithMutationAudit records direct mutations.
func WithMutationAudit(a workflowAuditor) MutationServiceOption {
	return func(s *MutationService) {
		s.audit = a
	}
}

// WithMutationMetrics counts direct mutations.
func WithMutationMetrics(m directMutationMetrics) MutationServiceOption {
	return func(s *MutationService) {
		s.metrics = m
	}
}

// NewMutationService constructs the service with defaults.
func NewMutationService(policy permissions.Policy, docs DocumentStore, submitter requestSubmitter, logger *zap.Logger, opts ...MutationServiceOption) *MutationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MutationService{
		policy:    policy,
		docs:      docs,
		submitter: submitter,
		logger:    logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Decide exposes the policy verdict without side effects.
func (s *MutationService) Decide(op *models.Operator, actionKey string) permissions.Decision {
	return s.policy.Decide(op, actionKey)
}

// Execute applies cmd directly when the operator may, otherwise files a
// PENDING authorization request carrying the encoded mutation.
func (s *MutationService) Execute(ctx context.Context, op *models.Operator, cmd MutationCommand) (*MutationResult, error) {
	if op == nil {
		return nil, appErrors.ErrUnauthorized
	}
	spec, ok := permissions.Lookup(strings.TrimSpace(cmd.ActionKey))
	if !ok {
		return nil, appErrors.ErrUnknownAction
	}
	decision := s.policy.Decide(op, spec.Key)
	if decision.Outcome == permissions.OutcomeDenied {
		return nil, appErrors.Clone(appErrors.ErrForbidden, decision.Reason)
	}

	planned, err := s.plan(ctx, op, spec, cmd)
	if err != nil {
		return nil, err
	}
	result := &MutationResult{
		Outcome:   decision.Outcome,
		Bypassed:  decision.Bypassed,
		ActionKey: spec.Key,
		RecordID:  planned.RecordID,
	}

	if decision.Outcome == permissions.OutcomeDirect {
		applier, err := ApplierFor(spec, s.docs)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "action has no applier")
		}
		change, err := applier.Apply(ctx, planned)
		if err != nil {
			return nil, err
		}
		result.Change = change
		s.recordDirect(ctx, op, spec, planned, decision.Bypassed)
		return result, nil
	}

	label := descriptor.Encode(s.describe(spec, cmd, planned))
	req, err := s.submitter.Submit(ctx, op.TenantID, spec.Key, label, op)
	if err != nil {
		return nil, err
	}
	result.ActionLabel = label
	result.Request = req
	return result, nil
}

// plan resolves the record and the minimal patch for cmd.
func (s *MutationService) plan(ctx context.Context, op *models.Operator, spec permissions.ActionSpec, cmd MutationCommand) (models.PlannedMutation, error) {
	planned := models.PlannedMutation{
		TenantID:   op.TenantID,
		ActionKey:  spec.Key,
		Collection: spec.Collection,
		RecordID:   strings.TrimSpace(cmd.RecordID),
	}

	if spec.Kind == permissions.KindInsert {
		if planned.RecordID == "" {
			planned.RecordID = uuid.NewString()
		}
		body, err := delta.CanonicalizeJSON(cmd.Changes)
		if err != nil || bytes.Equal(body, []byte("{}")) {
			return planned, appErrors.Clone(appErrors.ErrValidation, "changes must be a non-empty JSON object")
		}
		planned.Patch = body
		return planned, nil
	}

	if planned.RecordID == "" {
		return planned, appErrors.Clone(appErrors.ErrValidation, "recordId is required")
	}
	current, err := s.docs.Get(ctx, op.TenantID, spec.Collection, planned.RecordID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return planned, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("%s record not found", spec.Collection))
		}
		return planned, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load record")
	}

	switch spec.Kind {
	case permissions.KindMergePatch:
		modified, err := delta.Apply(current.Body, cmd.Changes)
		if err != nil {
			return planned, appErrors.Clone(appErrors.ErrValidation, "changes must be a JSON object")
		}
		patch, err := delta.Create(current.Body, modified)
		if err != nil {
			if errors.Is(err, delta.ErrEmpty) {
				return planned, appErrors.ErrNoChanges
			}
			return planned, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to compute changes")
		}
		planned.Patch = patch
	case permissions.KindFixedPatch:
		ops, err := delta.Preview(current.Body, spec.FixedPatch)
		if err != nil {
			return planned, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to preview changes")
		}
		if len(ops) == 0 {
			return planned, appErrors.ErrNoChanges
		}
	}
	return planned, nil
}

// describe builds the reviewer-facing descriptor. Fixed patches and deletes
// carry no delta since their effect is implied by the action key.
func (s *MutationService) describe(spec permissions.ActionSpec, cmd MutationCommand, planned models.PlannedMutation) descriptor.Descriptor {
	d := descriptor.Descriptor{
		Operation: spec.Operation,
		Context:   spec.Context,
		Detail:    strings.TrimSpace(cmd.Detail),
		Value:     strings.TrimSpace(cmd.Value),
		RealID:    planned.RecordID,
	}
	if spec.Kind == permissions.KindMergePatch || spec.Kind == permissions.KindInsert {
		d.Delta = planned.Patch
	}
	return d
}

func (s *MutationService) recordDirect(ctx context.Context, op *models.Operator, spec permissions.ActionSpec, planned models.PlannedMutation, bypassed bool) {
	if s.metrics != nil {
		s.metrics.DirectMutation(spec.Key, bypassed)
	}
	summary := descriptor.Descriptor{Operation: spec.Operation, Context: spec.Context, RealID: planned.RecordID}
	fields := descriptor.Fields{Descriptor: summary}
	kind := models.AuditActionDirectMutation
	message := fmt.Sprintf("%s executada diretamente", fields.Summary())
	if bypassed {
		kind = models.AuditActionDirectMutationBypass
		message = fmt.Sprintf("%s executada sem liberação (Bypass Administrativo)", fields.Summary())
	}
	if s.audit != nil {
		s.audit.Log(ctx, op.TenantID, op.ID, op.Name, kind, message)
	}
	s.logger.Info("direct mutation applied",
		zap.String("action_key", spec.Key),
		zap.String("record_id", planned.RecordID),
		zap.Bool("bypassed", bypassed),
	)
}
