package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
	"github.com/noah-isme/backoffice-authz/pkg/jobs"
	"github.com/noah-isme/backoffice-authz/pkg/middleware/requestid"
)

const auditJobType = "audit_log"

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

type auditReader interface {
	ListByTenant(ctx context.Context, tenantID *string, limit int) ([]models.AuditLog, error)
}

type auditDispatcher interface {
	TryEnqueue(job jobs.Job) error
}

// AuditService records workflow events. Logging never fails the caller.
type AuditService struct {
	store  auditLogger
	reader auditReader
	queue  auditDispatcher
	logger *zap.Logger
}

// AuditServiceOption customises the audit service.
type AuditServiceOption func(*AuditService)

// WithAuditReader enables Recent.
func WithAuditReader(r auditReader) AuditServiceOption {
	return func(s *AuditService) {
		s.reader = r
	}
}

// NewAuditService constructs the service. Without a queue entries are
// written inline.
func NewAuditService(store auditLogger, logger *zap.Logger, opts ...AuditServiceOption) *AuditService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &AuditService{store: store, logger: logger}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttachQueue routes entries through a background queue whose handler is Handle.
func (s *AuditService) AttachQueue(queue auditDispatcher) {
	s.queue = queue
}

// Log records one event, fire-and-forget.
func (s *AuditService) Log(ctx context.Context, tenantID *string, actorID, actorName, eventKind, message string) {
	if s == nil || s.store == nil {
		return
	}
	entry := &models.AuditLog{
		ID:        uuid.NewString(),
		TenantID:  tenantID,
		ActorID:   actorID,
		ActorName: actorName,
		Action:    eventKind,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}
	if s.queue != nil {
		err := s.queue.TryEnqueue(jobs.Job{ID: entry.ID, Type: auditJobType, Payload: entry})
		if err == nil {
			return
		}
		if !errors.Is(err, jobs.ErrQueueFull) {
			s.logger.Debug("audit queue unavailable, writing inline", zap.Error(err))
		} else {
			s.logger.Warn("audit queue full, writing inline", zap.String("action", eventKind))
		}
	}
	if err := s.store.CreateAuditLog(context.WithoutCancel(ctx), entry); err != nil {
		s.logger.Warn("failed to persist audit log",
			zap.String("action", eventKind),
			zap.String("http_request_id", requestid.FromContext(ctx)),
			zap.Error(err))
	}
}

// Handle is the queue handler persisting a queued entry.
func (s *AuditService) Handle(ctx context.Context, job jobs.Job) error {
	entry, ok := job.Payload.(*models.AuditLog)
	if !ok || entry == nil {
		return fmt.Errorf("audit job %s: unexpected payload %T", job.ID, job.Payload)
	}
	return s.store.CreateAuditLog(ctx, entry)
}

// Recent returns the newest entries of a tenant. Platform-admins may read any
// tenant, or platform-level entries with a nil tenantID; everyone else reads
// their own tenant.
func (s *AuditService) Recent(ctx context.Context, actor *models.Operator, tenantID *string, limit int) ([]models.AuditLog, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if s.reader == nil {
		return nil, appErrors.Clone(appErrors.ErrInternal, "audit trail is not readable")
	}
	scope := actor.TenantID
	if actor.IsPlatformAdmin() {
		scope = tenantID
	} else if tenantID != nil && *tenantID != actor.Tenant() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "cannot read another tenant's audit trail")
	}
	logs, err := s.reader.ListByTenant(ctx, scope, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list audit logs")
	}
	return logs, nil
}
