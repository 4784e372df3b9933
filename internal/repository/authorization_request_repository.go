package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

// Constraint names from pkg/database/schema.go.
const (
	pendingUniqueConstraint  = "authorization_requests_pending_uniq"
	protocolUniqueConstraint = "authorization_requests_protocol_uniq"
)

var (
	// ErrDuplicatePending signals an identical PENDING request already exists.
	ErrDuplicatePending = errors.New("repository: identical pending authorization request")
	// ErrProtocolTaken signals a protocol id collision within the tenant.
	ErrProtocolTaken = errors.New("repository: protocol id already used")
)

const authorizationColumns = `id, tenant_id, action_key, action_label, requested_by_id, requested_by_name,
       protocol_id, approval_code, status, created_at, responded_at, responded_by_id, responded_by_name, processed_at`

// AuthorizationRequestRepository persists authorization requests.
type AuthorizationRequestRepository struct {
	db *sqlx.DB
}

// NewAuthorizationRequestRepository constructs the repository.
func NewAuthorizationRequestRepository(db *sqlx.DB) *AuthorizationRequestRepository {
	return &AuthorizationRequestRepository{db: db}
}

// Create inserts a new request row.
func (r *AuthorizationRequestRepository) Create(ctx context.Context, req *models.AuthorizationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.Status == "" {
		req.Status = models.AuthorizationPending
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO authorization_requests
	(id, tenant_id, action_key, action_label, requested_by_id, requested_by_name, protocol_id, approval_code, status,
	 created_at, responded_at, responded_by_id, responded_by_name, processed_at)
	VALUES (:id, :tenant_id, :action_key, :action_label, :requested_by_id, :requested_by_name, :protocol_id, :approval_code, :status,
	 :created_at, :responded_at, :responded_by_id, :responded_by_name, :processed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			switch pqErr.Constraint {
			case pendingUniqueConstraint:
				return ErrDuplicatePending
			case protocolUniqueConstraint:
				return ErrProtocolTaken
			}
		}
		return fmt.Errorf("create authorization request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *AuthorizationRequestRepository) GetByID(ctx context.Context, id string) (*models.AuthorizationRequest, error) {
	query := `SELECT ` + authorizationColumns + ` FROM authorization_requests WHERE id = $1`
	var req models.AuthorizationRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get authorization request: %w", err)
	}
	return &req, nil
}

// FindPending returns the PENDING request matching the triple exactly, or
// sql.ErrNoRows.
func (r *AuthorizationRequestRepository) FindPending(ctx context.Context, tenantID *string, actionKey, actionLabel string) (*models.AuthorizationRequest, error) {
	query := `SELECT ` + authorizationColumns + ` FROM authorization_requests
	WHERE COALESCE(tenant_id, '') = $1 AND action_key = $2 AND action_label = $3 AND status = $4 LIMIT 1`
	var req models.AuthorizationRequest
	if err := r.db.GetContext(ctx, &req, query, tenantKey(tenantID), actionKey, actionLabel, models.AuthorizationPending); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("find pending authorization request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, oldest first.
func (r *AuthorizationRequestRepository) List(ctx context.Context, filter models.AuthorizationFilter) ([]models.AuthorizationRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 6)
	builder.WriteString(`SELECT ` + authorizationColumns + ` FROM authorization_requests`)

	conditions := make([]string, 0, 4)
	switch {
	case filter.AllTenants:
	case filter.TenantID == nil:
		conditions = append(conditions, "tenant_id IS NULL")
	default:
		args = append(args, *filter.TenantID)
		conditions = append(conditions, fmt.Sprintf("tenant_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.RequestedByID != "" {
		args = append(args, filter.RequestedByID)
		conditions = append(conditions, fmt.Sprintf("requested_by_id = $%d", len(args)))
	}
	if filter.ActionKey != "" {
		args = append(args, filter.ActionKey)
		conditions = append(conditions, fmt.Sprintf("action_key = $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at ASC, id ASC")

	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 200
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.AuthorizationRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list authorization requests: %w", err)
	}
	return requests, nil
}

// Transition moves a request from t.From to t.To. It returns sql.ErrNoRows
// when the record is missing or no longer in t.From.
func (r *AuthorizationRequestRepository) Transition(ctx context.Context, t models.StatusTransition) error {
	if !t.From.CanTransitionTo(t.To) {
		return fmt.Errorf("illegal authorization transition %s -> %s", t.From, t.To)
	}
	setParts := []string{"status = :to"}
	if t.ApprovalCode != nil {
		setParts = append(setParts, "approval_code = :approval_code")
	}
	if t.RespondedAt != nil {
		setParts = append(setParts, "responded_at = :responded_at")
	}
	if t.RespondedByID != nil {
		setParts = append(setParts, "responded_by_id = :responded_by_id")
	}
	if t.RespondedByName != nil {
		setParts = append(setParts, "responded_by_name = :responded_by_name")
	}
	if t.ProcessedAt != nil {
		setParts = append(setParts, "processed_at = :processed_at")
	}
	query := fmt.Sprintf("UPDATE authorization_requests SET %s WHERE id = :id AND status = :from", strings.Join(setParts, ", "))
	result, err := r.db.NamedExecContext(ctx, query, map[string]interface{}{
		"id":                t.ID,
		"from":              t.From,
		"to":                t.To,
		"approval_code":     t.ApprovalCode,
		"responded_at":      t.RespondedAt,
		"responded_by_id":   t.RespondedByID,
		"responded_by_name": t.RespondedByName,
		"processed_at":      t.ProcessedAt,
	})
	if err != nil {
		return fmt.Errorf("update authorization status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check authorization update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func tenantKey(tenantID *string) string {
	if tenantID == nil {
		return ""
	}
	return *tenantID
}
