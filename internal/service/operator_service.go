package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type operatorStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	ListByTenant(ctx context.Context, tenantID string) ([]models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateGrants(ctx context.Context, user *models.User) error
}

// CreateOperatorRequest is the payload for provisioning an operator account.
type CreateOperatorRequest struct {
	TenantID *string         `json:"tenantId"`
	Email    string          `json:"email" validate:"required,email"`
	FullName string          `json:"fullName" validate:"required"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,oneof=SUPER_ADMIN COMPANY_ADMIN STAFF"`
	Profiles []string        `json:"profiles" validate:"required,min=1,dive,required"`
}

// UpdateGrantsRequest replaces an operator's profiles and explicit grants.
type UpdateGrantsRequest struct {
	Profiles             []string `json:"profiles" validate:"required,min=1,dive,required"`
	Permissions          []string `json:"permissions" validate:"dive,required"`
	RemoteAuthorizations []string `json:"remoteAuthorizations" validate:"dive,required"`
}

// OperatorService manages operator accounts and their profile assignments.
// Only tenant-admins and platform-admins may use it; tenant-admins are
// confined to their own tenant.
type OperatorService struct {
	users     operatorStore
	audit     workflowAuditor
	validator *validator.Validate
	logger    *zap.Logger
}

// NewOperatorService constructs the service.
func NewOperatorService(users operatorStore, audit workflowAuditor, validate *validator.Validate, logger *zap.Logger) *OperatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &OperatorService{users: users, audit: audit, validator: validate, logger: logger}
}

// List returns the active operators of a tenant with their resolved grants.
// A nil tenantID means the actor's own tenant.
func (s *OperatorService) List(ctx context.Context, actor *models.Operator, tenantID *string) ([]*models.Operator, error) {
	tenant, err := s.scope(actor, tenantID)
	if err != nil {
		return nil, err
	}
	users, err := s.users.ListByTenant(ctx, tenant)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list operators")
	}
	out := make([]*models.Operator, 0, len(users))
	for i := range users {
		out = append(out, permissions.ResolveOperator(&users[i]))
	}
	return out, nil
}

// Create provisions an operator account.
func (s *OperatorService) Create(ctx context.Context, actor *models.Operator, req CreateOperatorRequest) (*models.Operator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid operator payload")
	}
	if err := knownProfiles(req.Profiles); err != nil {
		return nil, err
	}
	tenant, err := s.scope(actor, req.TenantID)
	if err != nil {
		return nil, err
	}
	if req.Role == models.RoleSuperAdmin && !actor.IsPlatformAdmin() {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only platform administrators may create platform administrators")
	}
	if req.Role != models.RoleSuperAdmin && tenant == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "tenantId is required")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "email already exists")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	user := &models.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: string(hash),
		FullName:     strings.TrimSpace(req.FullName),
		Role:         req.Role,
		Profiles:     append([]string(nil), req.Profiles...),
		Active:       true,
	}
	if tenant != "" {
		user.TenantID = &tenant
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create operator")
	}

	s.logAudit(ctx, user.TenantID, actor, models.AuditActionOperatorCreated,
		fmt.Sprintf("Operador %s (%s) criado por %s", user.FullName, user.Email, actor.Name))
	return permissions.ResolveOperator(user), nil
}

// UpdateGrants replaces the profiles and explicit grants of an operator.
// Other tenants' operators are reported as not found.
func (s *OperatorService) UpdateGrants(ctx context.Context, actor *models.Operator, id string, req UpdateGrantsRequest) (*models.Operator, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid grants payload")
	}
	if err := knownProfiles(req.Profiles); err != nil {
		return nil, err
	}
	if _, err := s.scope(actor, nil); err != nil {
		return nil, err
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "operator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operator")
	}
	if !actor.IsPlatformAdmin() && tenantOf(user.TenantID) != actor.Tenant() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "operator not found")
	}

	user.Profiles = append([]string(nil), req.Profiles...)
	user.Permissions = append([]string(nil), req.Permissions...)
	user.RemoteAuthorizations = append([]string(nil), req.RemoteAuthorizations...)
	if err := s.users.UpdateGrants(ctx, user); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "operator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update operator grants")
	}

	s.logAudit(ctx, user.TenantID, actor, models.AuditActionOperatorGrants,
		fmt.Sprintf("Perfis de %s alterados para %s por %s", user.FullName, strings.Join(user.Profiles, ", "), actor.Name))
	return permissions.ResolveOperator(user), nil
}

// scope returns the tenant the actor may administer.
func (s *OperatorService) scope(actor *models.Operator, requested *string) (string, error) {
	if actor == nil {
		return "", appErrors.ErrUnauthorized
	}
	if actor.IsPlatformAdmin() {
		if requested != nil {
			return *requested, nil
		}
		return actor.Tenant(), nil
	}
	if actor.Role != models.RoleCompanyAdmin {
		return "", appErrors.Clone(appErrors.ErrForbidden, "operator administration requires an administrator")
	}
	if requested != nil && *requested != actor.Tenant() {
		return "", appErrors.Clone(appErrors.ErrForbidden, "cannot administer another tenant")
	}
	return actor.Tenant(), nil
}

func (s *OperatorService) logAudit(ctx context.Context, tenantID *string, actor *models.Operator, kind, message string) {
	if s.audit == nil {
		return
	}
	s.audit.Log(ctx, tenantID, actor.ID, actor.Name, kind, message)
}

func knownProfiles(profiles []string) error {
	known := make(map[string]struct{})
	for _, p := range permissions.Profiles() {
		known[p] = struct{}{}
	}
	for _, p := range profiles {
		if _, ok := known[p]; !ok {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown profile %q", p))
		}
	}
	return nil
}
