package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

// SuperUserID identifies the reserved platform identity in tokens and audit entries.
const SuperUserID = "platform-superuser"

// compared against when the email is unknown so both paths pay for bcrypt
var dummyHash = []byte("$2a$10$7EqJtq98hPqEX7fNZaFWoOhi5BWX4Z3ZbJeYzjhWQbS0A2F7C2mIa")

type credentialUserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// SuperUserConfig configures the reserved platform identity.
type SuperUserConfig struct {
	Email        string
	PasswordHash string
	Name         string
}

// CredentialService verifies email and password pairs and resolves operators.
type CredentialService struct {
	users     credentialUserStore
	superUser SuperUserConfig
	logger    *zap.Logger
}

// NewCredentialService constructs the verifier.
func NewCredentialService(users credentialUserStore, superUser SuperUserConfig, logger *zap.Logger) *CredentialService {
	if logger == nil {
		logger = zap.NewNop()
	}
	superUser.Email = strings.ToLower(strings.TrimSpace(superUser.Email))
	if superUser.Name == "" {
		superUser.Name = "Super Admin"
	}
	return &CredentialService{users: users, superUser: superUser, logger: logger}
}

// Verify checks credentials independently of any session and returns the
// resolved operator.
func (s *CredentialService) Verify(ctx context.Context, email, password string) (*models.Operator, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, appErrors.ErrInvalidCredentials
	}

	if s.isSuperUser(email) {
		if err := bcrypt.CompareHashAndPassword([]byte(s.superUser.PasswordHash), []byte(password)); err != nil {
			return nil, appErrors.ErrInvalidCredentials
		}
		return s.superUserOperator(), nil
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
			return nil, appErrors.ErrInvalidCredentials
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, appErrors.ErrInvalidCredentials
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}
	return permissions.ResolveOperator(user), nil
}

// Operator loads and resolves the operator behind a session.
func (s *CredentialService) Operator(ctx context.Context, userID string) (*models.Operator, error) {
	if userID == SuperUserID && s.superUser.Email != "" {
		return s.superUserOperator(), nil
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrUnauthorized, "operator no longer exists")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operator")
	}
	if !user.Active {
		return nil, appErrors.ErrInactiveAccount
	}
	return permissions.ResolveOperator(user), nil
}

func (s *CredentialService) isSuperUser(email string) bool {
	return s.superUser.Email != "" && s.superUser.PasswordHash != "" && email == s.superUser.Email
}

func (s *CredentialService) superUserOperator() *models.Operator {
	return &models.Operator{
		ID:                   SuperUserID,
		Name:                 s.superUser.Name,
		Email:                s.superUser.Email,
		Role:                 models.RoleSuperAdmin,
		Profiles:             []string{permissions.ProfileMaster},
		Permissions:          permissions.AllPermissions(),
		RemoteAuthorizations: permissions.AllRemoteAuthorizations(),
		SuperUser:            true,
	}
}
