package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/backoffice-authz/internal/models"
	"github.com/noah-isme/backoffice-authz/internal/permissions"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

type credentialUserStub struct {
	users  map[string]*models.User
	err    error
	lookup []string
}

func (s *credentialUserStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	s.lookup = append(s.lookup, email)
	if s.err != nil {
		return nil, s.err
	}
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *credentialUserStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if u, ok := s.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func mustHash(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func newCredentialFixture(t *testing.T) (*CredentialService, *credentialUserStub) {
	t.Helper()
	tenant := "company-1"
	users := &credentialUserStub{users: map[string]*models.User{
		"u-stock": {
			ID:           "u-stock",
			TenantID:     &tenant,
			Email:        "stock@example.com",
			PasswordHash: mustHash(t, "pass-stock"),
			FullName:     "Stock Clerk",
			Role:         models.RoleStaff,
			Profiles:     pq.StringArray{permissions.ProfileEstoque},
			Active:       true,
		},
		"u-manager": {
			ID:                   "u-manager",
			TenantID:             &tenant,
			Email:                "manager@example.com",
			PasswordHash:         mustHash(t, "pass-manager"),
			FullName:             "Manager",
			Role:                 models.RoleStaff,
			Profiles:             pq.StringArray{permissions.ProfileGerente},
			RemoteAuthorizations: pq.StringArray{permissions.AuthBackupRestore},
			Active:               true,
		},
		"u-gone": {
			ID:           "u-gone",
			Email:        "gone@example.com",
			PasswordHash: mustHash(t, "pass-gone"),
			Active:       false,
		},
	}}
	svc := NewCredentialService(users, SuperUserConfig{
		Email:        " Root@Platform.example ",
		PasswordHash: mustHash(t, "root-pass"),
	}, zap.NewNop())
	return svc, users
}

func TestCredentialServiceVerifyResolvesProfiles(t *testing.T) {
	svc, _ := newCredentialFixture(t)

	op, err := svc.Verify(context.Background(), "Manager@Example.com ", "pass-manager")
	require.NoError(t, err)
	assert.Equal(t, "u-manager", op.ID)
	assert.Equal(t, "company-1", op.Tenant())
	assert.True(t, op.HasPermission(permissions.ActionEdit))
	assert.True(t, op.HasRemoteAuthorization(permissions.AuthBackupRestore), "stored grants are added to profile grants")
	assert.False(t, op.SuperUser)
}

func TestCredentialServiceVerifyFailures(t *testing.T) {
	svc, users := newCredentialFixture(t)
	ctx := context.Background()

	_, err := svc.Verify(ctx, "stock@example.com", "wrong")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Verify(ctx, "nobody@example.com", "whatever")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Verify(ctx, "", "")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	_, err = svc.Verify(ctx, "gone@example.com", "pass-gone")
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))

	users.err = errors.New("db down")
	_, err = svc.Verify(ctx, "stock@example.com", "pass-stock")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInternal.Code))
}

func TestCredentialServiceSuperUser(t *testing.T) {
	svc, users := newCredentialFixture(t)
	ctx := context.Background()

	op, err := svc.Verify(ctx, "root@platform.example", "root-pass")
	require.NoError(t, err)
	assert.True(t, op.SuperUser)
	assert.Equal(t, SuperUserID, op.ID)
	assert.Equal(t, models.RoleSuperAdmin, op.Role)
	assert.ElementsMatch(t, permissions.AllPermissions(), op.Permissions)
	assert.Empty(t, users.lookup, "the reserved identity never touches the users table")

	_, err = svc.Verify(ctx, "root@platform.example", "guess")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))

	again, err := svc.Operator(ctx, SuperUserID)
	require.NoError(t, err)
	assert.True(t, again.SuperUser)
}

func TestCredentialServiceSuperUserDisabledWithoutHash(t *testing.T) {
	users := &credentialUserStub{users: map[string]*models.User{}}
	svc := NewCredentialService(users, SuperUserConfig{Email: "root@platform.example"}, nil)

	_, err := svc.Verify(context.Background(), "root@platform.example", "anything")
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
	assert.Equal(t, []string{"root@platform.example"}, users.lookup)
}

func TestCredentialServiceOperator(t *testing.T) {
	svc, _ := newCredentialFixture(t)
	ctx := context.Background()

	op, err := svc.Operator(ctx, "u-stock")
	require.NoError(t, err)
	assert.True(t, op.HasPermission(permissions.StockEdit))
	assert.False(t, op.HasPermission(permissions.ActionEdit))

	_, err = svc.Operator(ctx, "missing")
	assert.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	_, err = svc.Operator(ctx, "u-gone")
	assert.True(t, errors.Is(err, appErrors.ErrInactiveAccount))
}
