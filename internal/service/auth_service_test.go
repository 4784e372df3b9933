package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-authz/internal/models"
	appErrors "github.com/noah-isme/backoffice-authz/pkg/errors"
)

func newTestAuthService(verifier operatorVerifier, audit workflowAuditor) *AuthService {
	return NewAuthService(verifier, audit, nil, nil, AuthConfig{
		AccessTokenSecret: "test-secret",
		AccessTokenExpiry: time.Hour,
		Issuer:            "backoffice-authz",
	})
}

func TestAuthServiceLoginIssuesToken(t *testing.T) {
	tenant := "company-1"
	op := &models.Operator{ID: "u-1", TenantID: &tenant, Name: "Ana", Email: "ana@example.com", Role: models.RoleStaff}
	audit := &auditRecorder{}
	svc := newTestAuthService(verifierStub{op: op}, audit)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
	assert.Equal(t, int64(3600), resp.ExpiresIn)
	assert.Equal(t, "u-1", resp.Operator.ID)
	assert.Equal(t, []string{models.AuditActionLogin}, audit.kinds())

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "u-1", claims.UserID)
	require.NotNil(t, claims.TenantID)
	assert.Equal(t, "company-1", *claims.TenantID)
	assert.Equal(t, models.RoleStaff, claims.Role)
}

func TestAuthServiceLoginValidation(t *testing.T) {
	svc := newTestAuthService(verifierStub{}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "not-an-email", Password: "pw"})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrValidation.Code))
}

func TestAuthServiceLoginPropagatesVerifierError(t *testing.T) {
	svc := newTestAuthService(verifierStub{err: appErrors.ErrInvalidCredentials}, nil)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "bad"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestAuthServiceValidateTokenRejectsForeignSecret(t *testing.T) {
	op := &models.Operator{ID: "u-1", Email: "ana@example.com"}
	issuer := NewAuthService(verifierStub{op: op}, nil, nil, nil, AuthConfig{AccessTokenSecret: "other"})
	resp, err := issuer.Login(context.Background(), models.LoginRequest{Email: "ana@example.com", Password: "pw"})
	require.NoError(t, err)

	svc := newTestAuthService(verifierStub{}, nil)
	_, err = svc.ValidateToken(resp.AccessToken)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))

	_, err = svc.ValidateToken("garbage")
	assert.True(t, appErrors.HasCode(err, appErrors.ErrUnauthorized.Code))
}
