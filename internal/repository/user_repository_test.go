package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backoffice-authz/internal/models"
)

var userRowColumns = []string{"id", "tenant_id", "email", "password_hash", "full_name", "role", "profiles", "permissions", "remote_authorizations", "active", "created_at", "updated_at"}

func TestFindByEmail(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	now := time.Now()
	rows := sqlmock.NewRows(userRowColumns).
		AddRow("1", "t-1", "gerente@acme.test", "hash", "Gerente", string(models.RoleStaff), "{Gerente}", "{}", "{AUTH_BACKUP_RESTORE}", true, now, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE lower(email) = lower($1) LIMIT 1")).
		WithArgs("Gerente@acme.test").
		WillReturnRows(rows)

	user, err := repo.FindByEmail(context.Background(), "Gerente@acme.test")
	require.NoError(t, err)
	assert.Equal(t, "gerente@acme.test", user.Email)
	assert.Equal(t, pq.StringArray{"Gerente"}, user.Profiles)
	assert.Equal(t, pq.StringArray{"AUTH_BACKUP_RESTORE"}, user.RemoteAuthorizations)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).WithArgs("nope").WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "nope")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec("INSERT INTO users").WillReturnResult(sqlmock.NewResult(1, 1))

	user := &models.User{Email: "x@acme.test", FullName: "X", Role: models.RoleStaff, Profiles: pq.StringArray{"Estoque"}, Active: true}
	require.NoError(t, repo.Create(context.Background(), user))
	assert.NotEmpty(t, user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateGrantsMissingUser(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET profiles = ?")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateGrants(context.Background(), &models.User{ID: "ghost"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}
