package repository

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/parking-space-reservation/internal/utils"
)

func TestUserRepoCreateHashesAndNormalizes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	var storedHash string
	mock.ExpectExec("INSERT INTO users").
		WithArgs("Maya", "maya@example.com", "555-0102", hashCapture{&storedHash}, "CUSTOMER").
		WillReturnResult(sqlmock.NewResult(6, 1))

	id, err := repo.Create(context.Background(), "Maya", "  MAYA@Example.COM ", "555-0102", "s3cret", "CUSTOMER", 4)
	require.NoError(t, err)
	require.Equal(t, uint64(6), id)
	require.True(t, utils.VerifyPassword(storedHash, "s3cret"))
	require.NoError(t, mock.ExpectationsWereMet())
}

// hashCapture matches any string argument and records it so the test
// can verify the bcrypt hash out of band.
type hashCapture struct{ dst *string }

func (h hashCapture) Match(v driver.Value) bool {
	s, ok := v.(string)
	if ok {
		*h.dst = s
	}
	return ok
}

func TestUserRepoCreateDuplicateEmail(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("INSERT INTO users").
		WillReturnError(errors.New("Error 1062 (23000): Duplicate entry 'maya@example.com' for key 'uq_users_email'"))

	_, err := repo.Create(context.Background(), "Maya", "maya@example.com", "", "s3cret", "CUSTOMER", 4)
	require.ErrorIs(t, err, ErrEmailExists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoGetByEmailNormalizes(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	now := time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{
		"id", "name", "email", "phone", "password_hash", "role", "created_at", "updated_at",
	}).AddRow(6, "Maya", "maya@example.com", "", "$2a$04$hash", "CUSTOMER", now, now)

	mock.ExpectQuery("SELECT (.+) FROM users WHERE email").
		WithArgs("maya@example.com").
		WillReturnRows(rows)

	u, err := repo.GetByEmail(context.Background(), " MAYA@example.com ")
	require.NoError(t, err)
	require.Equal(t, uint64(6), u.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoDeleteUnknown(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepo(db)

	mock.ExpectExec("DELETE FROM users WHERE id").
		WithArgs(uint64(42)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.ErrorIs(t, repo.Delete(context.Background(), 42), sql.ErrNoRows)
	require.NoError(t, mock.ExpectationsWereMet())
}
