package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mockPool, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mockPool.Close)
	return NewUserRepository(mockPool), mockPool
}

func userRows() *pgxmock.Rows {
	return pgxmock.NewRows([]string{
		"id", "telegram_id", "username", "first_name", "language_code",
		"is_approved", "is_admin", "is_moderator", "created_at", "updated_at",
	})
}

func TestRegisterNewUser(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery("INSERT INTO telegram_users").
		WithArgs(int64(12345), "alice", "Alice", "ru", pgxmock.AnyArg()).
		WillReturnRows(userRows().
			AddRow(int64(1), int64(12345), "alice", "Alice", "ru", false, false, false, now, now))

	user, err := repo.Register(context.Background(), 12345, "alice", "Alice", "ru")
	require.NoError(t, err)

	assert.Equal(t, int64(12345), user.TelegramID)
	assert.Equal(t, "ru", user.LanguageCode)
	assert.False(t, user.IsApproved, "new registrations start unapproved")
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetByTelegramID(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery("SELECT .* FROM telegram_users WHERE telegram_id").
		WithArgs(int64(12345)).
		WillReturnRows(userRows().
			AddRow(int64(1), int64(12345), "alice", "Alice", "tg", true, false, true, now, now))

	user, err := repo.GetByTelegramID(context.Background(), 12345)
	require.NoError(t, err)

	assert.True(t, user.IsApproved)
	assert.True(t, user.CanModerate())
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestGetByTelegramIDNotFound(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectQuery("SELECT .* FROM telegram_users WHERE telegram_id").
		WithArgs(int64(404)).
		WillReturnRows(userRows())

	_, err := repo.GetByTelegramID(context.Background(), 404)
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetLanguage(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("UPDATE telegram_users SET language_code").
		WithArgs("uz", pgxmock.AnyArg(), int64(12345)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetLanguage(context.Background(), 12345, "uz"))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSetLanguageUnknownUser(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("UPDATE telegram_users SET language_code").
		WithArgs("uz", pgxmock.AnyArg(), int64(404)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := repo.SetLanguage(context.Background(), 404, "uz")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestSetApproval(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("UPDATE telegram_users SET is_approved").
		WithArgs(true, pgxmock.AnyArg(), int64(12345)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetApproval(context.Background(), 12345, true))

	mockPool.ExpectExec("UPDATE telegram_users SET is_approved").
		WithArgs(false, pgxmock.AnyArg(), int64(12345)).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	require.NoError(t, repo.SetApproval(context.Background(), 12345, false))
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestSetAdminPropagatesErrors(t *testing.T) {
	repo, mockPool := newMockRepo(t)

	mockPool.ExpectExec("UPDATE telegram_users SET is_admin").
		WithArgs(true, pgxmock.AnyArg(), int64(12345)).
		WillReturnError(errors.New("connection refused"))

	err := repo.SetAdmin(context.Background(), 12345, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestListPending(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery("SELECT .* FROM telegram_users WHERE is_approved = FALSE").
		WithArgs(50).
		WillReturnRows(userRows().
			AddRow(int64(1), int64(100), "first", "First", "tg", false, false, false, now, now).
			AddRow(int64(2), int64(200), "second", "Second", "ru", false, false, false, now, now))

	// A non-positive limit falls back to the default page size.
	users, err := repo.ListPending(context.Background(), 0)
	require.NoError(t, err)

	require.Len(t, users, 2)
	assert.Equal(t, int64(100), users[0].TelegramID)
	assert.Equal(t, int64(200), users[1].TelegramID)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}

func TestListApproved(t *testing.T) {
	repo, mockPool := newMockRepo(t)
	now := time.Now()

	mockPool.ExpectQuery("SELECT .* FROM telegram_users WHERE is_approved = TRUE").
		WillReturnRows(userRows().
			AddRow(int64(1), int64(100), "alice", "Alice", "tg", true, false, false, now, now))

	users, err := repo.ListApproved(context.Background())
	require.NoError(t, err)

	require.Len(t, users, 1)
	assert.True(t, users[0].IsApproved)
	assert.NoError(t, mockPool.ExpectationsWereMet())
}
