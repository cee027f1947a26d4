package repository_test

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"session-web-server/config"
	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTokenRepository(t *testing.T) (*repository.TokenRepository, sqlmock.Sqlmock) {
	t.Helper()

	db, dbMock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	database := &config.Database{DB: sqlx.NewDb(db, "sqlmock")}
	return repository.NewTokenRepository(database), dbMock
}

func testToken(jti string) *model.SessionToken {
	return &model.SessionToken{
		JTI:       jti,
		TokenType: model.TokenTypeRefresh,
		UserUUID:  "u1",
		DeviceID:  "d1",
		UserAgent: "agent",
		IpAddress: "192.0.2.1",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

// 1. Успешная вставка строки токена
func TestSaveToken_OK(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO session_tokens`)).
		WithArgs("jti-1", model.TokenTypeRefresh, "u1", "d1", "agent", "192.0.2.1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := repo.SaveToken(context.Background(), repo.DB, testToken("jti-1"))

	require.NoError(t, err)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 2. Дубликат jti транслируется в ошибку целостности
func TestSaveToken_DuplicateJTI(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO session_tokens`)).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.SaveToken(context.Background(), repo.DB, testToken("jti-1"))

	assert.True(t, errors.Is(err, autherr.ErrIntegrityViolation))
}

// 3. Отсутствие строки — не ошибка хранилища
func TestFindByJTI_NoRows(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT jti, token_type, user_uuid`)).
		WithArgs("jti-missing").
		WillReturnRows(sqlmock.NewRows([]string{"jti"}))

	token, err := repo.FindByJTI(context.Background(), "jti-missing")

	require.NoError(t, err)
	assert.Nil(t, token)
}

// 4. Найденная строка возвращается со всеми полями отзыва
func TestFindByJTI_Found(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"jti", "token_type", "user_uuid", "device_id", "user_agent", "ip_address",
		"is_revoked", "revoked_by", "revoked_reason", "revoked_at", "created_at", "expires_at",
	}).AddRow("jti-1", "REFRESH", "u1", "d1", "agent", "192.0.2.1",
		true, "u1", model.RevokeReasonRotated, now, now.Add(-time.Hour), now.Add(time.Hour))

	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT jti, token_type, user_uuid`)).
		WithArgs("jti-1").
		WillReturnRows(rows)

	token, err := repo.FindByJTI(context.Background(), "jti-1")

	require.NoError(t, err)
	require.NotNil(t, token)
	assert.Equal(t, model.TokenTypeRefresh, token.TokenType)
	assert.True(t, token.IsRevoked)
	require.NotNil(t, token.RevokedReason)
	assert.Equal(t, model.RevokeReasonRotated, *token.RevokedReason)
}

// 5. Первый отзыв: живая строка обновлена, журнал записан, возвращается true
func TestRevokeByJTI_FirstRevoke(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT user_uuid FROM session_tokens WHERE jti = $1`)).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_uuid"}).AddRow("u1"))
	dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE session_tokens`)).
		WithArgs("jti-1", nil, model.RevokeReasonRotated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revoked_tokens`)).
		WithArgs("jti-1", "u1", nil, model.RevokeReasonRotated, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectCommit()

	revoked, err := repo.RevokeByJTI(context.Background(), "jti-1", nil, model.RevokeReasonRotated)

	require.NoError(t, err)
	assert.True(t, revoked)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 6. Повторный отзыв: живая строка не меняется, но запись журнала
// делается все равно, возвращается false
func TestRevokeByJTI_AlreadyRevoked(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	actor := "u1"
	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT user_uuid FROM session_tokens WHERE jti = $1`)).
		WithArgs("jti-1").
		WillReturnRows(sqlmock.NewRows([]string{"user_uuid"}).AddRow("u1"))
	dbMock.ExpectExec(regexp.QuoteMeta(`UPDATE session_tokens`)).
		WithArgs("jti-1", &actor, model.RevokeReasonLogout, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))
	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revoked_tokens`)).
		WithArgs("jti-1", "u1", &actor, model.RevokeReasonLogout, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectCommit()

	revoked, err := repo.RevokeByJTI(context.Background(), "jti-1", &actor, model.RevokeReasonLogout)

	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 7. Отзыв неизвестного jti: ни изменения строк, ни записи журнала —
// владелец неизвестен, пустая запись журнала бесполезна
func TestRevokeByJTI_UnknownJTI(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT user_uuid FROM session_tokens WHERE jti = $1`)).
		WithArgs("jti-ghost").
		WillReturnRows(sqlmock.NewRows([]string{"user_uuid"}))
	dbMock.ExpectRollback()

	revoked, err := repo.RevokeByJTI(context.Background(), "jti-ghost", nil, model.RevokeReasonLogout)

	require.NoError(t, err)
	assert.False(t, revoked)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 8. Массовый отзыв: по записи журнала на каждый отозванный токен
func TestRevokeAllUserRefresh(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`UPDATE session_tokens`)).
		WithArgs("u1", nil, model.RevokeReasonReuseDetected, sqlmock.AnyArg(), model.TokenTypeRefresh).
		WillReturnRows(sqlmock.NewRows([]string{"jti"}).AddRow("jti-1").AddRow("jti-2"))
	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revoked_tokens`)).
		WithArgs("jti-1", "u1", nil, model.RevokeReasonReuseDetected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	dbMock.ExpectExec(regexp.QuoteMeta(`INSERT INTO revoked_tokens`)).
		WithArgs("jti-2", "u1", nil, model.RevokeReasonReuseDetected, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(2, 1))
	dbMock.ExpectCommit()

	count, err := repo.RevokeAllUserRefresh(context.Background(), "u1", nil, model.RevokeReasonReuseDetected)

	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 9. Массовый отзыв без живых токенов: ноль строк, журнал пуст
func TestRevokeAllUserRefresh_NothingLive(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	dbMock.ExpectBegin()
	dbMock.ExpectQuery(regexp.QuoteMeta(`UPDATE session_tokens`)).
		WithArgs("u1", nil, model.RevokeReasonLogoutAll, sqlmock.AnyArg(), model.TokenTypeRefresh).
		WillReturnRows(sqlmock.NewRows([]string{"jti"}))
	dbMock.ExpectCommit()

	count, err := repo.RevokeAllUserRefresh(context.Background(), "u1", nil, model.RevokeReasonLogoutAll)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.NoError(t, dbMock.ExpectationsWereMet())
}

// 10. Список сессий пользователя: новые первыми
func TestListUserSessions(t *testing.T) {
	repo, dbMock := newTokenRepository(t)

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"jti", "token_type", "user_uuid", "device_id", "user_agent", "ip_address",
		"is_revoked", "revoked_by", "revoked_reason", "revoked_at", "created_at", "expires_at",
	}).AddRow("jti-2", "REFRESH", "u1", "d2", "agent", "192.0.2.2",
		false, nil, nil, nil, now, now.Add(time.Hour)).
		AddRow("jti-1", "REFRESH", "u1", "d1", "agent", "192.0.2.1",
			false, nil, nil, nil, now.Add(-time.Hour), now.Add(time.Hour))

	dbMock.ExpectQuery(regexp.QuoteMeta(`SELECT jti, token_type, user_uuid`)).
		WithArgs("u1").
		WillReturnRows(rows)

	tokens, err := repo.ListUserSessions(context.Background(), "u1")

	require.NoError(t, err)
	require.Len(t, tokens, 2)
	assert.Equal(t, "jti-2", tokens[0].JTI)
}
