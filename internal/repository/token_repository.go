package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"session-web-server/config"
	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

const pqUniqueViolation = "23505"

type TokenRepository struct {
	*config.Database
}

func NewTokenRepository(database *config.Database) *TokenRepository {
	return &TokenRepository{database}
}

// SaveToken сохраняет строку выпущенного токена.
// exec передается снаружи, чтобы вызывающий мог положить обе строки пары
// в одну транзакцию. Дубликат jti — фатальная ошибка целостности, такого
// не бывает при исправной генерации идентификаторов.
func (r *TokenRepository) SaveToken(ctx context.Context, exec sqlx.ExtContext, token *model.SessionToken) error {
	query := `INSERT INTO session_tokens (jti, token_type, user_uuid, device_id, user_agent, ip_address, expires_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := exec.ExecContext(ctx, query,
		token.JTI,
		token.TokenType,
		token.UserUUID,
		token.DeviceID,
		token.UserAgent,
		token.IpAddress,
		token.ExpiresAt,
	)

	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == pqUniqueViolation {
			return util.LogError(fmt.Sprintf("[TokenRepo] дубликат jti %s", token.JTI), autherr.ErrIntegrityViolation)
		}
		return util.LogError("[TokenRepo] ошибка вставки данных в БД", err)
	}

	return nil
}

// FindByJTI ищет строку токена.
// Возвращает (nil, nil), если строки нет — отсутствие строки не ошибка
// хранилища, решение принимает сервис.
func (r *TokenRepository) FindByJTI(ctx context.Context, jti string) (*model.SessionToken, error) {
	query := `SELECT jti, token_type, user_uuid, device_id, user_agent, ip_address,
				is_revoked, revoked_by, revoked_reason, revoked_at, created_at, expires_at
				FROM session_tokens WHERE jti = $1`

	token := &model.SessionToken{}
	err := sqlx.GetContext(ctx, r.DB, token, query, jti)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, util.LogError("[TokenRepo] ошибка при выполнении запроса", err)
	}

	return token, nil
}

// RevokeByJTI отзывает один токен. Идемпотентен: возвращает true только
// если переход is_revoked false -> true выполнил именно этот вызов.
// Запись в журнал revoked_tokens делается на каждый вызов по существующему
// токену, даже повторный, в одной транзакции с изменением живой строки.
// Для jti без строки журнал не пишется: владелец неизвестен.
func (r *TokenRepository) RevokeByJTI(ctx context.Context, jti string, revokedBy *string, reason string) (bool, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return false, util.LogError("[TokenRepo] не удалось открыть транзакцию", err)
	}
	defer tx.Rollback()

	var userUUID string
	err = tx.QueryRowxContext(ctx, `SELECT user_uuid FROM session_tokens WHERE jti = $1`, jti).Scan(&userUUID)
	if errors.Is(err, sql.ErrNoRows) {
		// неизвестный jti: отзывать нечего, и запись журнала без
		// владельца не имеет смысла
		return false, nil
	}
	if err != nil {
		return false, util.LogError("[TokenRepo] ошибка поиска владельца токена", err)
	}

	result, err := tx.ExecContext(ctx,
		`UPDATE session_tokens
			SET is_revoked = TRUE, revoked_by = $2, revoked_reason = $3, revoked_at = $4
			WHERE jti = $1 AND is_revoked = FALSE`,
		jti, revokedBy, reason, time.Now().UTC(),
	)
	if err != nil {
		return false, util.LogError("[TokenRepo] не удалось отозвать токен", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, util.LogError("[TokenRepo] не удалось проверить, отозван ли токен", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO revoked_tokens (jti, user_uuid, revoked_by, reason, revoked_at) VALUES ($1, $2, $3, $4, $5)`,
		jti, userUUID, revokedBy, reason, time.Now().UTC(),
	)
	if err != nil {
		return false, util.LogError("[TokenRepo] не удалось записать журнал отзыва", err)
	}

	if err := tx.Commit(); err != nil {
		return false, util.LogError("[TokenRepo] не удалось зафиксировать транзакцию", err)
	}

	return rowsAffected > 0, nil
}

// RevokeAllUserRefresh отзывает все живые refresh-токены пользователя и
// пишет по записи журнала на каждый. Возвращает число отозванных строк.
// Это примитив массовой инвалидации для reuse detection и logout-all.
func (r *TokenRepository) RevokeAllUserRefresh(ctx context.Context, userUUID string, revokedBy *string, reason string) (int, error) {
	tx, err := r.DB.BeginTxx(ctx, nil)
	if err != nil {
		return 0, util.LogError("[TokenRepo] не удалось открыть транзакцию", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()

	rows, err := tx.QueryxContext(ctx,
		`UPDATE session_tokens
			SET is_revoked = TRUE, revoked_by = $2, revoked_reason = $3, revoked_at = $4
			WHERE user_uuid = $1 AND token_type = $5 AND is_revoked = FALSE
			RETURNING jti`,
		userUUID, revokedBy, reason, now, model.TokenTypeRefresh,
	)
	if err != nil {
		return 0, util.LogError("[TokenRepo] не удалось отозвать токены пользователя", err)
	}

	var jtis []string
	for rows.Next() {
		var jti string
		if err := rows.Scan(&jti); err != nil {
			rows.Close()
			return 0, util.LogError("[TokenRepo] ошибка чтения jti", err)
		}
		jtis = append(jtis, jti)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, util.LogError("[TokenRepo] ошибка чтения отозванных строк", err)
	}

	for _, jti := range jtis {
		_, err = tx.ExecContext(ctx,
			`INSERT INTO revoked_tokens (jti, user_uuid, revoked_by, reason, revoked_at) VALUES ($1, $2, $3, $4, $5)`,
			jti, userUUID, revokedBy, reason, now,
		)
		if err != nil {
			return 0, util.LogError("[TokenRepo] не удалось записать журнал отзыва", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, util.LogError("[TokenRepo] не удалось зафиксировать транзакцию", err)
	}

	return len(jtis), nil
}

// ListUserSessions : все токены пользователя, новые первыми
func (r *TokenRepository) ListUserSessions(ctx context.Context, userUUID string) ([]*model.SessionToken, error) {
	query := `SELECT jti, token_type, user_uuid, device_id, user_agent, ip_address,
				is_revoked, revoked_by, revoked_reason, revoked_at, created_at, expires_at
				FROM session_tokens WHERE user_uuid = $1 ORDER BY created_at DESC`

	var tokens []*model.SessionToken
	if err := sqlx.SelectContext(ctx, r.DB, &tokens, query, userUUID); err != nil {
		return nil, util.LogError("[TokenRepo] не удалось получить список сессий", err)
	}

	return tokens, nil
}

// ListRevokedAfter : записи журнала отзыва с id больше afterID, по
// порядку id. Курсор по id, а не по времени: строка, зафиксированная во
// время чтения, попадет в следующую выборку.
func (r *TokenRepository) ListRevokedAfter(ctx context.Context, afterID int64) ([]*model.RevokedTokenAudit, error) {
	query := `SELECT id, jti, user_uuid, revoked_by, reason, revoked_at
				FROM revoked_tokens WHERE id > $1 ORDER BY id ASC`

	var records []*model.RevokedTokenAudit
	if err := sqlx.SelectContext(ctx, r.DB, &records, query, afterID); err != nil {
		return nil, util.LogError("[TokenRepo] не удалось прочитать журнал отзыва", err)
	}

	return records, nil
}
