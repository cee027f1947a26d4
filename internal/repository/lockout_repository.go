package repository

import (
	"context"
	"database/sql"
	"errors"

	"session-web-server/config"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type LockoutRepository struct {
	*config.Database
}

func NewLockoutRepository(database *config.Database) *LockoutRepository {
	return &LockoutRepository{database}
}

// FindByUserUUID : ищет состояние блокировки учетной записи.
// Возвращает (nil, nil), если строки еще нет — она создается лениво
// первым Upsert
func (r *LockoutRepository) FindByUserUUID(ctx context.Context, userUUID string) (*model.UserSecurityInfo, error) {
	query := `SELECT user_uuid, failed_attempts, last_failed_at, locked_until
				FROM user_security_info WHERE user_uuid = $1`

	info := &model.UserSecurityInfo{}
	err := sqlx.GetContext(ctx, r.DB, info, query, userUUID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, util.LogError("[LockoutRepo] ошибка при выполнении запроса", err)
	}

	return info, nil
}

// Upsert : сохраняет состояние блокировки, создавая строку при необходимости
func (r *LockoutRepository) Upsert(ctx context.Context, info *model.UserSecurityInfo) error {
	query := `INSERT INTO user_security_info (user_uuid, failed_attempts, last_failed_at, locked_until)
				VALUES ($1, $2, $3, $4)
				ON CONFLICT (user_uuid) DO UPDATE
				SET failed_attempts = $2, last_failed_at = $3, locked_until = $4`

	_, err := r.DB.ExecContext(ctx, query,
		info.UserUUID,
		info.FailedAttempts,
		info.LastFailedAt,
		info.LockedUntil,
	)
	if err != nil {
		return util.LogError("[LockoutRepo] не удалось сохранить состояние блокировки", err)
	}

	return nil
}
