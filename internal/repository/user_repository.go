package repository

import (
	"context"

	"session-web-server/config"
	"session-web-server/internal/model"
	"session-web-server/internal/util"

	"github.com/jmoiron/sqlx"
)

type UserRepository struct {
	*config.Database
}

func NewUserRepository(database *config.Database) *UserRepository {
	return &UserRepository{database}
}

// FindByUUID : ищет пользователя по UUID
func (r *UserRepository) FindByUUID(ctx context.Context, uuid string) (*model.User, error) {
	query := `SELECT uuid, login, password_hash, created_at FROM users WHERE uuid = $1`
	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, uuid)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя в БД", err)
	}
	return &user, nil
}

// FindByLogin : ищет пользователя по login
func (r *UserRepository) FindByLogin(ctx context.Context, login string) (*model.User, error) {
	query := `SELECT uuid, login, password_hash, created_at FROM users WHERE login = $1`
	var user model.User
	err := sqlx.GetContext(ctx, r.DB, &user, query, login)
	if err != nil {
		return nil, util.LogError("[UserRepo] не удалось найти пользователя по login", err)
	}
	return &user, nil
}
