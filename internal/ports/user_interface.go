package ports

import (
	"context"

	"session-web-server/internal/model"
)

type UserRepository interface {
	FindByUUID(ctx context.Context, uuid string) (*model.User, error)
	FindByLogin(ctx context.Context, login string) (*model.User, error)
}

type LockoutRepositoryInterface interface {
	FindByUserUUID(ctx context.Context, userUUID string) (*model.UserSecurityInfo, error)
	Upsert(ctx context.Context, info *model.UserSecurityInfo) error
}
