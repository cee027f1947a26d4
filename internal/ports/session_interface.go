package ports

import (
	"context"
	"time"

	"session-web-server/internal/model"
)

type SessionService interface {
	Login(ctx context.Context, login, password, deviceID, userAgent, ipAddress string) (*model.TokensPair, error)
	Rotate(ctx context.Context, refreshToken, deviceID, userAgent, ipAddress string) (*model.TokensPair, error)
	ValidateAccess(ctx context.Context, accessToken string) (string, error)
	Logout(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, userUUID string, actorUUID string) (int, error)
	ListSessions(ctx context.Context, userUUID string) ([]*model.SessionToken, error)
}

type LockoutGuardInterface interface {
	CheckLocked(ctx context.Context, userUUID string) error
	RegisterFailure(ctx context.Context, userUUID string) error
	RegisterSuccess(ctx context.Context, userUUID string) error
}

type RateLimiterInterface interface {
	// Check инкрементирует все ключи и возвращает true, если хотя бы
	// один превысил лимит
	Check(ctx context.Context, keys []string, limit int, window time.Duration) (bool, error)
}
