package ports

import (
	"context"
	"time"

	"session-web-server/internal/model"
	"session-web-server/internal/security"

	"github.com/jmoiron/sqlx"
)

type JWTServiceInterface interface {
	Mint(userUUID string, tokenType model.TokenType, ttl time.Duration) (string, string, time.Time, error)
	Verify(jwtTokenStr string, expectedType model.TokenType) (*security.Claims, error)
}

type TokenRepositoryInterface interface {
	// SaveToken принимает exec, чтобы сервис мог записать пару токенов
	// в одной транзакции
	SaveToken(ctx context.Context, exec sqlx.ExtContext, token *model.SessionToken) error
	FindByJTI(ctx context.Context, jti string) (*model.SessionToken, error)
	RevokeByJTI(ctx context.Context, jti string, revokedBy *string, reason string) (bool, error)
	RevokeAllUserRefresh(ctx context.Context, userUUID string, revokedBy *string, reason string) (int, error)
	ListUserSessions(ctx context.Context, userUUID string) ([]*model.SessionToken, error)
	ListRevokedAfter(ctx context.Context, afterID int64) ([]*model.RevokedTokenAudit, error)
}
