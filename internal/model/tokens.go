package model

import "time"

// TokenType : вид токена — ACCESS или REFRESH
type TokenType string

const (
	TokenTypeAccess  TokenType = "ACCESS"
	TokenTypeRefresh TokenType = "REFRESH"
)

// Причины отзыва токенов, попадают в журнал revoked_tokens
const (
	RevokeReasonRotated        = "rotated"
	RevokeReasonDeviceMismatch = "device_mismatch_detected"
	RevokeReasonReuseDetected  = "reuse_detected"
	RevokeReasonLogout         = "logout"
	RevokeReasonLogoutAll      = "logout_all"
)

// SessionToken : строка таблицы session_tokens, одна на каждый выпущенный токен.
// Строка никогда не удаляется, при отзыве только выставляются поля is_revoked,
// revoked_by, revoked_reason и revoked_at.
type SessionToken struct {
	JTI           string     `db:"jti"`
	TokenType     TokenType  `db:"token_type"`
	UserUUID      string     `db:"user_uuid"`
	DeviceID      string     `db:"device_id"`
	UserAgent     string     `db:"user_agent"`
	IpAddress     string     `db:"ip_address"`
	IsRevoked     bool       `db:"is_revoked"`
	RevokedBy     *string    `db:"revoked_by"`
	RevokedReason *string    `db:"revoked_reason"`
	RevokedAt     *time.Time `db:"revoked_at"`
	CreatedAt     time.Time  `db:"created_at"`
	ExpiresAt     time.Time  `db:"expires_at"`
}

// IsExpired проверяет срок действия по строке БД, независимо от подписи
func (t *SessionToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// RevokedTokenAudit : append-only запись журнала отзыва.
// Пишется на каждый вызов отзыва, даже повторный, и живет отдельно
// от session_tokens, поэтому история сохраняется при чистке живых строк.
type RevokedTokenAudit struct {
	ID        int64     `db:"id"`
	JTI       string    `db:"jti"`
	UserUUID  string    `db:"user_uuid"`
	RevokedBy *string   `db:"revoked_by"`
	Reason    string    `db:"reason"`
	RevokedAt time.Time `db:"revoked_at"`
}

// TokensPair содержит пару access и refresh токенов
// swagger:model
type TokensPair struct {
	// Access токен (JWT)
	// example: eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9...
	AccessToken string `json:"accessToken"`

	// Refresh токен (для получения новой пары)
	// example: eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9...
	RefreshToken string `json:"refreshToken"`

	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
