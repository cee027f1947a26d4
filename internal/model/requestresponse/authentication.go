package requestresponse

import "time"

// LoginRequest : тело запроса на аутентификацию
type LoginRequest struct {
	Login    string `json:"login" example:"user1"`
	Password string `json:"password" example:"P@ssw0rd123"`
}

// TokenPairResponse : ответ с парой токенов
type TokenPairResponse struct {
	AccessToken      string    `json:"access_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
	RefreshToken     string    `json:"refresh_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
	TokenType        string    `json:"token_type" example:"bearer"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// RefreshTokenRequest : запрос на обновление пары токенов
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" example:"eyJhbGciOiJSUzI1NiIsInR5cCI6IkpXVCJ9..."`
}

// CurrentUserResponse : информация о текущем пользователе
type CurrentUserResponse struct {
	Response struct {
		UserUUID string `json:"user_uuid" example:"b6a1e1c4-4b1d-4f1e-8b29-1234567890ab"`
	} `json:"response"`
}

// LogoutResponse : ответ на завершение сессии
type LogoutResponse struct {
	Response struct {
		Message string `json:"message" example:"сессия завершена"`
	} `json:"response"`
}

// LogoutAllResponse : ответ на завершение всех сессий
type LogoutAllResponse struct {
	Response struct {
		RevokedCount int `json:"revoked_count" example:"3"`
	} `json:"response"`
}

// SessionItem : одна сессия в списке, сам токен наружу не отдается
type SessionItem struct {
	JTI       string     `json:"jti" example:"c41b7a1e-0c2f-46a7-9a01-9876543210ab"`
	TokenType string     `json:"token_type" example:"REFRESH"`
	DeviceID  string     `json:"device_id" example:"d1"`
	UserAgent string     `json:"user_agent" example:"Mozilla/5.0"`
	IpAddress string     `json:"ip_address" example:"192.0.2.10"`
	IsRevoked bool       `json:"is_revoked" example:"false"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// SessionsResponse : список сессий пользователя, новые первыми
type SessionsResponse struct {
	Response []SessionItem `json:"response"`
}

// ErrorResponse : тело ошибки
type ErrorResponse struct {
	Error string `json:"error" example:"невалидный токен"`
}
