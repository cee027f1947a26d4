package security

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"session-web-server/internal/autherr"
	"session-web-server/internal/model"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

type contextKey string

const (
	UserContextKey contextKey = "user"
)

type Claims struct {
	TokenType string `json:"type"`
	jwt.RegisteredClaims
}

type JWTService struct {
	keys   *SigningKeys
	issuer string
}

func NewJWTService(keys *SigningKeys, issuer string) *JWTService {
	if issuer == "" {
		issuer = "session-web-server"
	}
	return &JWTService{keys: keys, issuer: issuer}
}

// Mint выпускает подписанный токен заданного вида.
// Возвращает jti, строку токена и момент истечения срока действия.
func (service *JWTService) Mint(userUUID string, tokenType model.TokenType, ttl time.Duration) (string, string, time.Time, error) {
	jti := uuid.New().String()
	expiresAt := time.Now().UTC().Add(ttl)

	claims := Claims{
		TokenType: string(tokenType),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userUUID,
			ID:        jti,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
			Issuer:    service.issuer,
		},
	}

	jwtToken := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	jwtToken.Header["kid"] = service.keys.ActiveKid

	signed, err := jwtToken.SignedString(service.keys.PrivateKey)
	if err != nil {
		return "", "", time.Time{}, fmt.Errorf("ошибка подписи токена: %w", err)
	}

	return jti, signed, expiresAt, nil
}

// Verify проверяет подпись, срок действия и вид токена.
// Все причины отказа схлопываются в autherr.ErrInvalidToken, чтобы не
// давать внешнему вызывающему оракул для перебора, детали уходят в лог.
// Состояние отзыва здесь не проверяется — это забота хранилища токенов.
func (service *JWTService) Verify(jwtTokenStr string, expectedType model.TokenType) (*Claims, error) {
	var claims = &Claims{}

	jwtToken, err := jwt.ParseWithClaims(jwtTokenStr, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Header["alg"] != jwt.SigningMethodRS256.Alg() {
			return nil, fmt.Errorf("неверный способ подписи токена: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("в заголовке токена нет kid")
		}

		publicKey, ok := service.keys.PublicKeys[kid]
		if !ok {
			return nil, fmt.Errorf("неизвестный kid: %s", kid)
		}

		return publicKey, nil
	})

	if err != nil || jwtToken.Valid == false {
		log.Printf("[JWTService] отказ проверки токена: %v", err)
		return nil, autherr.ErrInvalidToken
	}

	if claims.TokenType != string(expectedType) {
		log.Printf("[JWTService] неверный вид токена: ожидался %s, получен %s", expectedType, claims.TokenType)
		return nil, autherr.ErrInvalidToken
	}

	return claims, nil
}

// AccessValidator проверяет access-токен вместе с состоянием отзыва
// и возвращает UUID владельца
type AccessValidator interface {
	ValidateAccess(ctx context.Context, accessToken string) (string, error)
}

func JWTMiddleware(validator AccessValidator) func(handler http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(handleAuthentication(validator, next))
	}
}

func handleAuthentication(validator AccessValidator, next http.Handler) func(writer http.ResponseWriter, request *http.Request) {
	return func(writer http.ResponseWriter, request *http.Request) {
		authorizationHeader := request.Header.Get("Authorization")
		if !strings.HasPrefix(authorizationHeader, "Bearer ") {
			http.Error(writer, "unauthorized", http.StatusUnauthorized)
			return
		}

		token := strings.TrimPrefix(authorizationHeader, "Bearer ")

		userUUID, err := validator.ValidateAccess(request.Context(), token)
		if err != nil {
			log.Printf("невалидный токен: %v", err)
			http.Error(writer, "невалидный токен", http.StatusUnauthorized)
			return
		}

		req := request.WithContext(context.WithValue(request.Context(), UserContextKey, userUUID))
		next.ServeHTTP(writer, req)
	}
}

// GetUserUUIDFromContext возвращает UUID пользователя, положенный middleware
func GetUserUUIDFromContext(ctx context.Context) (string, error) {
	userUUID, ok := ctx.Value(UserContextKey).(string)
	if !ok || userUUID == "" {
		return "", fmt.Errorf("пользователь не авторизован")
	}
	return userUUID, nil
}
