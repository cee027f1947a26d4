package handler

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/model/requestresponse"
	"session-web-server/internal/ports"
	"session-web-server/internal/security"
)

const deviceIDHeader = "X-Device-Id"

type AuthenticationHandler struct {
	ports.SessionService
}

func NewAuthenticationHandler(sessionService ports.SessionService) *AuthenticationHandler {
	return &AuthenticationHandler{sessionService}
}

// Login godoc
// @Summary Аутентификация пользователя
// @Description Получение пары access и refresh токенов по логину и паролю. Идентификатор устройства передается в заголовке X-Device-Id.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.LoginRequest true "Тело запроса"
// @Param X-Device-Id header string true "Идентификатор устройства"
// @Success 200 {object} requestresponse.TokenPairResponse "Успешная аутентификация"
// @Failure 400 {object} requestresponse.ErrorResponse "Некорректный JSON, пустые поля или отсутствует X-Device-Id"
// @Failure 401 {object} requestresponse.ErrorResponse "Неверный логин или пароль"
// @Failure 403 {object} requestresponse.ErrorResponse "Учетная запись временно заблокирована"
// @Failure 429 {object} requestresponse.ErrorResponse "Превышен лимит запросов"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/login [post]
func (h *AuthenticationHandler) Login(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, 400, "некорректный JSON")
		return
	}

	if req.Login == "" || req.Password == "" {
		sendErrorResponse(w, 400, "login и password обязательны")
		return
	}

	deviceID := r.Header.Get(deviceIDHeader)

	tokens, err := h.SessionService.Login(ctx, req.Login, req.Password, deviceID, r.UserAgent(), clientIP(r))
	if err != nil {
		handleSessionError(w, err)
		return
	}

	writeTokenPair(w, tokens)
}

// RefreshToken godoc
// @Summary Обновление токенов
// @Description Обменивает действующий refresh-токен на новую пару. Использованный refresh-токен отзывается; повторное предъявление отзывает все сессии пользователя.
// @Tags Authentication
// @Accept json
// @Produce json
// @Param body body requestresponse.RefreshTokenRequest true "Тело запроса"
// @Param X-Device-Id header string true "Идентификатор устройства"
// @Success 200 {object} requestresponse.TokenPairResponse "Новые access и refresh токены"
// @Failure 400 {object} requestresponse.ErrorResponse "Неверный JSON или отсутствует X-Device-Id"
// @Failure 401 {object} requestresponse.ErrorResponse "Невалидный токен"
// @Failure 429 {object} requestresponse.ErrorResponse "Превышен лимит запросов"
// @Failure 500 {object} requestresponse.ErrorResponse "Внутренняя ошибка сервера"
// @Router /api/auth/refresh [post]
func (h *AuthenticationHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	var req requestresponse.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendErrorResponse(w, 400, "неверный JSON")
		return
	}

	if req.RefreshToken == "" {
		sendErrorResponse(w, 400, "refresh_token обязателен")
		return
	}

	deviceID := r.Header.Get(deviceIDHeader)

	tokens, err := h.SessionService.Rotate(ctx, req.RefreshToken, deviceID, r.UserAgent(), clientIP(r))
	if err != nil {
		handleSessionError(w, err)
		return
	}

	writeTokenPair(w, tokens)
}

// Logout godoc
// @Summary Завершение текущей сессии
// @Description Отзывает предъявленный access-токен
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.LogoutResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/auth/logout [post]
func (h *AuthenticationHandler) Logout(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	accessToken, ok := bearerToken(r)
	if !ok {
		sendErrorResponse(w, 401, "пустой или неверный заголовок Authorization")
		return
	}

	if err := h.SessionService.Logout(ctx, accessToken); err != nil {
		handleSessionError(w, err)
		return
	}

	resp := requestresponse.LogoutResponse{}
	resp.Response.Message = "сессия завершена"

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// LogoutAll godoc
// @Summary Завершение всех сессий
// @Description Отзывает все refresh-токены текущего пользователя. Каждое устройство должно будет пройти вход заново.
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.LogoutAllResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/auth/logout-all [post]
func (h *AuthenticationHandler) LogoutAll(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	userUUID, err := security.GetUserUUIDFromContext(ctx)
	if err != nil {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	count, err := h.SessionService.LogoutAll(ctx, userUUID, userUUID)
	if err != nil {
		handleSessionError(w, err)
		return
	}

	resp := requestresponse.LogoutAllResponse{}
	resp.Response.RevokedCount = count

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// ListSessions godoc
// @Summary Список сессий текущего пользователя
// @Description Возвращает все выпущенные токены пользователя, новые первыми. Сами строки токенов наружу не отдаются.
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.SessionsResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Failure 500 {object} requestresponse.ErrorResponse
// @Security ApiKeyAuth
// @Router /api/auth/sessions [get]
func (h *AuthenticationHandler) ListSessions(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	ctx := r.Context()

	userUUID, err := security.GetUserUUIDFromContext(ctx)
	if err != nil {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	sessions, err := h.SessionService.ListSessions(ctx, userUUID)
	if err != nil {
		handleSessionError(w, err)
		return
	}

	resp := requestresponse.SessionsResponse{Response: make([]requestresponse.SessionItem, 0, len(sessions))}
	for _, session := range sessions {
		resp.Response = append(resp.Response, requestresponse.SessionItem{
			JTI:       session.JTI,
			TokenType: string(session.TokenType),
			DeviceID:  session.DeviceID,
			UserAgent: session.UserAgent,
			IpAddress: session.IpAddress,
			IsRevoked: session.IsRevoked,
			CreatedAt: session.CreatedAt,
			ExpiresAt: session.ExpiresAt,
			RevokedAt: session.RevokedAt,
		})
	}

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// GetCurrentUsersUUID godoc
// @Summary Получение UUID текущего пользователя
// @Description Возвращает UUID пользователя, который авторизован в системе
// @Tags Authentication
// @Produce json
// @Param Authorization header string true "Bearer токен" default(Bearer <access_token>)
// @Success 200 {object} requestresponse.CurrentUserResponse
// @Failure 401 {object} requestresponse.ErrorResponse
// @Router /api/auth/me [get]
func (h *AuthenticationHandler) GetCurrentUsersUUID(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	userUUID, err := security.GetUserUUIDFromContext(r.Context())
	if err != nil {
		sendErrorResponse(w, 401, "не авторизован")
		return
	}

	if r.Method == http.MethodHead {
		w.WriteHeader(http.StatusOK)
		return
	}

	resp := requestresponse.CurrentUserResponse{}
	resp.Response.UserUUID = userUUID

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

// handleSessionError переводит ошибки ядра в HTTP-статусы. Причины
// отказа в токене наружу не различаются, детали остаются в логах.
func handleSessionError(w http.ResponseWriter, err error) {
	log.Println(err)
	switch {
	case errors.Is(err, autherr.ErrDeviceIDRequired):
		sendErrorResponse(w, http.StatusBadRequest, autherr.ErrDeviceIDRequired.Error())
	case errors.Is(err, autherr.ErrInvalidCredential):
		sendErrorResponse(w, http.StatusUnauthorized, autherr.ErrInvalidCredential.Error())
	case errors.Is(err, autherr.ErrAccountLocked):
		sendErrorResponse(w, http.StatusForbidden, autherr.ErrAccountLocked.Error())
	case errors.Is(err, autherr.ErrRateLimited):
		sendErrorResponse(w, http.StatusTooManyRequests, autherr.ErrRateLimited.Error())
	case errors.Is(err, autherr.ErrInvalidToken):
		sendErrorResponse(w, http.StatusUnauthorized, autherr.ErrInvalidToken.Error())
	case errors.Is(err, autherr.ErrIntegrityViolation):
		sendErrorResponse(w, http.StatusInternalServerError, "внутренняя ошибка сервера")
	default:
		sendErrorResponse(w, http.StatusServiceUnavailable, "сервис временно недоступен")
	}
}

func writeTokenPair(w http.ResponseWriter, tokens *model.TokensPair) {
	resp := requestresponse.TokenPairResponse{
		AccessToken:      tokens.AccessToken,
		RefreshToken:     tokens.RefreshToken,
		TokenType:        "bearer",
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
	}

	w.WriteHeader(200)
	json.NewEncoder(w).Encode(resp)
}

func bearerToken(r *http.Request) (string, bool) {
	authorizationHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authorizationHeader, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(authorizationHeader, "Bearer "), true
}

func clientIP(r *http.Request) string {
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return strings.Trim(ip, "[]")
}

// sendErrorResponse отправляет ответ об ошибке JSON с указанным кодом статуса и сообщением
func sendErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(requestresponse.ErrorResponse{
		Error: message,
	})
}
