package service

import (
	"context"
	"log"
	"time"

	"session-web-server/config"
	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/notifier"
	"session-web-server/internal/ports"
	"session-web-server/internal/repository"
	"session-web-server/internal/security"
	"session-web-server/internal/util"
)

// Метаданные происхождения обрезаются до фиксированных длин, это
// справочная информация, а не граница безопасности
const (
	maxIpAddressLen = 45
	maxUserAgentLen = 512
)

type SessionService struct {
	database *config.Database
	*config.AppConfig
	tokenRepository ports.TokenRepositoryInterface
	userRepository  ports.UserRepository
	rateLimiter     ports.RateLimiterInterface
	lockoutGuard    ports.LockoutGuardInterface
	jwtService      ports.JWTServiceInterface
}

func NewSessionService(
	database *config.Database,
	cfg *config.AppConfig,
	tokenRepository ports.TokenRepositoryInterface,
	userRepository ports.UserRepository,
	rateLimiter ports.RateLimiterInterface,
	lockoutGuard ports.LockoutGuardInterface,
	jwtService ports.JWTServiceInterface,
) *SessionService {
	return &SessionService{
		database,
		cfg,
		tokenRepository,
		userRepository,
		rateLimiter,
		lockoutGuard,
		jwtService,
	}
}

// Login выполняет вход по логину и паролю и выпускает пару токенов.
// Порядок проверок важен: блокировка учетной записи, пароль, rate limit,
// и только затем выпуск. Каждому refresh-токену требуется deviceID —
// непрозрачная непустая строка, привязывающая сессию к устройству.
func (s *SessionService) Login(ctx context.Context, login, password, deviceID, userAgent, ipAddress string) (*model.TokensPair, error) {
	if deviceID == "" {
		return nil, autherr.ErrDeviceIDRequired
	}
	userAgent, ipAddress = truncateOrigin(userAgent, ipAddress)

	user, err := s.userRepository.FindByLogin(ctx, login)
	if err != nil {
		log.Printf("[SessionService] пользователь %s не найден: %v", login, err)
		return nil, autherr.ErrInvalidCredential
	}

	if err := s.lockoutGuard.CheckLocked(ctx, user.UUID); err != nil {
		return nil, err
	}

	if !security.CheckPassword(password, user.PasswordHash) {
		if err := s.lockoutGuard.RegisterFailure(ctx, user.UUID); err != nil {
			return nil, err
		}
		return nil, autherr.ErrInvalidCredential
	}

	if err := s.lockoutGuard.RegisterSuccess(ctx, user.UUID); err != nil {
		return nil, err
	}

	if err := s.checkRate(ctx, ipAddress, user.UUID, deviceID); err != nil {
		return nil, err
	}

	return s.issueTokens(ctx, user.UUID, deviceID, userAgent, ipAddress)
}

// ValidateAccess проверяет access-токен: подпись и срок через кодек,
// затем состояние отзыва по строке БД. Отозванный, просроченный по строке
// или неизвестный токен отклоняется одинаково.
// Возвращает UUID владельца.
func (s *SessionService) ValidateAccess(ctx context.Context, accessToken string) (string, error) {
	claims, err := s.jwtService.Verify(accessToken, model.TokenTypeAccess)
	if err != nil {
		return "", autherr.ErrInvalidToken
	}

	storedToken, err := s.tokenRepository.FindByJTI(ctx, claims.ID)
	if err != nil {
		return "", err
	}
	if storedToken == nil || storedToken.IsRevoked || storedToken.IsExpired(time.Now().UTC()) {
		log.Printf("[SessionService] access token %s отозван, просрочен или не найден", claims.ID)
		return "", autherr.ErrInvalidToken
	}

	return claims.Subject, nil
}

// Rotate обменивает действующий refresh-токен на новую пару.
// Refresh-токен одноразовый: использованный экземпляр отзывается с
// причиной rotated. Предъявление уже использованного токена или токена
// с чужого устройства неотличимо от кражи, поэтому отзываются ВСЕ
// refresh-токены владельца, а наружу уходит одинаковый отказ.
//
// Параметры:
//   - ctx: контекст выполнения (для отмены и таймаутов)
//   - refreshToken: предъявленный refresh-токен
//   - deviceID: идентификатор устройства из запроса
//   - userAgent: информация о браузере
//   - ipAddress: ip адрес устройства, с которого был выполнен вход
//
// Возвращает:
//   - model.TokensPair
//   - ошибку, если не удалось обновить токены.
func (s *SessionService) Rotate(ctx context.Context, refreshToken, deviceID, userAgent, ipAddress string) (*model.TokensPair, error) {
	if deviceID == "" {
		return nil, autherr.ErrDeviceIDRequired
	}
	userAgent, ipAddress = truncateOrigin(userAgent, ipAddress)

	claims, err := s.jwtService.Verify(refreshToken, model.TokenTypeRefresh)
	if err != nil {
		return nil, autherr.ErrInvalidToken
	}

	jti := claims.ID
	userUUID := claims.Subject

	if err := s.checkRate(ctx, ipAddress, userUUID, deviceID); err != nil {
		return nil, err
	}

	storedToken, err := s.tokenRepository.FindByJTI(ctx, jti)
	if err != nil {
		return nil, err
	}
	if storedToken == nil {
		// подпись валидна, а строки нет: токен никогда не выпускался
		// этим хранилищем, считаем подделкой
		log.Printf("[SessionService] refresh token %s не найден в БД", jti)
		return nil, autherr.ErrInvalidToken
	}

	if storedToken.DeviceID != deviceID {
		log.Printf("[SessionService] refresh token %s: попытка обновления с другого устройства", jti)
		if _, err := s.tokenRepository.RevokeAllUserRefresh(ctx, userUUID, nil, model.RevokeReasonDeviceMismatch); err != nil {
			return nil, util.LogError("[SessionService] не удалось выполнить массовый отзыв", err)
		}
		return nil, autherr.ErrInvalidToken
	}

	if storedToken.IsRevoked {
		log.Printf("[SessionService] refresh token %s уже был использован, массовый отзыв", jti)
		if _, err := s.tokenRepository.RevokeAllUserRefresh(ctx, userUUID, nil, model.RevokeReasonReuseDetected); err != nil {
			return nil, util.LogError("[SessionService] не удалось выполнить массовый отзыв", err)
		}
		return nil, autherr.ErrInvalidToken
	}

	if storedToken.IsExpired(time.Now().UTC()) {
		log.Printf("[SessionService] refresh token %s просрочен по строке БД", jti)
		return nil, autherr.ErrInvalidToken
	}

	revoked, err := s.tokenRepository.RevokeByJTI(ctx, jti, nil, model.RevokeReasonRotated)
	if err != nil {
		return nil, err
	}
	if !revoked {
		// параллельная ротация успела раньше между чтением строки и
		// отзывом — для этого запроса токен уже использован
		log.Printf("[SessionService] refresh token %s перехвачен параллельной ротацией", jti)
		if _, err := s.tokenRepository.RevokeAllUserRefresh(ctx, userUUID, nil, model.RevokeReasonReuseDetected); err != nil {
			return nil, util.LogError("[SessionService] не удалось выполнить массовый отзыв", err)
		}
		return nil, autherr.ErrInvalidToken
	}

	// уведомление о новом ip уходит только после того, как именно эта
	// ротация отозвала предъявленный токен: проигравший запрос не должен
	// выглядеть для владельца как успешное обновление
	if storedToken.IpAddress != ipAddress && s.Webhook.URL != "" {
		log.Printf("[SessionService] обнаружена ротация с нового ip адреса, отправка webhook")
		webhookTimeout, err := time.ParseDuration(s.Webhook.Timeout)
		if err != nil {
			webhookTimeout = 0 // notifier подставит значение по умолчанию
		}
		oldIP := storedToken.IpAddress
		go func() {
			if err := notifier.NotifyWebhook(context.Background(), s.Webhook.URL, webhookTimeout, userUUID, ipAddress, oldIP); err != nil {
				log.Printf("ошибка отправки webhook: %v", err)
			}
		}()
	}

	user, err := s.userRepository.FindByUUID(ctx, userUUID)
	if err != nil {
		log.Printf("[SessionService] владелец токена %s не найден: %v", userUUID, err)
		return nil, autherr.ErrInvalidToken
	}

	return s.issueTokens(ctx, user.UUID, deviceID, userAgent, ipAddress)
}

// Logout отзывает предъявленный access-токен
func (s *SessionService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtService.Verify(accessToken, model.TokenTypeAccess)
	if err != nil {
		return autherr.ErrInvalidToken
	}

	actor := claims.Subject
	if _, err := s.tokenRepository.RevokeByJTI(ctx, claims.ID, &actor, model.RevokeReasonLogout); err != nil {
		return err
	}

	return nil
}

// LogoutAll отзывает все refresh-токены пользователя, завершая каждую
// его сессию. Возвращает число отозванных токенов.
func (s *SessionService) LogoutAll(ctx context.Context, userUUID string, actorUUID string) (int, error) {
	var revokedBy *string
	if actorUUID != "" {
		revokedBy = &actorUUID
	}

	count, err := s.tokenRepository.RevokeAllUserRefresh(ctx, userUUID, revokedBy, model.RevokeReasonLogoutAll)
	if err != nil {
		return 0, err
	}

	log.Printf("[SessionService] отозвано %d refresh токенов пользователя %s", count, userUUID)
	return count, nil
}

// ListSessions : все сессии пользователя, новые первыми
func (s *SessionService) ListSessions(ctx context.Context, userUUID string) ([]*model.SessionToken, error) {
	return s.tokenRepository.ListUserSessions(ctx, userUUID)
}

// issueTokens выпускает пару access+refresh и сохраняет обе строки в
// одной транзакции: токен не возвращается вызывающему, пока его строка
// не зафиксирована в БД.
func (s *SessionService) issueTokens(ctx context.Context, userUUID, deviceID, userAgent, ipAddress string) (*model.TokensPair, error) {
	accessTTL, err := time.ParseDuration(s.JWT.AccessTokenTTL)
	if err != nil {
		return nil, util.LogError("ошибка парсинга access_token_ttl", err)
	}
	refreshTTL, err := time.ParseDuration(s.JWT.RefreshTokenTTL)
	if err != nil {
		return nil, util.LogError("ошибка парсинга refresh_token_ttl", err)
	}

	accessJTI, accessToken, accessExpiresAt, err := s.jwtService.Mint(userUUID, model.TokenTypeAccess, accessTTL)
	if err != nil {
		return nil, util.LogError("ошибка генерации access токена", err)
	}
	refreshJTI, refreshTokenStr, refreshExpiresAt, err := s.jwtService.Mint(userUUID, model.TokenTypeRefresh, refreshTTL)
	if err != nil {
		return nil, util.LogError("ошибка генерации refresh токена", err)
	}

	tx, err := s.database.BeginTxx(ctx, nil)
	if err != nil {
		return nil, util.LogError("не удалось открыть транзакцию", err)
	}
	defer tx.Rollback()

	accessRow := &model.SessionToken{
		JTI:       accessJTI,
		TokenType: model.TokenTypeAccess,
		UserUUID:  userUUID,
		DeviceID:  deviceID,
		UserAgent: userAgent,
		IpAddress: ipAddress,
		ExpiresAt: accessExpiresAt,
	}
	refreshRow := &model.SessionToken{
		JTI:       refreshJTI,
		TokenType: model.TokenTypeRefresh,
		UserUUID:  userUUID,
		DeviceID:  deviceID,
		UserAgent: userAgent,
		IpAddress: ipAddress,
		ExpiresAt: refreshExpiresAt,
	}

	if err := s.tokenRepository.SaveToken(ctx, tx, accessRow); err != nil {
		return nil, err
	}
	if err := s.tokenRepository.SaveToken(ctx, tx, refreshRow); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, util.LogError("не удалось зафиксировать транзакцию", err)
	}

	return &model.TokensPair{
		AccessToken:      accessToken,
		RefreshToken:     refreshTokenStr,
		AccessExpiresAt:  accessExpiresAt,
		RefreshExpiresAt: refreshExpiresAt,
	}, nil
}

func (s *SessionService) checkRate(ctx context.Context, ipAddress, userUUID, deviceID string) error {
	limit := s.RateLimit.Limit
	if limit <= 0 {
		limit = 5
	}
	window, err := time.ParseDuration(s.RateLimit.Window)
	if err != nil || window <= 0 {
		window = time.Minute
	}

	keys := repository.BuildRateLimitKeys(ipAddress, userUUID, deviceID)
	exceeded, err := s.rateLimiter.Check(ctx, keys, limit, window)
	if err != nil {
		return util.LogError("[SessionService] ошибка проверки rate limit", err)
	}
	if exceeded {
		return autherr.ErrRateLimited
	}

	return nil
}

func truncateOrigin(userAgent, ipAddress string) (string, string) {
	if len(userAgent) > maxUserAgentLen {
		userAgent = userAgent[:maxUserAgentLen]
	}
	if len(ipAddress) > maxIpAddressLen {
		ipAddress = ipAddress[:maxIpAddressLen]
	}
	return userAgent, ipAddress
}
