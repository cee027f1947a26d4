package autherr

import "errors"

// Ошибки ядра сессий. Причина отказа в токене (подпись, срок, тип,
// неизвестный kid, отозванная или отсутствующая строка) наружу не
// различается — всегда ErrInvalidToken, детали остаются в логах.
var (
	ErrInvalidCredential = errors.New("неверный логин или пароль")

	ErrAccountLocked = errors.New("учетная запись временно заблокирована")

	ErrRateLimited = errors.New("слишком много запросов, попробуйте позже")

	ErrInvalidToken = errors.New("невалидный токен")

	ErrDeviceIDRequired = errors.New("требуется идентификатор устройства")

	// ErrIntegrityViolation : дубликат jti при вставке. Означает баг
	// генерации идентификаторов, операция прерывается без повторов.
	ErrIntegrityViolation = errors.New("нарушение целостности: дубликат идентификатора токена")
)
