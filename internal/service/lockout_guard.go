package service

import (
	"context"
	"log"
	"time"

	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/ports"
)

const (
	defaultLockoutThreshold = 5
	defaultLockDuration     = 15 * time.Minute
)

// LockoutGuard отслеживает подряд идущие неудачные попытки входа и
// временно блокирует учетную запись. Состояние создается лениво:
// отсутствие строки равносильно нулю неудачных попыток.
type LockoutGuard struct {
	lockoutRepository ports.LockoutRepositoryInterface
	threshold         int
	lockDuration      time.Duration
}

func NewLockoutGuard(lockoutRepository ports.LockoutRepositoryInterface, threshold int, lockDuration time.Duration) *LockoutGuard {
	if threshold <= 0 {
		threshold = defaultLockoutThreshold
	}
	if lockDuration <= 0 {
		lockDuration = defaultLockDuration
	}
	return &LockoutGuard{
		lockoutRepository: lockoutRepository,
		threshold:         threshold,
		lockDuration:      lockDuration,
	}
}

// CheckLocked отклоняет попытку, пока locked_until в будущем.
// Пароль при этом не проверяется и счетчик не растет.
func (g *LockoutGuard) CheckLocked(ctx context.Context, userUUID string) error {
	info, err := g.lockoutRepository.FindByUserUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if info == nil || info.LockedUntil == nil {
		return nil
	}

	if info.LockedUntil.After(time.Now().UTC()) {
		log.Printf("[LockoutGuard] учетная запись %s заблокирована до %s", userUUID, info.LockedUntil.Format(time.RFC3339))
		return autherr.ErrAccountLocked
	}

	return nil
}

// RegisterFailure фиксирует неудачную проверку пароля. При достижении
// порога выставляется блокировка, а счетчик сбрасывается в ноль: после
// окончания блокировки отсчет начинается заново.
func (g *LockoutGuard) RegisterFailure(ctx context.Context, userUUID string) error {
	info, err := g.lockoutRepository.FindByUserUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if info == nil {
		info = &model.UserSecurityInfo{UserUUID: userUUID}
	}

	now := time.Now().UTC()
	info.FailedAttempts++
	info.LastFailedAt = &now

	if info.FailedAttempts >= g.threshold {
		lockedUntil := now.Add(g.lockDuration)
		info.LockedUntil = &lockedUntil
		info.FailedAttempts = 0
		log.Printf("[LockoutGuard] учетная запись %s заблокирована до %s", userUUID, lockedUntil.Format(time.RFC3339))
	}

	return g.lockoutRepository.Upsert(ctx, info)
}

// RegisterSuccess сбрасывает счетчик и снимает блокировку после
// успешной проверки пароля
func (g *LockoutGuard) RegisterSuccess(ctx context.Context, userUUID string) error {
	info, err := g.lockoutRepository.FindByUserUUID(ctx, userUUID)
	if err != nil {
		return err
	}
	if info == nil {
		info = &model.UserSecurityInfo{UserUUID: userUUID}
	}

	info.FailedAttempts = 0
	info.LockedUntil = nil

	return g.lockoutRepository.Upsert(ctx, info)
}
