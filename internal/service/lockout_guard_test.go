package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/service"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockLockoutRepository
type MockLockoutRepository struct {
	mock.Mock
}

func (m *MockLockoutRepository) FindByUserUUID(ctx context.Context, userUUID string) (*model.UserSecurityInfo, error) {
	args := m.Called(ctx, userUUID)
	if info, ok := args.Get(0).(*model.UserSecurityInfo); ok {
		return info, args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockLockoutRepository) Upsert(ctx context.Context, info *model.UserSecurityInfo) error {
	args := m.Called(ctx, info)
	return args.Error(0)
}

// 1. Отсутствие строки равносильно отсутствию блокировки
func TestCheckLocked_NoRecord(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	repo.On("FindByUserUUID", mock.Anything, "u1").Return(nil, nil)

	assert.NoError(t, guard.CheckLocked(context.Background(), "u1"))
}

// 2. Активная блокировка отклоняет попытку входа
func TestCheckLocked_Active(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	lockedUntil := time.Now().UTC().Add(10 * time.Minute)
	repo.On("FindByUserUUID", mock.Anything, "u1").
		Return(&model.UserSecurityInfo{UserUUID: "u1", LockedUntil: &lockedUntil}, nil)

	err := guard.CheckLocked(context.Background(), "u1")

	assert.True(t, errors.Is(err, autherr.ErrAccountLocked))
}

// 3. Истекшая блокировка больше не действует
func TestCheckLocked_Expired(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	lockedUntil := time.Now().UTC().Add(-time.Minute)
	repo.On("FindByUserUUID", mock.Anything, "u1").
		Return(&model.UserSecurityInfo{UserUUID: "u1", LockedUntil: &lockedUntil}, nil)

	assert.NoError(t, guard.CheckLocked(context.Background(), "u1"))
}

// 4. Неудачная попытка ниже порога только увеличивает счетчик
func TestRegisterFailure_BelowThreshold(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	repo.On("FindByUserUUID", mock.Anything, "u1").
		Return(&model.UserSecurityInfo{UserUUID: "u1", FailedAttempts: 2}, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(info *model.UserSecurityInfo) bool {
		return info.FailedAttempts == 3 && info.LockedUntil == nil
	})).Return(nil)

	require.NoError(t, guard.RegisterFailure(context.Background(), "u1"))
	repo.AssertExpectations(t)
}

// 5. Пятая подряд неудача выставляет блокировку и сбрасывает счетчик:
// после окончания блокировки отсчет начинается заново
func TestRegisterFailure_ThresholdLocks(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	repo.On("FindByUserUUID", mock.Anything, "u1").
		Return(&model.UserSecurityInfo{UserUUID: "u1", FailedAttempts: 4}, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(info *model.UserSecurityInfo) bool {
		return info.FailedAttempts == 0 &&
			info.LockedUntil != nil &&
			info.LockedUntil.After(time.Now().UTC().Add(14*time.Minute))
	})).Return(nil)

	require.NoError(t, guard.RegisterFailure(context.Background(), "u1"))
	repo.AssertExpectations(t)
}

// 6. Первая неудача для пользователя без строки создает ее лениво
func TestRegisterFailure_NoRecord(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	repo.On("FindByUserUUID", mock.Anything, "u1").Return(nil, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(info *model.UserSecurityInfo) bool {
		return info.UserUUID == "u1" && info.FailedAttempts == 1 && info.LockedUntil == nil
	})).Return(nil)

	require.NoError(t, guard.RegisterFailure(context.Background(), "u1"))
	repo.AssertExpectations(t)
}

// 7. Успешный вход сбрасывает счетчик и снимает блокировку
func TestRegisterSuccess_Resets(t *testing.T) {
	repo := new(MockLockoutRepository)
	guard := service.NewLockoutGuard(repo, 5, 15*time.Minute)

	lockedUntil := time.Now().UTC().Add(-time.Minute)
	repo.On("FindByUserUUID", mock.Anything, "u1").
		Return(&model.UserSecurityInfo{UserUUID: "u1", FailedAttempts: 3, LockedUntil: &lockedUntil}, nil)
	repo.On("Upsert", mock.Anything, mock.MatchedBy(func(info *model.UserSecurityInfo) bool {
		return info.FailedAttempts == 0 && info.LockedUntil == nil
	})).Return(nil)

	require.NoError(t, guard.RegisterSuccess(context.Background(), "u1"))
	repo.AssertExpectations(t)
}
