package model

import "time"

type User struct {
	UUID         string    `db:"uuid" json:"uuid"`
	Login        string    `db:"login" json:"login"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// UserSecurityInfo : состояние блокировки учетной записи.
// Создается лениво при первой попытке входа, отсутствие строки
// эквивалентно нулю неудачных попыток без блокировки.
type UserSecurityInfo struct {
	UserUUID       string     `db:"user_uuid"`
	FailedAttempts int        `db:"failed_attempts"`
	LastFailedAt   *time.Time `db:"last_failed_at"`
	LockedUntil    *time.Time `db:"locked_until"`
}
