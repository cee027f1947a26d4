package ports

import "context"

// AuditArchiver выгружает накопленные записи журнала отзыва во внешнее
// хранилище
type AuditArchiver interface {
	ExportOnce(ctx context.Context) error
}
