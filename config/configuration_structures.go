package config

import "github.com/aws/aws-sdk-go-v2/service/s3"

type DatabaseConfig struct {
	DSN string `yaml:"dsn"`
}

type S3Config struct {
	Bucket   string `yaml:"bucket"`
	Client   *s3.Client
	Region   string `yaml:"region"`
	Endpoint string `yaml:"endpoint"`
	Local    bool   `yaml:"local"`
}

// JWTConfig описывает ключи подписи и время жизни токенов.
// PublicKeyPaths хранит соответствие kid -> путь до публичного ключа,
// чтобы токены, подписанные предыдущим ключом, оставались проверяемыми
// до конца своего срока действия.
type JWTConfig struct {
	Issuer          string            `yaml:"issuer"`
	PrivateKeyPath  string            `yaml:"private_key_path"`
	ActiveKid       string            `yaml:"active_kid"`
	PublicKeyPaths  map[string]string `yaml:"public_keys"`
	AccessTokenTTL  string            `yaml:"access_token_ttl"`
	RefreshTokenTTL string            `yaml:"refresh_token_ttl"`
}

// RateLimitConfig задает лимит запросов на ключ за окно
type RateLimitConfig struct {
	Limit  int    `yaml:"limit"`
	Window string `yaml:"window"`
}

// LockoutConfig задает порог неудачных попыток входа и время блокировки
type LockoutConfig struct {
	Threshold    int    `yaml:"threshold"`
	LockDuration string `yaml:"lock_duration"`
}

// AuditExportConfig задает параметры выгрузки журнала отзыва в S3
type AuditExportConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Interval string `yaml:"interval"`
}

type WebhookConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}
