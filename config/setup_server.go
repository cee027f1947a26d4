package config

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	DatabaseConfig DatabaseConfig    `yaml:"databaseConfig"`
	RedisConfig    RedisConfig       `yaml:"redisConfig"`
	ServerAddr     string            `yaml:"serverAddr"`
	S3Config       S3Config          `yaml:"s3Config"`
	JWT            JWTConfig         `yaml:"jwt"`
	RateLimit      RateLimitConfig   `yaml:"rateLimit"`
	Lockout        LockoutConfig     `yaml:"lockout"`
	AuditExport    AuditExportConfig `yaml:"auditExport"`
	Webhook        WebhookConfig     `yaml:"webhook"`
}

func LoadConfig(path string) (*AppConfig, error) {
	file, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg AppConfig
	if err := yaml.Unmarshal(file, &cfg); err != nil {
		return nil, err
	}

	if err := cfg.validateTokenTTL(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateTokenTTL проверяет сроки жизни токенов еще на старте:
// access-токен обязан жить меньше refresh-токена, иначе ротация теряет смысл
func (cfg *AppConfig) validateTokenTTL() error {
	access, err := time.ParseDuration(cfg.JWT.AccessTokenTTL)
	if err != nil {
		return fmt.Errorf("некорректный access_token_ttl %q: %w", cfg.JWT.AccessTokenTTL, err)
	}
	refresh, err := time.ParseDuration(cfg.JWT.RefreshTokenTTL)
	if err != nil {
		return fmt.Errorf("некорректный refresh_token_ttl %q: %w", cfg.JWT.RefreshTokenTTL, err)
	}
	if access >= refresh {
		return fmt.Errorf("access_token_ttl (%s) должен быть меньше refresh_token_ttl (%s)", access, refresh)
	}
	return nil
}

func SetupServer(serverAddress string) (*http.Server, *chi.Mux) {
	router := chi.NewRouter()
	server := &http.Server{
		Addr:    serverAddress,
		Handler: router,
	}

	return server, router
}

func SetupDatabase(dsn string) (*Database, error) {
	return NewDatabaseConnection("postgres", dsn)
}

func SetupRedis(cfg *RedisConfig) (*RedisClient, error) {
	return NewRedisClient(cfg)
}
