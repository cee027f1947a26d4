package security

import (
	"crypto/rsa"
	"fmt"
	"os"

	"session-web-server/config"

	"github.com/golang-jwt/jwt/v5"
)

// SigningKeys : активный ключ подписи плюс набор публичных ключей по kid.
// Публичные ключи предыдущих kid остаются в наборе, пока подписанные ими
// токены не выйдут за срок действия.
type SigningKeys struct {
	ActiveKid  string
	PrivateKey *rsa.PrivateKey
	PublicKeys map[string]*rsa.PublicKey
}

// LoadSigningKeys читает PEM-файлы ключей по путям из конфигурации
func LoadSigningKeys(cfg *config.JWTConfig) (*SigningKeys, error) {
	privatePEM, err := os.ReadFile(cfg.PrivateKeyPath)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения приватного ключа: %w", err)
	}

	privateKey, err := jwt.ParseRSAPrivateKeyFromPEM(privatePEM)
	if err != nil {
		return nil, fmt.Errorf("ошибка парсинга приватного ключа: %w", err)
	}

	publicKeys := make(map[string]*rsa.PublicKey, len(cfg.PublicKeyPaths))
	for kid, path := range cfg.PublicKeyPaths {
		publicPEM, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("ошибка чтения публичного ключа %s: %w", kid, err)
		}

		publicKey, err := jwt.ParseRSAPublicKeyFromPEM(publicPEM)
		if err != nil {
			return nil, fmt.Errorf("ошибка парсинга публичного ключа %s: %w", kid, err)
		}
		publicKeys[kid] = publicKey
	}

	if _, ok := publicKeys[cfg.ActiveKid]; !ok {
		return nil, fmt.Errorf("для активного kid %s нет публичного ключа", cfg.ActiveKid)
	}

	return &SigningKeys{
		ActiveKid:  cfg.ActiveKid,
		PrivateKey: privateKey,
		PublicKeys: publicKeys,
	}, nil
}
