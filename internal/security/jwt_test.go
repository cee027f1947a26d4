package security_test

import (
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"session-web-server/internal/autherr"
	"session-web-server/internal/model"
	"session-web-server/internal/security"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSigningKeys(t *testing.T, kid string) *security.SigningKeys {
	t.Helper()

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	return &security.SigningKeys{
		ActiveKid:  kid,
		PrivateKey: privateKey,
		PublicKeys: map[string]*rsa.PublicKey{kid: &privateKey.PublicKey},
	}
}

// Выпущенный токен сразу же проходит проверку и возвращает того же владельца
func TestMintVerify_RoundTrip(t *testing.T) {
	jwtService := security.NewJWTService(newTestSigningKeys(t, "test-v1"), "")

	jti, signed, expiresAt, err := jwtService.Mint("user-42", model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)
	assert.NotEmpty(t, jti)
	assert.NotEmpty(t, signed)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := jwtService.Verify(signed, model.TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
	assert.Equal(t, jti, claims.ID)
	assert.Equal(t, string(model.TokenTypeAccess), claims.TokenType)
}

// Каждый выпуск дает новый jti
func TestMint_UniqueJTI(t *testing.T) {
	jwtService := security.NewJWTService(newTestSigningKeys(t, "test-v1"), "")

	jti1, _, _, err := jwtService.Mint("user-42", model.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)
	jti2, _, _, err := jwtService.Mint("user-42", model.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	assert.NotEqual(t, jti1, jti2)
}

// Access токен не принимается там, где ожидается refresh
func TestVerify_WrongTokenType(t *testing.T) {
	jwtService := security.NewJWTService(newTestSigningKeys(t, "test-v1"), "")

	_, signed, _, err := jwtService.Mint("user-42", model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = jwtService.Verify(signed, model.TokenTypeRefresh)
	assert.True(t, errors.Is(err, autherr.ErrInvalidToken))
}

// Просроченный токен отклоняется
func TestVerify_Expired(t *testing.T) {
	jwtService := security.NewJWTService(newTestSigningKeys(t, "test-v1"), "")

	_, signed, _, err := jwtService.Mint("user-42", model.TokenTypeAccess, -time.Minute)
	require.NoError(t, err)

	_, err = jwtService.Verify(signed, model.TokenTypeAccess)
	assert.True(t, errors.Is(err, autherr.ErrInvalidToken))
}

// Токен, подписанный неизвестным ключом, отклоняется
func TestVerify_UnknownKid(t *testing.T) {
	signer := security.NewJWTService(newTestSigningKeys(t, "old-v1"), "")
	verifier := security.NewJWTService(newTestSigningKeys(t, "new-v1"), "")

	_, signed, _, err := signer.Mint("user-42", model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	_, err = verifier.Verify(signed, model.TokenTypeAccess)
	assert.True(t, errors.Is(err, autherr.ErrInvalidToken))
}

// Токен старого kid принимается, пока его публичный ключ есть в наборе
func TestVerify_RotatedKeyStillValid(t *testing.T) {
	oldKeys := newTestSigningKeys(t, "old-v1")
	signer := security.NewJWTService(oldKeys, "")

	newKeys := newTestSigningKeys(t, "new-v1")
	newKeys.PublicKeys["old-v1"] = oldKeys.PublicKeys["old-v1"]
	verifier := security.NewJWTService(newKeys, "")

	_, signed, _, err := signer.Mint("user-42", model.TokenTypeRefresh, time.Hour)
	require.NoError(t, err)

	claims, err := verifier.Verify(signed, model.TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, "user-42", claims.Subject)
}

// Подделанная строка токена отклоняется
func TestVerify_TamperedToken(t *testing.T) {
	jwtService := security.NewJWTService(newTestSigningKeys(t, "test-v1"), "")

	_, signed, _, err := jwtService.Mint("user-42", model.TokenTypeAccess, time.Hour)
	require.NoError(t, err)

	tampered := signed[:len(signed)-4] + "AAAA"
	_, err = jwtService.Verify(tampered, model.TokenTypeAccess)
	assert.True(t, errors.Is(err, autherr.ErrInvalidToken))
}
