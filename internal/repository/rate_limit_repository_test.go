package repository_test

import (
	"testing"

	"session-web-server/internal/repository"

	"github.com/stretchr/testify/assert"
)

// Ключи строятся по каждому известному измерению, пустые пропускаются
func TestBuildRateLimitKeys(t *testing.T) {
	keys := repository.BuildRateLimitKeys("192.0.2.1", "u1", "d1")
	assert.Equal(t, []string{"rate:ip:192.0.2.1", "rate:user:u1", "rate:device:d1"}, keys)
}

func TestBuildRateLimitKeys_PartialOrigin(t *testing.T) {
	keys := repository.BuildRateLimitKeys("192.0.2.1", "", "")
	assert.Equal(t, []string{"rate:ip:192.0.2.1"}, keys)
}

func TestBuildRateLimitKeys_Empty(t *testing.T) {
	keys := repository.BuildRateLimitKeys("", "", "")
	assert.Empty(t, keys)
}
