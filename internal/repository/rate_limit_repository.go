package repository

import (
	"context"
	"fmt"
	"log"
	"time"

	"session-web-server/config"
	"session-web-server/internal/util"

	"github.com/redis/go-redis/v9"
)

// Скрипт выполняет INCR и выставление TTL атомарно: раздельная пара
// INCR+EXPIRE под конкурентными запросами теряет TTL, и ключ живет вечно
var rateLimitScript = redis.NewScript(`
local current = redis.call('INCR', KEYS[1])
if current == 1 then
    redis.call('EXPIRE', KEYS[1], ARGV[1])
end
if current > tonumber(ARGV[2]) then
    return 0
end
return current
`)

type RateLimitRepository struct {
	client *config.RedisClient
}

func NewRateLimitRepository(rdb *config.RedisClient) *RateLimitRepository {
	return &RateLimitRepository{rdb}
}

// Check инкрементирует счетчик каждого ключа и возвращает true, если хотя
// бы один превысил лимит. Счетчики не откатываются при отказе: уже
// заблокированный трафик продолжает накручивать окно. Какой именно ключ
// сработал, наружу не сообщается, только в лог.
func (r *RateLimitRepository) Check(ctx context.Context, keys []string, limit int, window time.Duration) (bool, error) {
	windowSeconds := int(window.Seconds())
	if windowSeconds < 1 {
		windowSeconds = 1
	}

	exceeded := false
	for _, key := range keys {
		res, err := rateLimitScript.Run(ctx, r.client.Client, []string{key}, windowSeconds, limit).Int()
		if err != nil {
			return false, util.LogError("[RateLimit] ошибка выполнения скрипта", err)
		}
		if res == 0 {
			log.Printf("[RateLimit] превышен лимит по ключу %s", key)
			exceeded = true
		}
	}

	return exceeded, nil
}

// BuildRateLimitKeys собирает ключи по адресу, пользователю и устройству.
// Пустые составляющие пропускаются.
func BuildRateLimitKeys(ipAddress, userUUID, deviceID string) []string {
	var keys []string
	if ipAddress != "" {
		keys = append(keys, fmt.Sprintf("rate:ip:%s", ipAddress))
	}
	if userUUID != "" {
		keys = append(keys, fmt.Sprintf("rate:user:%s", userUUID))
	}
	if deviceID != "" {
		keys = append(keys, fmt.Sprintf("rate:device:%s", deviceID))
	}
	return keys
}
