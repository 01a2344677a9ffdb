package utils

import (
	"context"
	"net"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/pedulirasa/backend/config"
)

var (
	redisClient *redis.Client
	redisMu     sync.RWMutex
)

// InitRedis creates the shared Redis client. An empty RedisHost leaves Redis disabled,
// in which case callers fall back to in-process state.
func InitRedis(cfg config.AppConfig) *redis.Client {
	if cfg.RedisHost == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		Sugar.Warnf("redis ping failed, continuing with fallbacks: %v", err)
	}
	SetRedis(client)
	return client
}

// SetRedis replaces the shared client; nil disables Redis.
func SetRedis(c *redis.Client) {
	redisMu.Lock()
	redisClient = c
	redisMu.Unlock()
}

// GetRedis returns the shared Redis client or nil when Redis is disabled.
func GetRedis() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}
