package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	appContext "github.com/alphabatem/common/context"
	"github.com/lac-hong-legacy/tutor_api/shared"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
)

var ErrRedisUnavailable = errors.New("redis client not initialized")

// RedisService is optional. When the server cannot be reached at startup the
// client is dropped and every call returns ErrRedisUnavailable, which callers
// treat as a cache miss.
type RedisService struct {
	appContext.DefaultService
	redis *redis.Client
}

const REDIS_SVC = "redis_svc"

func (svc RedisService) Id() string {
	return REDIS_SVC
}

func (svc *RedisService) Configure(ctx *appContext.Context) error {
	svc.initRedisClient()
	return svc.DefaultService.Configure(ctx)
}

func (svc *RedisService) Start() error {
	if svc.redis == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	if _, err := svc.redis.Ping(ctx).Result(); err != nil {
		log.WithError(err).Warn("Redis unreachable, continuing without cache and rate limiting")
		svc.redis.Close()
		svc.redis = nil
	}
	return nil
}

func (svc *RedisService) Shutdown() {
	if svc.redis != nil {
		svc.redis.Close()
	}
}

func (svc *RedisService) initRedisClient() {
	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}

	redisDB := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if db, err := strconv.Atoi(dbStr); err == nil {
			redisDB = db
		}
	}

	svc.redis = redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       redisDB,
	})
}

// NewRedisService wraps an existing client.
func NewRedisService(client *redis.Client) *RedisService {
	return &RedisService{redis: client}
}

func (svc *RedisService) Available() bool {
	return svc != nil && svc.redis != nil
}

func (svc *RedisService) GetClient() *redis.Client {
	return svc.redis
}

func (svc *RedisService) SetJSON(ctx context.Context, key string, value interface{}, expiration time.Duration) error {
	if !svc.Available() {
		return ErrRedisUnavailable
	}

	data, err := shared.JSONAPI.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal value: %w", err)
	}

	return svc.redis.Set(ctx, key, data, expiration).Err()
}

// GetJSON reports whether the key was present.
func (svc *RedisService) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	if !svc.Available() {
		return false, ErrRedisUnavailable
	}

	result, err := svc.redis.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	return true, shared.JSONAPI.Unmarshal(result, dest)
}

func (svc *RedisService) Delete(ctx context.Context, keys ...string) error {
	if !svc.Available() {
		return ErrRedisUnavailable
	}

	return svc.redis.Del(ctx, keys...).Err()
}

// IncrementWindow increments key and sets its expiry when the window opens.
// It returns the new count and the remaining time to live.
func (svc *RedisService) IncrementWindow(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	if !svc.Available() {
		return 0, 0, ErrRedisUnavailable
	}

	count, err := svc.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, 0, err
	}
	if count == 1 {
		if err := svc.redis.Expire(ctx, key, window).Err(); err != nil {
			return count, 0, err
		}
		return count, window, nil
	}

	ttl, err := svc.redis.TTL(ctx, key).Result()
	if err != nil {
		return count, 0, err
	}
	if ttl < 0 {
		// the key lost its expiry; restart the window
		svc.redis.Expire(ctx, key, window)
		ttl = window
	}
	return count, ttl, nil
}
