package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"taskboard/config"
	"taskboard/utils"
)

// MembershipRateLimiter throttles invitations and role changes per caller.
// Counters live in redis when it is enabled so every instance shares them.
func MembershipRateLimiter(storage fiber.Storage) fiber.Handler {
	max := config.AppConfig.RateLimitMembership
	if max <= 0 {
		max = 30
	}

	return limiter.New(limiter.Config{
		Max:        max,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			if user := CurrentUser(c); user != nil {
				return rateLimitKey(fmt.Sprint(user.ID), c.Path())
			}
			return rateLimitKey("ip:"+c.IP(), c.Path())
		},
		LimitReached: func(c *fiber.Ctx) error {
			fields := map[string]interface{}{
				"endpoint": c.Path(),
				"ip":       c.IP(),
			}
			if user := CurrentUser(c); user != nil {
				fields["user_id"] = user.ID
			}
			utils.LogEvent("rate_limit_hit", fields)

			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success":     false,
				"error":       "Too many membership changes. Please wait before trying again.",
				"retry_after": "1 minute",
			})
		},
		Storage: storage,
	})
}

func rateLimitKey(subject, path string) string {
	return fmt.Sprintf("rl:membership:%s:%s", subject, path)
}

// NewRateLimitStorage returns redis-backed storage, or nil for fiber's
// in-memory default.
func NewRateLimitStorage(cfg config.RedisConfig) fiber.Storage {
	if !cfg.Enabled {
		return nil
	}
	return NewRedisStorage(redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	}))
}

// RedisStorage implements fiber.Storage for Redis
type RedisStorage struct {
	client *redis.Client
}

func NewRedisStorage(client *redis.Client) *RedisStorage {
	return &RedisStorage{client: client}
}

// Get returns nil, nil for a missing key, as fiber.Storage requires.
func (r *RedisStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}
	val, err := r.client.Get(context.Background(), key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	return val, err
}

func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}
	return r.client.Set(context.Background(), key, val, exp).Err()
}

func (r *RedisStorage) Delete(key string) error {
	if key == "" {
		return nil
	}
	return r.client.Del(context.Background(), key).Err()
}

func (r *RedisStorage) Reset() error {
	return r.client.FlushDB(context.Background()).Err()
}

func (r *RedisStorage) Close() error {
	return r.client.Close()
}
