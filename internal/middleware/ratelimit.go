package middleware

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go-rental-store/internal/apperror"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter counts hits on a key inside a fixed window
type Limiter interface {
	// Hit records one request and returns the count so far and when the window resets
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error)
}

// RateLimit rejects requests above limit per client IP within window.
// Limiter failures let the request through.
func RateLimit(limiter Limiter, prefix string, limit int, window time.Duration, msg string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if limit <= 0 {
			return c.Next()
		}
		count, resetAt, err := limiter.Hit(c.UserContext(), prefix+":"+c.IP(), window)
		if err != nil {
			log.Warn().Err(err).Str("limiter", prefix).Msg("rate limiter unavailable, allowing request")
			return c.Next()
		}

		remaining := int64(limit) - count
		if remaining < 0 {
			remaining = 0
		}
		c.Set("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if count > int64(limit) {
			retry := int(time.Until(resetAt).Seconds()) + 1
			c.Set(fiber.HeaderRetryAfter, strconv.Itoa(retry))
			return apperror.RateLimited(msg)
		}
		return c.Next()
	}
}

// RedisLimiter shares counters across API instances
type RedisLimiter struct {
	rdb *redis.Client
}

func NewRedisLimiter(rdb *redis.Client) *RedisLimiter {
	return &RedisLimiter{rdb: rdb}
}

func (l *RedisLimiter) Hit(ctx context.Context, key string, window time.Duration) (int64, time.Time, error) {
	key = "ratelimit:" + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, key)
	pipe.ExpireNX(ctx, key, window)
	ttl := pipe.PTTL(ctx, key)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, time.Time{}, err
	}
	reset := ttl.Val()
	if reset <= 0 {
		reset = window
	}
	return incr.Val(), time.Now().Add(reset), nil
}

type windowEntry struct {
	count     int64
	windowEnd time.Time
}

// MemoryLimiter keeps counters in process. Used when redis is not configured.
type MemoryLimiter struct {
	mu      sync.Mutex
	entries map[string]*windowEntry
	now     func() time.Time
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{entries: make(map[string]*windowEntry), now: time.Now}
}

func (l *MemoryLimiter) Hit(_ context.Context, key string, window time.Duration) (int64, time.Time, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	entry, ok := l.entries[key]
	if !ok || now.After(entry.windowEnd) {
		entry = &windowEntry{windowEnd: now.Add(window)}
		l.entries[key] = entry
	}
	entry.count++
	return entry.count, entry.windowEnd, nil
}

// Purge drops expired windows
func (l *MemoryLimiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	purged := 0
	for key, entry := range l.entries {
		if now.After(entry.windowEnd) {
			delete(l.entries, key)
			purged++
		}
	}
	return purged
}

// RunPurge removes expired entries every interval until ctx is done
func (l *MemoryLimiter) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Purge(); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter entries purged")
			}
		}
	}
}
