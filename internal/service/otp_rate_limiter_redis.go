package service

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	otpLimitKeyPrefix   = "otp:rl:"
	redisLimiterTimeout = 500 * time.Millisecond
)

// redisOTPRateLimiter cuenta pedidos por email en una ventana fija
// compartida entre instancias.
type redisOTPRateLimiter struct {
	client redis.Cmdable
	window time.Duration
	limit  int64
}

// NewRedisOTPRateLimiter devuelve nil si no hay cliente.
func NewRedisOTPRateLimiter(client *redis.Client, window time.Duration, limit int) OTPRateLimiter {
	if client == nil {
		return nil
	}
	return newRedisOTPRateLimiter(client, window, limit)
}

func newRedisOTPRateLimiter(client redis.Cmdable, window time.Duration, limit int) *redisOTPRateLimiter {
	if window < time.Second {
		window = time.Minute
	}
	if limit <= 0 {
		limit = 1
	}
	return &redisOTPRateLimiter{client: client, window: window, limit: int64(limit)}
}

func otpLimitKey(emailAddr string) string {
	return otpLimitKeyPrefix + emailAddr
}

// Allow deja pasar el pedido si Redis no responde.
func (l *redisOTPRateLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil || l.client == nil {
		return true
	}
	emailAddr := normalizeEmail(key)
	if emailAddr == "" {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, redisLimiterTimeout)
	defer cancel()

	k := otpLimitKey(emailAddr)
	var (
		hits *redis.IntCmd
		ttl  *redis.DurationCmd
	)
	_, err := l.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		hits = pipe.Incr(ctx, k)
		ttl = pipe.TTL(ctx, k)
		return nil
	})
	if err != nil {
		return true
	}
	// primer hit de la ventana, o una clave que quedo sin expiracion
	if ttl.Val() < 0 {
		if err := l.client.Expire(ctx, k, l.window).Err(); err != nil {
			return true
		}
	}
	return hits.Val() <= l.limit
}
