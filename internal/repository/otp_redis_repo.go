package repository

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"auth-api/internal/domain"
)

type redisKV interface {
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Get(ctx context.Context, key string) *redis.StringCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// RedisOTPRepository guarda el codigo con TTL nativo igual a su expiracion.
type RedisOTPRepository struct {
	client redisKV
	prefix string
}

func NewRedisOTPRepository(client *redis.Client) *RedisOTPRepository {
	return &RedisOTPRepository{
		client: client,
		prefix: "otp:code:",
	}
}

func (r *RedisOTPRepository) key(email string) string {
	return r.prefix + strings.ToLower(strings.TrimSpace(email))
}

func (r *RedisOTPRepository) Replace(ctx context.Context, code domain.OneTimeCode) error {
	ttl := time.Until(code.ExpiresAt)
	if ttl <= 0 {
		return r.DeleteByEmail(ctx, code.Email)
	}
	payload, err := json.Marshal(code)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, r.key(code.Email), payload, ttl).Err()
}

func (r *RedisOTPRepository) GetByEmail(ctx context.Context, email string) (domain.OneTimeCode, error) {
	raw, err := r.client.Get(ctx, r.key(email)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.OneTimeCode{}, ErrNotFound
		}
		return domain.OneTimeCode{}, err
	}
	var code domain.OneTimeCode
	if err := json.Unmarshal(raw, &code); err != nil {
		return domain.OneTimeCode{}, err
	}
	return code, nil
}

func (r *RedisOTPRepository) DeleteByEmail(ctx context.Context, email string) error {
	return r.client.Del(ctx, r.key(email)).Err()
}
