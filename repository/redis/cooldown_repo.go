package redis

import (
	"context"
	"fmt"
	"time"

	redislib "github.com/redis/go-redis/v9"

	"github.com/fastygo/mudai/repository"
)

type cooldownRepository struct {
	client *redislib.Client
	prefix string
}

// NewCooldownRepository creates a Redis-backed cooldown repository.
func NewCooldownRepository(client *redislib.Client, prefix string) repository.CooldownRepository {
	if prefix == "" {
		prefix = "cooldown:"
	}
	return &cooldownRepository{
		client: client,
		prefix: prefix,
	}
}

func (r *cooldownRepository) Acquire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		return true, nil
	}
	return r.client.SetNX(ctx, r.key(key), time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

func (r *cooldownRepository) Remaining(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := r.client.PTTL(ctx, r.key(key)).Result()
	if err != nil {
		return 0, err
	}
	// -2: missing key, -1: no expiry
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

func (r *cooldownRepository) Release(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.key(key)).Err()
}

func (r *cooldownRepository) key(id string) string {
	return fmt.Sprintf("%s%s", r.prefix, id)
}
