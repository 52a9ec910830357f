package utils

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// RedisGuard is a Guard shared by every process pointing at the same Redis.
// Locks expire after ttl so a dead holder cannot keep a channel locked.
type RedisGuard struct {
	client *redis.Client
	prefix string
	ttl    time.Duration

	mu     sync.Mutex
	tokens map[string]string
}

func NewRedisGuard(client *redis.Client, prefix string, ttl time.Duration) *RedisGuard {
	return &RedisGuard{
		client: client,
		prefix: prefix,
		ttl:    ttl,
		tokens: make(map[string]string),
	}
}

// NewRedisGuardFromURL parses url and connects.
func NewRedisGuardFromURL(ctx context.Context, url string, ttl time.Duration) (*RedisGuard, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return NewRedisGuard(client, "guard:", ttl), nil
}

func (g *RedisGuard) TryAcquire(ctx context.Context, key string) (bool, error) {
	token := uuid.NewString()
	ok, err := g.client.SetNX(ctx, g.prefix+key, token, g.ttl).Result()
	if err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	g.mu.Lock()
	g.tokens[key] = token
	g.mu.Unlock()
	return true, nil
}

func (g *RedisGuard) Release(ctx context.Context, key string) error {
	g.mu.Lock()
	token, ok := g.tokens[key]
	delete(g.tokens, key)
	g.mu.Unlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrGuardNotHeld, key)
	}

	n, err := releaseScript.Run(ctx, g.client, []string{g.prefix + key}, token).Int()
	if err != nil {
		return fmt.Errorf("failed to release guard %s: %w", key, err)
	}
	if n == 0 {
		// Expired and possibly taken by someone else; nothing of ours to delete.
		return fmt.Errorf("%w: %s (expired)", ErrGuardNotHeld, key)
	}
	return nil
}

func (g *RedisGuard) Close() error {
	return g.client.Close()
}
