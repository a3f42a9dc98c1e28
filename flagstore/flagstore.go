// Package flagstore holds the single "auto sign-out" flag behind the
// remember-me contract. The flag is session-scoped: it must not survive the
// browsing session it was written in, which the Memory store guarantees by
// construction and the Redis store approximates with a TTL bound to the
// scope key.
package flagstore

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Store reads and writes the auto-sign-out flag. A missing flag means
// "remembered" (no forced sign-out).
type Store interface {
	// SetAutoSignOut marks the session for sign-out at termination.
	SetAutoSignOut(ctx context.Context) error
	// ClearAutoSignOut removes the mark. Clearing an absent flag is a no-op.
	ClearAutoSignOut(ctx context.Context) error
	// AutoSignOut reports whether the mark is set.
	AutoSignOut(ctx context.Context) (bool, error)
}

// Memory is a process-local Store; it disappears with the process, matching
// browser sessionStorage semantics.
type Memory struct {
	mu  sync.Mutex
	set bool
}

// NewMemory returns an unset Memory store.
func NewMemory() *Memory { return &Memory{} }

// SetAutoSignOut implements Store.
func (m *Memory) SetAutoSignOut(ctx context.Context) error {
	m.mu.Lock()
	m.set = true
	m.mu.Unlock()
	return nil
}

// ClearAutoSignOut implements Store.
func (m *Memory) ClearAutoSignOut(ctx context.Context) error {
	m.mu.Lock()
	m.set = false
	m.mu.Unlock()
	return nil
}

// AutoSignOut implements Store.
func (m *Memory) AutoSignOut(ctx context.Context) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.set, nil
}

// Redis scopes the flag to one browsing session via scopeID and expires it
// with the session's natural lifetime.
type Redis struct {
	redis redis.UniversalClient
	key   string
	ttl   time.Duration
}

// NewRedis returns a Redis store for the given scope. TTL defaults to 12h
// when non-positive.
func NewRedis(client redis.UniversalClient, scopeID string, ttl time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &Redis{
		redis: client,
		key:   "auto_signout:" + scopeID,
		ttl:   ttl,
	}
}

// SetAutoSignOut implements Store.
func (r *Redis) SetAutoSignOut(ctx context.Context) error {
	return r.redis.Set(ctx, r.key, "true", r.ttl).Err()
}

// ClearAutoSignOut implements Store.
func (r *Redis) ClearAutoSignOut(ctx context.Context) error {
	return r.redis.Del(ctx, r.key).Err()
}

// AutoSignOut implements Store.
func (r *Redis) AutoSignOut(ctx context.Context) (bool, error) {
	val, err := r.redis.Get(ctx, r.key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return val == "true", nil
}
