package attendance

import (
	"context"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Claims reserves a session ID for exactly one submission.
type Claims interface {
	Claim(ctx context.Context, sessionID string, ttl time.Duration) (bool, error)
	Release(ctx context.Context, sessionID string) error
}

// MemoryClaims is a process-local claim set.
type MemoryClaims struct {
	mu   sync.Mutex
	now  func() time.Time
	held map[string]time.Time
}

// NewMemoryClaims returns an empty claim set.
func NewMemoryClaims() *MemoryClaims {
	return &MemoryClaims{now: time.Now, held: make(map[string]time.Time)}
}

// Claim reserves sessionID for ttl and reports whether it was free.
func (m *MemoryClaims) Claim(_ context.Context, sessionID string, ttl time.Duration) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if exp, ok := m.held[sessionID]; ok && now.Before(exp) {
		return false, nil
	}
	m.held[sessionID] = now.Add(ttl)
	return true, nil
}

// Release frees sessionID.
func (m *MemoryClaims) Release(_ context.Context, sessionID string) error {
	m.mu.Lock()
	delete(m.held, sessionID)
	m.mu.Unlock()
	return nil
}

// RedisClaims shares claims between API replicas with SET NX.
type RedisClaims struct {
	client *redis.Client
	prefix string
}

// NewRedisClaims wraps a connected client.
func NewRedisClaims(client *redis.Client) *RedisClaims {
	return &RedisClaims{client: client, prefix: "academy:attendance:claim:"}
}

// Claim reserves sessionID with SET NX and reports whether it was free.
func (r *RedisClaims) Claim(ctx context.Context, sessionID string, ttl time.Duration) (bool, error) {
	return r.client.SetNX(ctx, r.prefix+sessionID, time.Now().UTC().Format(time.RFC3339), ttl).Result()
}

// Release frees sessionID.
func (r *RedisClaims) Release(ctx context.Context, sessionID string) error {
	return r.client.Del(ctx, r.prefix+sessionID).Err()
}
