package redis

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// SessionMarker mirrors live quiz sessions into Redis as TTL keys. Sessions
// themselves stay in process memory; the markers give operators visibility
// into in-flight sessions and expire on their own if an instance dies.
type SessionMarker struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionMarker(client *redis.Client, ttl time.Duration) *SessionMarker {
	return &SessionMarker{client: client, ttl: ttl}
}

// Mark records a session as live. Best effort.
func (m *SessionMarker) Mark(ctx context.Context, sessionID string) {
	_ = m.client.Set(ctx, m.key(sessionID), "1", m.ttl).Err()
}

// Clear removes the liveness key on submit or teardown. Best effort.
func (m *SessionMarker) Clear(ctx context.Context, sessionID string) {
	_ = m.client.Del(ctx, m.key(sessionID)).Err()
}

func (m *SessionMarker) key(sessionID string) string {
	return "quiz:session:" + sessionID
}
