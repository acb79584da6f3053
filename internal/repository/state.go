package repository

import (
	"context"
	"time"
)

// StateRepository covers the transient, Redis-backed state: the hot drawing
// snapshot cache and the HTTP rate-limit counters. Losing this state is
// harmless; the durable store remains the source of truth.
type StateRepository interface {
	// GetDrawingCache returns the cached drawing snapshot for a room, or
	// ErrNotFound on a cache miss.
	GetDrawingCache(ctx context.Context, roomID string) (string, error)

	// SetDrawingCache stores the drawing snapshot with a TTL; ttl 0 means no
	// expiry.
	SetDrawingCache(ctx context.Context, roomID string, snapshot string, ttl time.Duration) error

	// ClearRoomState removes all cached keys of a room.
	ClearRoomState(ctx context.Context, roomID string) error

	// CheckRateLimit increments the counter for key and reports whether the
	// limit within the window is exceeded.
	CheckRateLimit(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}
