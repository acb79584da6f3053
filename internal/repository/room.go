// Package repository defines the storage interfaces the services depend on.
// GORM implementations live under internal/infra/persistence/gorm, the Redis
// implementation under internal/infra/state/redis.
package repository

import (
	"context"
	"time"

	"github.com/slumio/Bro-code/internal/domain"
)

// RoomRepository stores the durable room records.
type RoomRepository interface {
	// FindByRoomID returns the room with the given client-facing id, or
	// ErrNotFound.
	FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error)

	// Save inserts or updates a room. A unique-constraint violation on the
	// room id is reported as ErrDuplicateEntry.
	Save(ctx context.Context, room *domain.Room) error

	// TouchActivity sets the room's last-activity timestamp.
	TouchActivity(ctx context.Context, roomID string, at time.Time) error

	// SaveDrawing overwrites the room's drawing snapshot (last write wins).
	SaveDrawing(ctx context.Context, roomID string, snapshot string) error

	// FindAll returns every persisted room, most recently active first.
	FindAll(ctx context.Context) ([]domain.Room, error)

	// FindInactiveBefore returns rooms whose last activity is older than the
	// cutoff. Used by the maintenance purge.
	FindInactiveBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error)

	// Delete removes a room record by primary key.
	Delete(ctx context.Context, id uint) error

	// Count returns the number of persisted rooms.
	Count(ctx context.Context) (int64, error)

	// CountMissingRoomID counts rows with an empty room id. Anything above
	// zero is an integrity violation flagged by the audit sweep.
	CountMissingRoomID(ctx context.Context) (int64, error)
}
