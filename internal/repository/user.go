package repository

import (
	"context"
	"time"

	"github.com/slumio/Bro-code/internal/domain"
)

// UserRepository stores the durable presence mirror. Writes are best-effort:
// the in-memory registry never waits on, or reads back from, these records.
type UserRepository interface {
	// Upsert inserts or updates the record keyed by connection id.
	Upsert(ctx context.Context, user *domain.User) error

	// SetStatus updates only the status of the record for a connection id.
	SetStatus(ctx context.Context, connectionID, status string) error

	// Count returns the total number of mirrored user records.
	Count(ctx context.Context) (int64, error)

	// DeleteOfflineBefore removes offline records not updated since the
	// cutoff. Used by the maintenance purge.
	DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error)
}
