package repository

import (
	"context"

	"github.com/slumio/Bro-code/internal/domain"
)

// ChatRepository stores the per-room append-only chat log.
type ChatRepository interface {
	// Append persists one chat message.
	Append(ctx context.Context, msg *domain.ChatMessage) error

	// ListByRoom returns a room's chat log in insertion order.
	ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error)

	// DeleteByRoom removes a room's chat log (maintenance purge).
	DeleteByRoom(ctx context.Context, roomID string) error
}
