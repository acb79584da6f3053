package repository

import (
	"context"

	"github.com/slumio/Bro-code/internal/domain"
)

// FileRepository stores the per-room file tree.
type FileRepository interface {
	// FindByID returns the node with the given durable id scoped to one
	// room, or ErrNotFound.
	FindByID(ctx context.Context, roomID string, id uint) (*domain.FileNode, error)

	// FindByTransientID returns the node carrying the given client-minted id
	// within a room, or ErrNotFound.
	FindByTransientID(ctx context.Context, roomID, transientID string) (*domain.FileNode, error)

	// ListByRoom returns all nodes of a room ordered by durable id.
	ListByRoom(ctx context.Context, roomID string) ([]domain.FileNode, error)

	// Save inserts or updates a node. On insert the store assigns the
	// durable id (primary key).
	Save(ctx context.Context, node *domain.FileNode) error

	// Delete removes a single node by durable id. Descendants are not
	// touched.
	Delete(ctx context.Context, id uint) error

	// DeleteByRoom removes every node of a room (maintenance purge).
	DeleteByRoom(ctx context.Context, roomID string) error

	// Count returns the total number of stored nodes.
	Count(ctx context.Context) (int64, error)

	// CountOrphans counts nodes whose parent pointer references a durable id
	// that no longer exists.
	CountOrphans(ctx context.Context) (int64, error)
}
