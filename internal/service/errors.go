package service

import (
	"errors"

	"github.com/slumio/Bro-code/internal/repository"
)

// Business errors surfaced to the hub and HTTP handlers. Handlers decide per
// error whether to skip silently, notify the origin connection, or return an
// HTTP status; none of them may take down other connections.
var (
	ErrNotFound               = errors.New("referenced record not found")
	ErrUsernameTaken          = errors.New("username already taken in this room")
	ErrPersistenceUnavailable = errors.New("persistent store unavailable")
	ErrInternalServer         = errors.New("internal server error")
)

// mapRepoError converts repository failures into service errors. Anything
// that is not a clean miss is treated as the store being unavailable.
func mapRepoError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return ErrPersistenceUnavailable
}
