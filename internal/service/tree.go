package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/repository"
)

// TreeService applies create/rename/delete/update operations to a room's
// persisted file tree, using the Reconciler to locate target nodes. Every
// successful mutation touches the room's activity timestamp; callers follow
// each mutation with a full structure broadcast so all clients converge.
type TreeService struct {
	fileRepo   repository.FileRepository
	roomRepo   repository.RoomRepository
	reconciler *Reconciler
	log        *logrus.Entry
}

// NewTreeService creates a TreeService.
func NewTreeService(fileRepo repository.FileRepository, roomRepo repository.RoomRepository, reconciler *Reconciler, logger *logrus.Logger) *TreeService {
	if fileRepo == nil || roomRepo == nil || reconciler == nil {
		panic("all dependencies must be non-nil for TreeService")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &TreeService{
		fileRepo:   fileRepo,
		roomRepo:   roomRepo,
		reconciler: reconciler,
		log:        logger.WithField("component", "tree"),
	}
}

// CreateNode constructs a FileNode, links its parent, and persists it. The
// returned node carries both identifier forms so the broadcast lets every
// client converge on the same ids. Re-sending a create for an already-stored
// transient id returns the existing node rather than a duplicate.
func (s *TreeService) CreateNode(ctx context.Context, roomID string, parentRef dto.NodeRef, spec dto.NewNode, nodeType string) (*domain.FileNode, error) {
	node := &domain.FileNode{
		RoomID:      roomID,
		TransientID: spec.TransientID,
		Name:        spec.Name,
		Type:        nodeType,
	}
	if nodeType == domain.NodeTypeFile {
		node.Content = spec.Content
	}
	if err := s.reconciler.LinkParent(ctx, node, parentRef); err != nil {
		return nil, err
	}
	stored, err := s.reconciler.AssignDurableID(ctx, node)
	if err != nil {
		return nil, err
	}
	s.touchActivity(ctx, roomID)
	s.log.WithFields(logrus.Fields{
		"room_id":      roomID,
		"durable_id":   stored.ID,
		"transient_id": stored.TransientID,
		"type":         stored.Type,
	}).Info("Node created")
	return stored, nil
}

// RenameNode updates a node's name in place. Fails with ErrNotFound if the
// reference cannot be resolved.
func (s *TreeService) RenameNode(ctx context.Context, roomID string, ref dto.NodeRef, newName string) (*domain.FileNode, error) {
	node, _, err := s.reconciler.Resolve(ctx, roomID, ref)
	if err != nil {
		return nil, err
	}
	node.Name = newName
	if err := s.fileRepo.Save(ctx, node); err != nil {
		return nil, mapRepoError(err)
	}
	s.touchActivity(ctx, roomID)
	return node, nil
}

// DeleteNode removes the referenced node from the collection. Descendants
// are not deleted: a folder delete leaves its children with dangling parent
// pointers, which resolve as root-level on the next structure refresh.
func (s *TreeService) DeleteNode(ctx context.Context, roomID string, ref dto.NodeRef) (*domain.FileNode, error) {
	node, _, err := s.reconciler.Resolve(ctx, roomID, ref)
	if err != nil {
		return nil, err
	}
	if err := s.fileRepo.Delete(ctx, node.ID); err != nil {
		return nil, mapRepoError(err)
	}
	s.touchActivity(ctx, roomID)
	s.log.WithFields(logrus.Fields{"room_id": roomID, "durable_id": node.ID}).Info("Node deleted")
	return node, nil
}

// UpdateContent overwrites a file's content (last write wins). Resolution
// runs durable first, then transient, then the scan fallback; the first
// strategy that succeeds wins.
func (s *TreeService) UpdateContent(ctx context.Context, roomID string, ref dto.NodeRef, content string) (*domain.FileNode, ResolutionSource, error) {
	node, source, err := s.reconciler.Resolve(ctx, roomID, ref)
	if err != nil {
		return nil, 0, err
	}
	node.Content = content
	if err := s.fileRepo.Save(ctx, node); err != nil {
		return nil, 0, mapRepoError(err)
	}
	s.touchActivity(ctx, roomID)
	return node, source, nil
}

// Structure returns the authoritative file collection of a room, used for
// the full-refresh broadcast after every mutation.
func (s *TreeService) Structure(ctx context.Context, roomID string) ([]domain.FileNode, error) {
	nodes, err := s.fileRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	return nodes, nil
}

// touchActivity is best-effort: a failed timestamp update must not fail the
// mutation that already persisted.
func (s *TreeService) touchActivity(ctx context.Context, roomID string) {
	if err := s.roomRepo.TouchActivity(ctx, roomID, time.Now().UTC()); err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.log.WithError(err).WithField("room_id", roomID).Warn("Failed to touch room activity")
		}
	}
}
