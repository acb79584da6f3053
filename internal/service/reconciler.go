package service

import (
	"context"
	"errors"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/repository"
)

// ResolutionSource tags how a node reference was resolved.
type ResolutionSource int

const (
	ResolvedByDurable ResolutionSource = iota
	ResolvedByTransient
	ResolvedByScan
)

func (s ResolutionSource) String() string {
	switch s {
	case ResolvedByDurable:
		return "durable"
	case ResolvedByTransient:
		return "transient"
	case ResolvedByScan:
		return "scan"
	}
	return "unknown"
}

// Reconciler maps between the two identifier spaces of a tree node: the
// transient id the editing client mints at creation time and the durable id
// the store assigns at first persistence. Every operation from any client may
// carry either id, so this is the single place that resolves references.
type Reconciler struct {
	fileRepo repository.FileRepository
	log      *logrus.Entry
}

// NewReconciler creates a Reconciler.
func NewReconciler(fileRepo repository.FileRepository, logger *logrus.Logger) *Reconciler {
	if fileRepo == nil {
		panic("FileRepository cannot be nil for Reconciler")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Reconciler{
		fileRepo: fileRepo,
		log:      logger.WithField("component", "reconciler"),
	}
}

// Resolve locates the node a reference points at within a room. The durable
// lookup is tried first (the store is the authority), then the transient
// lookup, then a bounded linear scan comparing stringified ids. The scan is a
// degraded path for the window in which client and store disagree on which id
// form is valid; it is logged so it stays visible.
//
// If the durable and transient lookups name different rows, that is an
// invariant violation: it is logged and the durable match wins.
func (r *Reconciler) Resolve(ctx context.Context, roomID string, ref dto.NodeRef) (*domain.FileNode, ResolutionSource, error) {
	if ref.IsZero() {
		return nil, 0, ErrNotFound
	}
	logCtx := r.log.WithFields(logrus.Fields{"room_id": roomID, "ref": ref.Raw})

	var byDurable *domain.FileNode
	if ref.Durable != 0 {
		node, err := r.fileRepo.FindByID(ctx, roomID, ref.Durable)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, 0, mapRepoError(err)
		}
		byDurable = node
	}

	var byTransient *domain.FileNode
	if ref.Transient != "" {
		node, err := r.fileRepo.FindByTransientID(ctx, roomID, ref.Transient)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, 0, mapRepoError(err)
		}
		byTransient = node
	}

	if byDurable != nil {
		if byTransient != nil && byTransient.ID != byDurable.ID {
			logCtx.WithFields(logrus.Fields{
				"durable_match":   byDurable.ID,
				"transient_match": byTransient.ID,
			}).Error("Durable and transient lookups disagree on node identity, preferring durable match")
		}
		return byDurable, ResolvedByDurable, nil
	}
	if byTransient != nil {
		return byTransient, ResolvedByTransient, nil
	}

	// Last resort: scan the room's collection comparing stringified ids.
	nodes, err := r.fileRepo.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, 0, mapRepoError(err)
	}
	for i := range nodes {
		node := &nodes[i]
		if strconv.FormatUint(uint64(node.ID), 10) == ref.Raw || (node.TransientID != "" && node.TransientID == ref.Raw) {
			logCtx.WithField("durable_id", node.ID).Warn("Node reference resolved by linear scan")
			return node, ResolvedByScan, nil
		}
	}
	return nil, 0, ErrNotFound
}

// AssignDurableID persists a node for the first time, letting the store
// assign its durable id. It is idempotent against retries: if a node with the
// same transient id already exists in the room, that node is returned instead
// of creating a duplicate.
func (r *Reconciler) AssignDurableID(ctx context.Context, node *domain.FileNode) (*domain.FileNode, error) {
	if node.TransientID != "" {
		existing, err := r.fileRepo.FindByTransientID(ctx, node.RoomID, node.TransientID)
		if err == nil {
			r.log.WithFields(logrus.Fields{
				"room_id":      node.RoomID,
				"transient_id": node.TransientID,
				"durable_id":   existing.ID,
			}).Debug("Durable id already assigned for transient id, returning existing node")
			return existing, nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return nil, mapRepoError(err)
		}
	}
	if err := r.fileRepo.Save(ctx, node); err != nil {
		return nil, mapRepoError(err)
	}
	return node, nil
}

// LinkParent resolves parentRef and stores both identifier forms of the
// parent pointer on the child, so later lookups by either id succeed. An
// unresolvable parent is not fatal: the node becomes root-level.
func (r *Reconciler) LinkParent(ctx context.Context, node *domain.FileNode, parentRef dto.NodeRef) error {
	if parentRef.IsZero() {
		node.ParentID = nil
		node.ParentTransientID = nil
		return nil
	}
	parent, _, err := r.Resolve(ctx, node.RoomID, parentRef)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			r.log.WithFields(logrus.Fields{
				"room_id": node.RoomID,
				"ref":     parentRef.Raw,
			}).Info("Parent reference unresolvable, keeping node at root level")
			node.ParentID = nil
			node.ParentTransientID = nil
			return nil
		}
		return err
	}
	node.ParentID = &parent.ID
	if parent.TransientID != "" {
		tid := parent.TransientID
		node.ParentTransientID = &tid
	} else {
		node.ParentTransientID = nil
	}
	return nil
}
