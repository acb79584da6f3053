package gormpersistence

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/repository"
)

// GormFileRepository is the FileRepository implementation backed by GORM. The
// durable id of every node is the auto-increment primary key the store
// assigns on first insert.
type GormFileRepository struct {
	db *gorm.DB
}

// NewGormFileRepository creates a GormFileRepository.
func NewGormFileRepository(db *gorm.DB) *GormFileRepository {
	if db == nil {
		panic("database connection cannot be nil for GormFileRepository")
	}
	return &GormFileRepository{db: db}
}

func (r *GormFileRepository) FindByID(ctx context.Context, roomID string, id uint) (*domain.FileNode, error) {
	var node domain.FileNode
	err := r.db.WithContext(ctx).Where("room_id = ? AND id = ?", roomID, id).First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find file node %d in room '%s': %w", id, roomID, err)
	}
	return &node, nil
}

func (r *GormFileRepository) FindByTransientID(ctx context.Context, roomID, transientID string) (*domain.FileNode, error) {
	if transientID == "" {
		return nil, repository.ErrNotFound
	}
	var node domain.FileNode
	err := r.db.WithContext(ctx).
		Where("room_id = ? AND transient_id = ?", roomID, transientID).
		First(&node).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find file node by transient id '%s' in room '%s': %w", transientID, roomID, err)
	}
	return &node, nil
}

func (r *GormFileRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.FileNode, error) {
	var nodes []domain.FileNode
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id ASC").Find(&nodes).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list file nodes of room '%s': %w", roomID, err)
	}
	return nodes, nil
}

func (r *GormFileRepository) Save(ctx context.Context, node *domain.FileNode) error {
	err := r.db.WithContext(ctx).Save(node).Error
	if err != nil {
		return fmt.Errorf("gorm: save file node (id: %d, transient: %s, room: %s): %w",
			node.ID, node.TransientID, node.RoomID, err)
	}
	return nil
}

func (r *GormFileRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&domain.FileNode{}, id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete file node %d: %w", id, err)
	}
	return nil
}

func (r *GormFileRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.FileNode{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete file nodes of room '%s': %w", roomID, err)
	}
	return nil
}

func (r *GormFileRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.FileNode{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count file nodes: %w", err)
	}
	return count, nil
}

func (r *GormFileRepository) CountOrphans(ctx context.Context) (int64, error) {
	var count int64
	parents := r.db.Model(&domain.FileNode{}).Select("id")
	err := r.db.WithContext(ctx).
		Model(&domain.FileNode{}).
		Where("parent_id IS NOT NULL AND parent_id NOT IN (?)", parents).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count orphaned file nodes: %w", err)
	}
	return count, nil
}
