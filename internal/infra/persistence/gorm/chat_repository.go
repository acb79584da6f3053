package gormpersistence

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/slumio/Bro-code/internal/domain"
)

// GormChatRepository is the ChatRepository implementation backed by GORM.
type GormChatRepository struct {
	db *gorm.DB
}

// NewGormChatRepository creates a GormChatRepository.
func NewGormChatRepository(db *gorm.DB) *GormChatRepository {
	if db == nil {
		panic("database connection cannot be nil for GormChatRepository")
	}
	return &GormChatRepository{db: db}
}

func (r *GormChatRepository) Append(ctx context.Context, msg *domain.ChatMessage) error {
	err := r.db.WithContext(ctx).Create(msg).Error
	if err != nil {
		return fmt.Errorf("gorm: append chat message for room '%s': %w", msg.RoomID, err)
	}
	return nil
}

func (r *GormChatRepository) ListByRoom(ctx context.Context, roomID string) ([]domain.ChatMessage, error) {
	var msgs []domain.ChatMessage
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Order("id ASC").Find(&msgs).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: list chat messages of room '%s': %w", roomID, err)
	}
	return msgs, nil
}

func (r *GormChatRepository) DeleteByRoom(ctx context.Context, roomID string) error {
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).Delete(&domain.ChatMessage{}).Error
	if err != nil {
		return fmt.Errorf("gorm: delete chat messages of room '%s': %w", roomID, err)
	}
	return nil
}
