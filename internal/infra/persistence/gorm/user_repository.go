package gormpersistence

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/slumio/Bro-code/internal/domain"
)

// GormUserRepository is the UserRepository implementation backed by GORM. It
// holds the durable presence mirror keyed by connection id.
type GormUserRepository struct {
	db *gorm.DB
}

// NewGormUserRepository creates a GormUserRepository.
func NewGormUserRepository(db *gorm.DB) *GormUserRepository {
	if db == nil {
		panic("database connection cannot be nil for GormUserRepository")
	}
	return &GormUserRepository{db: db}
}

func (r *GormUserRepository) Upsert(ctx context.Context, user *domain.User) error {
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "connection_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"username", "room_id", "status", "typing", "cursor_position", "current_file_id", "updated_at",
		}),
	}).Create(user).Error
	if err != nil {
		return fmt.Errorf("gorm: upsert user mirror (connection: %s): %w", user.ConnectionID, err)
	}
	return nil
}

func (r *GormUserRepository) SetStatus(ctx context.Context, connectionID, status string) error {
	err := r.db.WithContext(ctx).
		Model(&domain.User{}).
		Where("connection_id = ?", connectionID).
		Update("status", status).Error
	if err != nil {
		return fmt.Errorf("gorm: set status '%s' for connection '%s': %w", status, connectionID, err)
	}
	return nil
}

func (r *GormUserRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.User{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count users: %w", err)
	}
	return count, nil
}

func (r *GormUserRepository) DeleteOfflineBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", domain.StatusOffline, cutoff).
		Delete(&domain.User{})
	if res.Error != nil {
		return 0, fmt.Errorf("gorm: delete offline users before %s: %w", cutoff, res.Error)
	}
	return res.RowsAffected, nil
}
