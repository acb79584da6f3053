// Package gormpersistence implements the repository interfaces on GORM/MySQL.
package gormpersistence

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"gorm.io/gorm"

	"github.com/slumio/Bro-code/internal/domain"
	"github.com/slumio/Bro-code/internal/repository"
)

// GormRoomRepository is the RoomRepository implementation backed by GORM.
type GormRoomRepository struct {
	db *gorm.DB
}

// NewGormRoomRepository creates a GormRoomRepository.
func NewGormRoomRepository(db *gorm.DB) *GormRoomRepository {
	if db == nil {
		panic("database connection cannot be nil for GormRoomRepository")
	}
	return &GormRoomRepository{db: db}
}

func (r *GormRoomRepository) FindByRoomID(ctx context.Context, roomID string) (*domain.Room, error) {
	var room domain.Room
	err := r.db.WithContext(ctx).Where("room_id = ?", roomID).First(&room).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("gorm: find room by room id '%s': %w", roomID, err)
	}
	return &room, nil
}

func (r *GormRoomRepository) Save(ctx context.Context, room *domain.Room) error {
	err := r.db.WithContext(ctx).Save(room).Error
	if err != nil {
		var mysqlErr *mysql.MySQLError
		if errors.As(err, &mysqlErr) && mysqlErr.Number == 1062 {
			return repository.ErrDuplicateEntry
		}
		return fmt.Errorf("gorm: save room (id: %d, room_id: %s): %w", room.ID, room.RoomID, err)
	}
	return nil
}

func (r *GormRoomRepository) TouchActivity(ctx context.Context, roomID string, at time.Time) error {
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		UpdateColumn("last_activity", at).Error
	if err != nil {
		return fmt.Errorf("gorm: touch activity for room '%s': %w", roomID, err)
	}
	return nil
}

func (r *GormRoomRepository) SaveDrawing(ctx context.Context, roomID string, snapshot string) error {
	res := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("room_id = ?", roomID).
		UpdateColumn("drawing", snapshot)
	if res.Error != nil {
		return fmt.Errorf("gorm: save drawing for room '%s': %w", roomID, res.Error)
	}
	if res.RowsAffected == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *GormRoomRepository) FindAll(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Order("last_activity DESC").Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find all rooms: %w", err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) FindInactiveBefore(ctx context.Context, cutoff time.Time) ([]domain.Room, error) {
	var rooms []domain.Room
	err := r.db.WithContext(ctx).Where("last_activity < ?", cutoff).Find(&rooms).Error
	if err != nil {
		return nil, fmt.Errorf("gorm: find rooms inactive before %s: %w", cutoff, err)
	}
	return rooms, nil
}

func (r *GormRoomRepository) Delete(ctx context.Context, id uint) error {
	err := r.db.WithContext(ctx).Delete(&domain.Room{}, id).Error
	if err != nil {
		return fmt.Errorf("gorm: delete room %d: %w", id, err)
	}
	return nil
}

func (r *GormRoomRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&domain.Room{}).Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count rooms: %w", err)
	}
	return count, nil
}

func (r *GormRoomRepository) CountMissingRoomID(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&domain.Room{}).
		Where("room_id IS NULL OR room_id = ''").
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("gorm: count rooms missing room id: %w", err)
	}
	return count, nil
}
