package domain

import "time"

// ChatMessage is one entry of a room's append-only chat log, ordered by
// insertion.
type ChatMessage struct {
	ID        uint      `gorm:"primaryKey"`
	RoomID    string    `gorm:"index;size:191;not null"`
	Username  string    `gorm:"size:191;not null"`
	Message   string    `gorm:"type:text;not null"`
	Timestamp time.Time `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}
