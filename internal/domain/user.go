// Package domain defines the persisted data models of the workspace.
package domain

import "time"

// User status values.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// User is the durable mirror of one live connection's presence state, keyed by
// the server-minted connection id. It exists for diagnostics and post-crash
// inspection only: the in-memory presence registry is authoritative while the
// connection lives, and this record is never read back to rebuild it.
type User struct {
	ID             uint      `gorm:"primaryKey"`
	ConnectionID   string    `gorm:"uniqueIndex:idx_connection_id;size:64;not null"`
	Username       string    `gorm:"size:191;not null"`
	RoomID         string    `gorm:"index;size:191;not null"`
	Status         string    `gorm:"size:10;not null"`
	Typing         bool      `gorm:"default:false"`
	CursorPosition int       `gorm:"default:0"`
	CurrentFileID  *uint     // durable id of the file last edited over this connection
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}
