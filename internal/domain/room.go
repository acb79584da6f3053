package domain

import "time"

// Room is a collaborative session containing a file tree, a chat log and a
// drawing snapshot. Rooms are created lazily on the first join to an unknown
// room id and are reclaimed only by the maintenance purge.
type Room struct {
	ID           uint      `gorm:"primaryKey"`
	RoomID       string    `gorm:"uniqueIndex:idx_room_id;size:191;not null"` // client-facing room identifier
	Drawing      string    `gorm:"type:longtext"`                             // opaque snapshot, last write wins, no history
	LastActivity time.Time `gorm:"index"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
