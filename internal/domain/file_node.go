package domain

import "time"

// Node types stored in FileNode.Type.
const (
	NodeTypeFile   = "file"
	NodeTypeFolder = "folder"
)

// FileNode is a file or folder in a room's tree. The primary key is the
// durable id: assigned by the store exactly once, at first persistence, and
// immutable afterwards. TransientID is the identifier the creating client
// minted before the persistence round-trip completed; it stays stable for the
// node's lifetime so any later operation may reference the node by either id.
//
// ParentID/ParentTransientID mirror the parent's two ids. Deleting a folder
// does not cascade; children keep their parent pointers and resolve as
// root-level nodes once the pointer dangles.
type FileNode struct {
	ID                uint      `gorm:"primaryKey"` // durable id
	RoomID            string    `gorm:"index:idx_room_transient,priority:1;size:191;not null"`
	TransientID       string    `gorm:"index:idx_room_transient,priority:2;size:64"` // client-minted, may be empty
	Name              string    `gorm:"size:255;not null"`
	Type              string    `gorm:"size:10;not null"`
	Content           string    `gorm:"type:longtext"` // files only, empty for folders
	ParentID          *uint     `gorm:"index"`
	ParentTransientID *string   `gorm:"size:64"`
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// IsFolder reports whether the node is a folder.
func (n *FileNode) IsFolder() bool {
	return n.Type == NodeTypeFolder
}
