// Package http holds the operator-facing REST endpoints: service status and
// read-only room inspection. All collaborative traffic rides the WebSocket.
package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/slumio/Bro-code/internal/dto"
	"github.com/slumio/Bro-code/internal/service"
)

// RoomHandler serves the status and room inspection endpoints.
type RoomHandler struct {
	roomService *service.RoomService
	treeService *service.TreeService
}

// NewRoomHandler creates a RoomHandler.
func NewRoomHandler(roomService *service.RoomService, treeService *service.TreeService) *RoomHandler {
	if roomService == nil || treeService == nil {
		panic("all services must be non-nil for RoomHandler")
	}
	return &RoomHandler{roomService: roomService, treeService: treeService}
}

// Status reports persistence connectivity and store counts. It always
// answers 200; a degraded store shows up as databaseConnected=false.
func (h *RoomHandler) Status(c *gin.Context) {
	st := h.roomService.Status(c.Request.Context())
	SuccessResponse(c, http.StatusOK, st)
}

// RoomSummary is the list-view projection of a room.
type RoomSummary struct {
	RoomID       string `json:"roomId"`
	LastActivity string `json:"lastActivity"`
}

// ListRooms returns every persisted room.
func (h *RoomHandler) ListRooms(c *gin.Context) {
	rooms, err := h.roomService.ListRooms(c.Request.Context())
	if err != nil {
		logrus.WithError(err).Error("Handler.ListRooms: Failed to list rooms")
		HandleServiceError(c, err)
		return
	}
	summaries := make([]RoomSummary, 0, len(rooms))
	for _, r := range rooms {
		summaries = append(summaries, RoomSummary{
			RoomID:       r.RoomID,
			LastActivity: r.LastActivity.UTC().Format("2006-01-02T15:04:05Z07:00"),
		})
	}
	SuccessResponse(c, http.StatusOK, gin.H{"rooms": summaries})
}

// RoomDetail is the inspection view of one room: its tree and chat log.
type RoomDetail struct {
	RoomID       string               `json:"roomId"`
	Files        []dto.FileNodeDTO    `json:"files"`
	ChatMessages []dto.ChatMessageDTO `json:"chatMessages"`
}

// GetRoom returns one room with its file collection and chat history.
func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID := c.Param("roomId")
	logCtx := logrus.WithField("room_id", roomID)

	room, err := h.roomService.FindRoom(c.Request.Context(), roomID)
	if err != nil {
		logCtx.WithError(err).Warn("Handler.GetRoom: Room lookup failed")
		HandleServiceError(c, err)
		return
	}

	nodes, err := h.treeService.Structure(c.Request.Context(), room.RoomID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.GetRoom: Failed to load file structure")
		HandleServiceError(c, err)
		return
	}
	files := make([]dto.FileNodeDTO, 0, len(nodes))
	for i := range nodes {
		n := &nodes[i]
		files = append(files, dto.FileNodeDTO{
			DurableID:         n.ID,
			TransientID:       n.TransientID,
			Name:              n.Name,
			Type:              n.Type,
			Content:           n.Content,
			ParentDurableID:   n.ParentID,
			ParentTransientID: n.ParentTransientID,
		})
	}

	msgs, err := h.roomService.ChatLog(c.Request.Context(), room.RoomID)
	if err != nil {
		logCtx.WithError(err).Error("Handler.GetRoom: Failed to load chat log")
		HandleServiceError(c, err)
		return
	}
	chat := make([]dto.ChatMessageDTO, 0, len(msgs))
	for _, m := range msgs {
		chat = append(chat, dto.ChatMessageDTO{
			Username:  m.Username,
			Message:   m.Message,
			Timestamp: m.Timestamp,
		})
	}

	SuccessResponse(c, http.StatusOK, RoomDetail{
		RoomID:       room.RoomID,
		Files:        files,
		ChatMessages: chat,
	})
}
