package handler

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/rooms"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func roomIDParam(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil || id == 0 {
		return 0, apperr.New(apperr.CodeRoomNotFound)
	}
	return uint(id), nil
}

// ListRooms GET /api/rooms
func (h *Handler) ListRooms(c *gin.Context) {
	list, err := h.Rooms.ListPublicRooms(c.Request.Context(), currentIdentity(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rooms": list})
}

// CreateRoom POST /api/rooms
func (h *Handler) CreateRoom(c *gin.Context) {
	var req rooms.CreateRoomInput
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, &apperr.Error{Code: apperr.CodeInvalidPayload, Err: err})
		return
	}
	room, err := h.Rooms.CreateRoom(context.WithoutCancel(c.Request.Context()), *currentIdentity(c), req)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"room": room})
}

type joinRoomRequest struct {
	Name     string `json:"name"`
	Password string `json:"password"`
}

// JoinRoom POST /api/rooms/join
func (h *Handler) JoinRoom(c *gin.Context) {
	var req joinRoomRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, &apperr.Error{Code: apperr.CodeInvalidPayload, Err: err})
		return
	}
	room, err := h.Rooms.JoinRoom(context.WithoutCancel(c.Request.Context()), *currentIdentity(c), req.Name, req.Password)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"room": room})
}

// LeaveRoom POST /api/rooms/:room_id/leave
func (h *Handler) LeaveRoom(c *gin.Context) {
	roomID, err := roomIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	if err := h.Rooms.LeaveRoom(context.WithoutCancel(c.Request.Context()), *currentIdentity(c), roomID); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondInfo(c, http.StatusOK, "info.left_room")
}

// GetRoomMessages GET /api/rooms/:room_id/messages
func (h *Handler) GetRoomMessages(c *gin.Context) {
	roomID, err := roomIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	msgs, err := h.Rooms.FetchHistory(c.Request.Context(), *currentIdentity(c), roomID, queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

// PostRoomMessage POST /api/rooms/:room_id/messages
func (h *Handler) PostRoomMessage(c *gin.Context) {
	roomID, err := roomIDParam(c)
	if err != nil {
		h.respondError(c, err)
		return
	}
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, &apperr.Error{Code: apperr.CodeInvalidPayload, Err: err})
		return
	}

	ident := *currentIdentity(c)
	msg, err := h.Posts.PostRoomMessage(context.WithoutCancel(c.Request.Context()), ident, roomID, req.Content, req.IsAnonymous)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rooms.ProjectMessage(*msg, ident))
}
