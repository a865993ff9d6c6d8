package handler

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/realtime"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// Коди закриття WebSocket для відхилених з'єднань.
const (
	CloseUnauthenticated = 4401
	CloseForbidden       = 4403
	CloseNotFound        = 4404
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Дозволяє з'єднання з будь-якого домену. У продакшені налаштувати!
	CheckOrigin: func(r *http.Request) bool { return true },
}

// ServeRoomWebSocket обслуговує /ws/chatrooms/:room_id.
// З'єднання спершу приймається, а потім закривається з кодом 44xx, якщо доступ заборонено.
func (h *Handler) ServeRoomWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	ctx := context.WithoutCancel(c.Request.Context())

	ident, err := h.authenticate(c)
	if err != nil {
		chathub.CloseWithCode(conn, CloseUnauthenticated, string(apperr.CodeUnauthenticated))
		return
	}

	roomID, err := strconv.ParseUint(c.Param("room_id"), 10, 64)
	if err != nil {
		chathub.CloseWithCode(conn, CloseNotFound, string(apperr.CodeRoomNotFound))
		return
	}
	if _, err := h.Rooms.Room(ctx, uint(roomID)); err != nil {
		if apperr.Is(err, apperr.CodeRoomNotFound) {
			chathub.CloseWithCode(conn, CloseNotFound, string(apperr.CodeRoomNotFound))
			return
		}
		h.Log.WithError(err).Error("room lookup failed")
		chathub.CloseWithCode(conn, websocket.CloseInternalServerErr, string(apperr.CodeInternal))
		return
	}
	member, err := h.Rooms.IsMember(ctx, uint(roomID), ident.ID)
	if err != nil || !member {
		chathub.CloseWithCode(conn, CloseForbidden, string(apperr.CodeNotMember))
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, ident.ID)
	actor := realtime.NewRoomActor(client, h.Posts, *ident, uint(roomID), h.messages(c))
	client.Actor = actor
	actor.Start(ctx)
	client.Run()
}

// ServeRandomChatWebSocket обслуговує /ws/random-chat.
func (h *Handler) ServeRandomChatWebSocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.WithError(err).Warn("websocket upgrade failed")
		return
	}

	ident, err := h.authenticate(c)
	if err != nil {
		chathub.CloseWithCode(conn, CloseUnauthenticated, string(apperr.CodeUnauthenticated))
		return
	}

	client := chathub.NewWebSocketClient(h.Hub, conn, ident.ID)
	actor := realtime.NewRandomChatActor(client, h.Posts, h.Guard, *ident, c.ClientIP(), h.messages(c))
	client.Actor = actor
	actor.Start(context.WithoutCancel(c.Request.Context()))
	client.Run()
}
