package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register підключає всі маршрути до роутера.
func (h *Handler) Register(r *gin.Engine) {
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.GET("/ws/chatrooms/:room_id", h.ServeRoomWebSocket)
	r.GET("/ws/random-chat", h.ServeRandomChatWebSocket)

	api := r.Group("/api")

	api.GET("/rooms", h.OptionalIdentity(), h.ListRooms)
	roomsAPI := api.Group("/rooms", h.RequireIdentity())
	{
		roomsAPI.POST("", h.CreateRoom)
		roomsAPI.POST("/join", h.JoinRoom)
		roomsAPI.POST("/:room_id/leave", h.LeaveRoom)
		roomsAPI.GET("/:room_id/messages", h.GetRoomMessages)
		roomsAPI.POST("/:room_id/messages", h.PostRoomMessage)
	}

	// throttle стоїть перед автентифікацією, тож анонімні запити теж рахуються.
	random := api.Group("/random", h.OptionalIdentity())
	reads := random.Group("", h.RequireIdentity(), h.housekeep())
	{
		reads.GET("/state", h.GetRandomState)
		reads.GET("/messages", h.GetRandomMessages)
	}
	writes := random.Group("", h.throttle(), h.RequireIdentity(), h.housekeep())
	{
		writes.POST("/queue", h.JoinRandomQueue)
		writes.DELETE("/queue", h.LeaveRandomQueue)
		writes.POST("/match", h.RequestRandomMatch)
		writes.POST("/messages", h.PostRandomMessage)
	}
}
