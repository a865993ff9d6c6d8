package handler

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/randomchat"
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

func queryLimit(c *gin.Context) int {
	n, _ := strconv.Atoi(c.Query("limit"))
	return n
}

// GetRandomState GET /api/random/state
func (h *Handler) GetRandomState(c *gin.Context) {
	st, err := h.Chat.State(c.Request.Context(), requestActor(c), queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

// JoinRandomQueue POST /api/random/queue
func (h *Handler) JoinRandomQueue(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.Chat.JoinQueue(ctx, currentIdentity(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	h.GetRandomState(c)
}

// LeaveRandomQueue DELETE /api/random/queue
func (h *Handler) LeaveRandomQueue(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.Posts.LeaveRandomChat(ctx, currentIdentity(c).ID); err != nil {
		h.respondError(c, err)
		return
	}
	h.respondInfo(c, http.StatusOK, "info.left_queue")
}

// RequestRandomMatch POST /api/random/match
func (h *Handler) RequestRandomMatch(c *gin.Context) {
	ctx := context.WithoutCancel(c.Request.Context())
	ident := currentIdentity(c)

	if _, err := h.Posts.RequestMatch(ctx, ident.ID); err != nil {
		if apperr.Is(err, apperr.CodeNoCandidate) {
			h.respondInfo(c, http.StatusAccepted, string(apperr.CodeNoCandidate))
			return
		}
		h.respondError(c, err)
		return
	}

	st, err := h.Chat.State(ctx, requestActor(c), 0)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, st)
}

// GetRandomMessages GET /api/random/messages
func (h *Handler) GetRandomMessages(c *gin.Context) {
	msgs, err := h.Chat.Messages(c.Request.Context(), currentIdentity(c).ID, queryLimit(c))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"messages": msgs})
}

type postMessageRequest struct {
	Content     string `json:"content"`
	IsAnonymous bool   `json:"is_anonymous"`
}

// PostRandomMessage POST /api/random/messages
func (h *Handler) PostRandomMessage(c *gin.Context) {
	var req postMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, &apperr.Error{Code: apperr.CodeInvalidPayload, Err: err})
		return
	}

	ident := currentIdentity(c)
	msg, err := h.Posts.PostSessionMessage(context.WithoutCancel(c.Request.Context()), ident.ID, req.Content)
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, randomchat.ProjectMessage(*msg, ident.ID))
}
