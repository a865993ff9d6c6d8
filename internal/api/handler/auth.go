package handler

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/identity"
	"strings"

	"github.com/gin-gonic/gin"
)

const identityKey = "identity"

// tokenFromRequest бере токен з заголовка Authorization або з параметра ?token=
// (браузерні WebSocket не вміють передавати заголовки).
func tokenFromRequest(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return c.Query("token")
}

func (h *Handler) authenticate(c *gin.Context) (*identity.Identity, error) {
	token := tokenFromRequest(c)
	if token == "" {
		return nil, apperr.New(apperr.CodeUnauthenticated)
	}
	ident, err := h.Auth.Authenticate(c.Request.Context(), token)
	if err != nil {
		return nil, &apperr.Error{Code: apperr.CodeUnauthenticated, Err: err}
	}
	return &ident, nil
}

// RequireIdentity відхиляє запити без дійсного токена.
func (h *Handler) RequireIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if currentIdentity(c) != nil {
			c.Next()
			return
		}
		ident, err := h.authenticate(c)
		if err != nil {
			h.respondError(c, err)
			c.Abort()
			return
		}
		c.Set(identityKey, ident)
		c.Next()
	}
}

// OptionalIdentity додає особу, якщо токен є, і пропускає анонімні запити.
func (h *Handler) OptionalIdentity() gin.HandlerFunc {
	return func(c *gin.Context) {
		if ident, err := h.authenticate(c); err == nil {
			c.Set(identityKey, ident)
		}
		c.Next()
	}
}

func currentIdentity(c *gin.Context) *identity.Identity {
	if v, ok := c.Get(identityKey); ok {
		if ident, ok := v.(*identity.Identity); ok {
			return ident
		}
	}
	return nil
}

func requestActor(c *gin.Context) identity.RequestContext {
	return identity.RequestContext{User: currentIdentity(c), RemoteAddr: c.ClientIP()}
}
