package handler

import (
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/ratelimit"
	"chatlounge/backend/internal/realtime"
	"chatlounge/backend/internal/rooms"

	"github.com/sirupsen/logrus"
)

// Handler містить усе, що потрібно HTTP та WebSocket ендпоінтам.
type Handler struct {
	Hub         *chathub.ManagerService
	Auth        identity.Authenticator
	Chat        *randomchat.Service
	Rooms       *rooms.Service
	Posts       *realtime.Broadcaster
	Guard       *ratelimit.Guard
	Text        *localization.Localizer
	DefaultLang string
	Log         *logrus.Entry
}

func NewHandler(posts *realtime.Broadcaster, auth identity.Authenticator, guard *ratelimit.Guard, text *localization.Localizer, defaultLang string) *Handler {
	return &Handler{
		Hub:         posts.Hub,
		Auth:        auth,
		Chat:        posts.Chat,
		Rooms:       posts.Rooms,
		Posts:       posts,
		Guard:       guard,
		Text:        text,
		DefaultLang: defaultLang,
		Log:         logrus.WithField("component", "api"),
	}
}
