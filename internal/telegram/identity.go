package telegram

import (
	"chatlounge/backend/internal/identity"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func identityFor(u *tgbotapi.User) identity.Identity {
	name := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if name == "" {
		name = u.UserName
	}
	return identity.Identity{ID: IdentityID(u.ID), DisplayName: name}
}
