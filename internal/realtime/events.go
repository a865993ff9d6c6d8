// Package realtime holds the per-connection protocol of the room and random
// chat sockets, plus the persist-then-broadcast paths shared with REST.
package realtime

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/localization"
	"chatlounge/backend/internal/models"
)

// Messages resolves user-facing text for one connection.
type Messages struct {
	Text *localization.Localizer
	Lang string
}

func (m Messages) text(key string, args ...any) string {
	if m.Text == nil {
		return key
	}
	return m.Text.Format(m.Lang, key, args...)
}

// ErrorEvent renders err as an error frame.
func (m Messages) ErrorEvent(err error) models.Event {
	e := apperr.As(err)
	return models.Event{
		Event:  models.EventError,
		Code:   string(e.Code),
		Field:  e.Field,
		Detail: m.text(string(e.Code), e.Params...),
	}
}

// InfoEvent renders an informational frame from a message key.
func (m Messages) InfoEvent(key string, args ...any) models.Event {
	return models.Event{Event: models.EventInfo, Code: key, Detail: m.text(key, args...)}
}
