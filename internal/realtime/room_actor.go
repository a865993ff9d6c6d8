package realtime

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/rooms"
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// RoomActor serves one member's connection to a room.
type RoomActor struct {
	Client chathub.Client
	Hub    *chathub.ManagerService
	Rooms  *rooms.Service
	Posts  *Broadcaster
	Ident  identity.Identity
	RoomID uint
	Msgs   Messages

	log *logrus.Entry
}

func NewRoomActor(client chathub.Client, posts *Broadcaster, ident identity.Identity, roomID uint, msgs Messages) *RoomActor {
	return &RoomActor{
		Client: client,
		Hub:    posts.Hub,
		Rooms:  posts.Rooms,
		Posts:  posts,
		Ident:  ident,
		RoomID: roomID,
		Msgs:   msgs,
		log: logrus.WithFields(logrus.Fields{
			"component": "room_actor",
			"user_id":   ident.ID,
			"room_id":   roomID,
			"client_id": client.GetID(),
		}),
	}
}

// Start joins the room group and pushes recent history.
func (a *RoomActor) Start(ctx context.Context) {
	metrics.Connections.WithLabelValues(metrics.SurfaceRoom).Inc()
	a.Hub.Join(chathub.RoomGroup(a.RoomID), a.Client)
	a.report(a.sendHistory(ctx, 0))
}

func (a *RoomActor) Dispatch(in models.Inbound) {
	ctx := context.Background()

	var err error
	switch {
	case in.Malformed:
		err = apperr.New(apperr.CodeInvalidPayload)
	case in.Action == "":
		err = apperr.New(apperr.CodeMissingAction)
	case in.Action == models.ActionSendMessage:
		_, err = a.Posts.PostRoomMessage(ctx, a.Ident, a.RoomID, in.Content, in.IsAnonymous)
	case in.Action == models.ActionFetchHistory:
		err = a.sendHistory(ctx, in.Limit)
	default:
		err = apperr.New(apperr.CodeUnknownAction, in.Action)
	}
	a.report(err)
}

func (a *RoomActor) Notify(env chathub.Envelope) {
	if env.Kind != chathub.KindRoomMessage {
		return
	}
	var msg models.RoomMessage
	if err := json.Unmarshal(env.Data, &msg); err != nil {
		a.log.WithError(err).Warn("undecodable room message")
		return
	}
	a.Client.Emit(models.Event{
		Event:   models.EventMessage,
		Message: rooms.ProjectMessage(msg, a.Ident),
	})
}

func (a *RoomActor) Disconnect() {
	metrics.Connections.WithLabelValues(metrics.SurfaceRoom).Dec()
	a.log.Debug("room connection closed")
}

// sendHistory pushes the on-connect window, or the requested one when limit is set.
func (a *RoomActor) sendHistory(ctx context.Context, limit int) error {
	var (
		msgs []rooms.MessageView
		err  error
	)
	if limit > 0 {
		msgs, err = a.Rooms.FetchHistory(ctx, a.Ident, a.RoomID, limit)
	} else {
		msgs, err = a.Rooms.ConnectHistory(ctx, a.Ident, a.RoomID)
	}
	if err != nil {
		return err
	}
	a.Client.Emit(models.Event{Event: models.EventHistory, Messages: msgs})
	return nil
}

func (a *RoomActor) report(err error) {
	if err == nil {
		return
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		a.log.WithError(err).Error("room action failed")
	}
	a.Client.Emit(a.Msgs.ErrorEvent(err))
}
