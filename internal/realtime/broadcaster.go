package realtime

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/content"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/rooms"
	"context"

	"github.com/sirupsen/logrus"
)

// Broadcaster persists a message and then fans it out to its group, holding
// the group's sequence lock so every member sees the persisted order.
type Broadcaster struct {
	Hub   *chathub.ManagerService
	Chat  *randomchat.Service
	Rooms *rooms.Service
	log   *logrus.Entry
}

// NewBroadcaster also hooks the housekeeper, so sessions ended by a sweep
// reach both participants as a state push.
func NewBroadcaster(hub *chathub.ManagerService, chat *randomchat.Service, rs *rooms.Service) *Broadcaster {
	b := &Broadcaster{
		Hub:   hub,
		Chat:  chat,
		Rooms: rs,
		log:   logrus.WithField("component", "broadcaster"),
	}
	if chat != nil && chat.Keeper != nil {
		chat.Keeper.OnExpired = b.NotifyExpired
	}
	return b
}

// PostSessionMessage stores content in who's active session and delivers it
// to both participants.
func (b *Broadcaster) PostSessionMessage(ctx context.Context, who string, raw string) (*models.SessionMessage, error) {
	if _, err := content.ValidateAnonymous(raw); err != nil {
		return nil, err
	}
	session, err := b.Chat.ActiveSession(ctx, who)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.New(apperr.CodeNoSession)
	}

	group := chathub.SessionGroup(session.ID)
	var msg *models.SessionMessage
	err = b.Hub.Sequence(group, func() error {
		var err error
		if msg, err = b.Chat.PostToSession(ctx, session, who, raw); err != nil {
			return err
		}
		b.publish(ctx, group, chathub.KindSessionMessage, msg)
		return nil
	})
	return msg, err
}

// PostRoomMessage stores a room message and delivers it to the room group.
func (b *Broadcaster) PostRoomMessage(ctx context.Context, who identity.Identity, roomID uint, raw string, anonymous bool) (*models.RoomMessage, error) {
	group := chathub.RoomGroup(roomID)
	var msg *models.RoomMessage
	err := b.Hub.Sequence(group, func() error {
		var err error
		if msg, err = b.Rooms.PostMessage(ctx, who, roomID, raw, anonymous); err != nil {
			return err
		}
		b.publish(ctx, group, chathub.KindRoomMessage, msg)
		return nil
	})
	return msg, err
}

// RequestMatch runs matchmaking for who and pushes fresh state to the new
// partner and to the partner of a session the match replaced.
func (b *Broadcaster) RequestMatch(ctx context.Context, who string) (*randomchat.MatchResult, error) {
	prior, err := b.Chat.ActiveSession(ctx, who)
	if err != nil {
		return nil, err
	}
	res, err := b.Chat.RequestMatch(ctx, who)
	if err != nil {
		return nil, err
	}
	if res.Created {
		b.PushState(ctx, res.PartnerID)
		if prior != nil && prior.ID != res.Session.ID {
			b.PushState(ctx, prior.PartnerOf(who))
		}
	}
	return res, nil
}

// LeaveRandomChat removes who from the queue, ends their session and tells
// the former partner.
func (b *Broadcaster) LeaveRandomChat(ctx context.Context, who string) error {
	session, err := b.Chat.ActiveSession(ctx, who)
	if err != nil {
		return err
	}
	if err := b.Chat.LeaveQueue(ctx, who); err != nil {
		return err
	}
	if session != nil {
		b.PushState(ctx, session.PartnerOf(who))
	}
	return nil
}

// NotifyExpired pushes fresh state to both participants of every ended session.
func (b *Broadcaster) NotifyExpired(ctx context.Context, ended []models.Session) {
	for _, s := range ended {
		b.PushState(ctx, s.ParticipantA)
		b.PushState(ctx, s.ParticipantB)
	}
}

// PushState asks every connection of identityID to refresh its state.
func (b *Broadcaster) PushState(ctx context.Context, identityID string) {
	b.publish(ctx, chathub.UserGroup(identityID), chathub.KindStateDispatch, nil)
}

func (b *Broadcaster) publish(ctx context.Context, group, kind string, data any) {
	env, err := chathub.NewEnvelope(group, kind, data)
	if err != nil {
		b.log.WithError(err).WithField("group", group).Error("failed to encode envelope")
		return
	}
	b.Hub.Broadcast(ctx, env)
}
