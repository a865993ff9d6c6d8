package realtime

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/chathub"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/randomchat"
	"chatlounge/backend/internal/ratelimit"
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"
)

// RandomChatActor serves one random chat connection. It always sits in the
// caller's user group and, while a session is active, in that session's group.
type RandomChatActor struct {
	Client  chathub.Client
	Hub     *chathub.ManagerService
	Chat    *randomchat.Service
	Posts   *Broadcaster
	Guard   *ratelimit.Guard
	Ident   identity.Identity
	Addr    string
	Msgs    Messages
	Surface string

	sessionGroup string
	log          *logrus.Entry
}

func NewRandomChatActor(client chathub.Client, posts *Broadcaster, guard *ratelimit.Guard, ident identity.Identity, addr string, msgs Messages) *RandomChatActor {
	return &RandomChatActor{
		Client:  client,
		Hub:     posts.Hub,
		Chat:    posts.Chat,
		Posts:   posts,
		Guard:   guard,
		Ident:   ident,
		Addr:    addr,
		Msgs:    msgs,
		Surface: metrics.SurfaceRandomChat,
		log: logrus.WithFields(logrus.Fields{
			"component": "random_chat_actor",
			"user_id":   ident.ID,
			"client_id": client.GetID(),
		}),
	}
}

// Start joins the user group and pushes the initial state.
func (a *RandomChatActor) Start(ctx context.Context) {
	metrics.Connections.WithLabelValues(a.Surface).Inc()
	a.Hub.Join(chathub.UserGroup(a.Ident.ID), a.Client)
	a.Chat.Housekeep(ctx)
	a.report(a.sendState(ctx))
}

func mutates(action string) bool {
	switch action {
	case models.ActionJoinQueue, models.ActionLeaveQueue, models.ActionRequestMatch, models.ActionSendMessage:
		return true
	}
	return false
}

func (a *RandomChatActor) Dispatch(in models.Inbound) {
	// Мутації не прив'язані до життя з'єднання: розпочата операція завершиться.
	ctx := context.Background()

	switch {
	case in.Malformed:
		a.report(apperr.New(apperr.CodeInvalidPayload))
		return
	case in.Action == "":
		a.report(apperr.New(apperr.CodeMissingAction))
		return
	}

	a.Chat.Housekeep(ctx)

	if mutates(in.Action) && a.Guard != nil {
		if err := a.Guard.Check(ctx, identity.RequestContext{User: &a.Ident, RemoteAddr: a.Addr}); err != nil {
			a.report(err)
			a.report(a.sendState(ctx))
			return
		}
	}

	var err error
	switch in.Action {
	case models.ActionFetchState:
		err = a.sendState(ctx)
	case models.ActionJoinQueue:
		if err = a.Chat.JoinQueue(ctx, a.Ident.ID); err == nil {
			err = a.sendState(ctx)
		}
	case models.ActionLeaveQueue:
		if err = a.Posts.LeaveRandomChat(ctx, a.Ident.ID); err == nil {
			a.Client.Emit(a.Msgs.InfoEvent("info.left_queue"))
			err = a.sendState(ctx)
		}
	case models.ActionRequestMatch:
		err = a.requestMatch(ctx)
	case models.ActionFetchMessages:
		err = a.sendMessages(ctx, in.Limit)
	case models.ActionSendMessage:
		_, err = a.Posts.PostSessionMessage(ctx, a.Ident.ID, in.Content)
	default:
		err = apperr.New(apperr.CodeUnknownAction, in.Action)
	}
	a.report(err)
}

func (a *RandomChatActor) requestMatch(ctx context.Context) error {
	_, err := a.Posts.RequestMatch(ctx, a.Ident.ID)
	if apperr.Is(err, apperr.CodeNoCandidate) {
		a.Client.Emit(a.Msgs.InfoEvent(string(apperr.CodeNoCandidate)))
		return a.sendState(ctx)
	}
	if err != nil {
		return err
	}
	return a.sendState(ctx)
}

func (a *RandomChatActor) Notify(env chathub.Envelope) {
	ctx := context.Background()

	switch env.Kind {
	case chathub.KindSessionMessage:
		var msg models.SessionMessage
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			a.log.WithError(err).Warn("undecodable session message")
			return
		}
		a.Client.Emit(models.Event{
			Event:   models.EventMessage,
			Message: randomchat.ProjectMessage(msg, a.Ident.ID),
		})
	case chathub.KindStateDispatch:
		a.report(a.sendState(ctx))
	}
}

func (a *RandomChatActor) Disconnect() {
	metrics.Connections.WithLabelValues(a.Surface).Dec()
	a.log.Debug("random chat connection closed")
}

// sendState pushes the current state and moves the connection into the
// group of the session it shows.
func (a *RandomChatActor) sendState(ctx context.Context) error {
	st, err := a.Chat.State(ctx, identity.IdentityOnly{User: a.Ident}, 0)
	if err != nil {
		return err
	}

	group := ""
	if st.Session != nil {
		group = chathub.SessionGroup(st.Session.ID)
	}
	if group != a.sessionGroup {
		if a.sessionGroup != "" {
			a.Hub.Leave(a.sessionGroup, a.Client)
		}
		if group != "" {
			a.Hub.Join(group, a.Client)
		}
		a.sessionGroup = group
	}

	a.Client.Emit(models.Event{Event: models.EventState, Payload: st})
	return nil
}

func (a *RandomChatActor) sendMessages(ctx context.Context, limit int) error {
	msgs, err := a.Chat.Messages(ctx, a.Ident.ID, limit)
	if err != nil {
		return err
	}
	a.Client.Emit(models.Event{Event: models.EventMessages, Messages: msgs})
	return nil
}

func (a *RandomChatActor) report(err error) {
	if err == nil {
		return
	}
	if apperr.KindOf(err) == apperr.KindInternal {
		a.log.WithError(err).Error("random chat action failed")
	}
	a.Client.Emit(a.Msgs.ErrorEvent(err))
}
