// Package randomchat implements one-to-one random chat: the waiting queue,
// matchmaking, session lifecycle and session messages.
package randomchat

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/content"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/storage"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

type Service struct {
	Store   storage.RandomChatStore
	Queue   *Queue
	Matcher *MatcherService
	Keeper  *Housekeeper
	Now     func() time.Time
	log     *logrus.Entry
}

func NewService(store storage.RandomChatStore, picker Picker, idleTimeout time.Duration, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{
		Store:   store,
		Queue:   &Queue{Store: store, Now: now},
		Matcher: NewMatcherService(store, picker, now),
		Keeper:  NewHousekeeper(store, idleTimeout, now),
		Now:     now,
		log:     logrus.WithField("component", "randomchat"),
	}
}

// Housekeep expires idle sessions before a state-affecting operation.
// Failures are logged and never fail the caller.
func (s *Service) Housekeep(ctx context.Context) {
	if _, err := s.Keeper.Sweep(ctx); err != nil {
		s.log.WithError(err).Warn("opportunistic sweep failed")
	}
}

// State assembles the caller's view. Actors without an identity see only
// the global counters.
func (s *Service) State(ctx context.Context, actor identity.Actor, limit int) (*State, error) {
	st := &State{Messages: []MessageView{}}

	var err error
	if st.QueueSize, err = s.Queue.Size(ctx); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if st.ActiveSessions, err = s.Store.CountActiveSessions(ctx); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}

	ident, ok := actor.Identity()
	if !ok {
		return st, nil
	}

	if st.QueuePosition, err = s.Queue.PositionOf(ctx, ident.ID); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	st.InQueue = st.QueuePosition != nil

	session, err := s.Store.ActiveSession(ctx, ident.ID)
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if session == nil {
		return st, nil
	}
	st.Session = projectSession(session, ident.ID)

	msgs, err := s.Store.RecentSessionMessages(ctx, session.ID, ClampWindow(limit))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	st.Messages = ProjectMessages(msgs, ident.ID)
	return st, nil
}

func (s *Service) JoinQueue(ctx context.Context, identityID string) error {
	return apperr.Wrap(s.Queue.Enter(ctx, identityID), apperr.CodeInternal)
}

// LeaveQueue takes the caller out of random chat entirely: the queue entry is
// removed and any active session is ended.
func (s *Service) LeaveQueue(ctx context.Context, identityID string) error {
	return apperr.Wrap(s.Store.ResetIdentity(ctx, identityID, s.Now()), apperr.CodeInternal)
}

func (s *Service) RequestMatch(ctx context.Context, identityID string) (*MatchResult, error) {
	return s.Matcher.RequestMatch(ctx, identityID)
}

// Evict is the abuse guard's penalty for an authenticated identity.
func (s *Service) Evict(ctx context.Context, identityID string) error {
	s.log.WithField("user_id", identityID).Warn("evicting throttled identity from random chat")
	return s.Store.ResetIdentity(ctx, identityID, s.Now())
}

func (s *Service) ActiveSession(ctx context.Context, identityID string) (*models.Session, error) {
	session, err := s.Store.ActiveSession(ctx, identityID)
	return session, apperr.Wrap(err, apperr.CodeInternal)
}

// Messages returns the latest messages of the caller's active session,
// oldest first, or an empty list without a session.
func (s *Service) Messages(ctx context.Context, identityID string, limit int) ([]MessageView, error) {
	session, err := s.ActiveSession(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return []MessageView{}, nil
	}
	msgs, err := s.Store.RecentSessionMessages(ctx, session.ID, ClampWindow(limit))
	if err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	return ProjectMessages(msgs, identityID), nil
}

// PostMessage stores content in the caller's active session.
func (s *Service) PostMessage(ctx context.Context, identityID, raw string) (*models.SessionMessage, error) {
	text, err := content.ValidateAnonymous(raw)
	if err != nil {
		return nil, err
	}
	session, err := s.ActiveSession(ctx, identityID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperr.New(apperr.CodeNoSession)
	}
	return s.PostToSession(ctx, session, identityID, text)
}

// PostToSession stores content in a session the caller already looked up.
func (s *Service) PostToSession(ctx context.Context, session *models.Session, identityID, raw string) (*models.SessionMessage, error) {
	text, err := content.ValidateAnonymous(raw)
	if err != nil {
		return nil, err
	}
	if !session.IsActive || !session.Includes(identityID) {
		return nil, apperr.New(apperr.CodeNoSession)
	}

	msg := &models.SessionMessage{
		SessionID: session.ID,
		SenderID:  identityID,
		Content:   text,
		CreatedAt: s.Now(),
	}
	if err := s.Store.CreateSessionMessage(ctx, msg); err != nil {
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	metrics.MessagesTotal.WithLabelValues(metrics.SurfaceRandomChat).Inc()
	return msg, nil
}
