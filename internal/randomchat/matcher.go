package randomchat

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/storage"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// MatchResult describes the session the requester ended up in.
type MatchResult struct {
	Session   *models.Session
	PartnerID string
	// Created is false when a concurrent request had already paired the
	// requester; the partner has been notified by that request.
	Created bool
}

// MatcherService pairs a requester with a uniformly random waiting identity.
type MatcherService struct {
	Store  storage.SessionStore
	Picker Picker
	Now    func() time.Time
	log    *logrus.Entry
}

func NewMatcherService(store storage.SessionStore, picker Picker, now func() time.Time) *MatcherService {
	return &MatcherService{
		Store:  store,
		Picker: picker,
		Now:    now,
		log:    logrus.WithField("component", "matcher"),
	}
}

// RequestMatch queues identityID if needed and, when anyone else is waiting,
// atomically moves both into a new active session. With nobody else waiting
// it fails with NO_CANDIDATE and the requester stays queued.
func (m *MatcherService) RequestMatch(ctx context.Context, identityID string) (*MatchResult, error) {
	out, err := m.Store.MatchFromQueue(ctx, identityID, m.Now(), m.Picker.IntN)
	if err != nil {
		m.log.WithError(err).WithField("user_id", identityID).Error("match transaction failed")
		return nil, apperr.Wrap(err, apperr.CodeInternal)
	}
	if !out.Matched {
		metrics.NoCandidateTotal.Inc()
		return nil, apperr.New(apperr.CodeNoCandidate)
	}

	if out.Created {
		metrics.MatchesTotal.Inc()
		m.log.WithFields(logrus.Fields{
			"session_id": out.Session.ID,
			"user_id":    identityID,
			"partner_id": out.PartnerID,
		}).Info("match found")
	}

	return &MatchResult{Session: out.Session, PartnerID: out.PartnerID, Created: out.Created}, nil
}
