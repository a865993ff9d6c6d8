package randomchat

import (
	"chatlounge/backend/internal/metrics"
	"chatlounge/backend/internal/models"
	"chatlounge/backend/internal/storage"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Housekeeper ends sessions that were matched but never used.
type Housekeeper struct {
	Store   storage.SessionStore
	Timeout time.Duration
	Now     func() time.Time
	// OnExpired, when set, is told about every session a sweep ended.
	OnExpired func(ctx context.Context, ended []models.Session)
	log       *logrus.Entry
}

func NewHousekeeper(store storage.SessionStore, timeout time.Duration, now func() time.Time) *Housekeeper {
	return &Housekeeper{
		Store:   store,
		Timeout: timeout,
		Now:     now,
		log:     logrus.WithField("component", "housekeeper"),
	}
}

// ExpireIdle ends active sessions older than timeout that have no messages
// and returns how many were ended. A non-positive timeout disables expiry.
func (h *Housekeeper) ExpireIdle(ctx context.Context, timeout time.Duration) (int64, error) {
	if timeout <= 0 {
		return 0, nil
	}
	now := h.Now()
	ended, err := h.Store.ExpireIdleSessions(ctx, now.Add(-timeout), now)
	if err != nil {
		return 0, err
	}
	n := int64(len(ended))
	if n == 0 {
		return 0, nil
	}
	metrics.SessionsExpiredTotal.Add(float64(n))
	h.log.WithField("expired", n).Info("expired idle sessions")
	if h.OnExpired != nil {
		h.OnExpired(ctx, ended)
	}
	return n, nil
}

// Sweep runs ExpireIdle with the configured timeout.
func (h *Housekeeper) Sweep(ctx context.Context) (int64, error) {
	return h.ExpireIdle(ctx, h.Timeout)
}
