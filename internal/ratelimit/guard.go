package ratelimit

import (
	"chatlounge/backend/internal/apperr"
	"chatlounge/backend/internal/identity"
	"chatlounge/backend/internal/metrics"
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Evictor removes an authenticated identity from random chat.
type Evictor interface {
	Evict(ctx context.Context, identityID string) error
}

// Guard applies the throttle and its penalties: authenticated callers lose
// their queue entry and active session, anonymous addresses are blocked.
type Guard struct {
	Limiter  *Limiter
	Blocker  *Blocker
	Evictor  Evictor
	BlockFor time.Duration
	log      *logrus.Entry
}

func NewGuard(limiter *Limiter, blocker *Blocker, evictor Evictor, blockFor time.Duration) *Guard {
	return &Guard{
		Limiter:  limiter,
		Blocker:  blocker,
		Evictor:  evictor,
		BlockFor: blockFor,
		log:      logrus.WithField("component", "abuse_guard"),
	}
}

// Check counts one mutating request from actor. Redis failures let the
// request through.
func (g *Guard) Check(ctx context.Context, actor identity.Actor) error {
	key := identity.ThrottleKey(actor)
	ident, authenticated := actor.Identity()
	log := g.log.WithField("throttle_key", key)

	if !authenticated {
		blocked, err := g.Blocker.IsBlocked(ctx, key)
		if err != nil {
			log.WithError(err).Warn("block lookup failed")
		}
		if blocked {
			metrics.ThrottledTotal.WithLabelValues("blocked").Inc()
			return apperr.New(apperr.CodeBlocked)
		}
	}

	allowed, err := g.Limiter.Allow(ctx, key)
	if err != nil {
		log.WithError(err).Warn("throttle check failed")
		return nil
	}
	if allowed {
		return nil
	}

	metrics.ThrottledTotal.WithLabelValues("rate_limited").Inc()
	if authenticated {
		if err := g.Evictor.Evict(ctx, ident.ID); err != nil {
			log.WithError(err).Error("failed to evict throttled identity")
		}
	} else {
		if err := g.Blocker.Block(ctx, key, g.BlockFor); err != nil {
			log.WithError(err).Error("failed to block address")
		}
		log.WithField("block_for", g.BlockFor).Warn("address blocked")
	}
	return apperr.New(apperr.CodeRateLimited)
}
