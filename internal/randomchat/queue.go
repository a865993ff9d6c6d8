package randomchat

import (
	"chatlounge/backend/internal/storage"
	"context"
	"time"
)

// Queue is the waiting line for random chat.
type Queue struct {
	Store storage.QueueStore
	Now   func() time.Time
}

// Enter adds identityID or refreshes its joined_at.
func (q *Queue) Enter(ctx context.Context, identityID string) error {
	return q.Store.EnterQueue(ctx, identityID, q.Now())
}

// Leave removes identityID; absent entries are not an error.
func (q *Queue) Leave(ctx context.Context, identityID string) error {
	return q.Store.LeaveQueue(ctx, identityID)
}

// PositionOf is 1-based, or nil when identityID is not queued.
func (q *Queue) PositionOf(ctx context.Context, identityID string) (*int, error) {
	return q.Store.QueuePosition(ctx, identityID)
}

func (q *Queue) Size(ctx context.Context) (int64, error) {
	return q.Store.QueueSize(ctx)
}
