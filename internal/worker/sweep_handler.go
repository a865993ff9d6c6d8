package worker

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// Sweeper expires idle random chat sessions.
type Sweeper interface {
	Sweep(ctx context.Context) (int64, error)
}

type ExpireIdleHandler struct {
	sweeper Sweeper
}

func NewExpireIdleHandler(sweeper Sweeper) *ExpireIdleHandler {
	return &ExpireIdleHandler{sweeper: sweeper}
}

// ProcessTask реалізує asynq.Handler.
func (h *ExpireIdleHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	taskID := ""
	if rw := t.ResultWriter(); rw != nil {
		taskID = rw.TaskID()
	}
	logCtx := logrus.WithFields(logrus.Fields{
		"task_id":   taskID,
		"task_type": t.Type(),
	})

	n, err := h.sweeper.Sweep(ctx)
	if err != nil {
		logCtx.WithError(err).Error("idle session sweep failed")
		return fmt.Errorf("expire idle sessions: %w", err)
	}
	logCtx.WithField("expired", n).Debug("idle session sweep done")
	return nil
}
