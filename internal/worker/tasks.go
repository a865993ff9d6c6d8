// Package worker runs background random chat maintenance on asynq.
package worker

import "github.com/hibiken/asynq"

// TypeExpireIdle ends active sessions that have been silent for longer than
// the idle timeout.
const TypeExpireIdle = "randomchat:expire_idle"

func NewExpireIdleTask() *asynq.Task {
	return asynq.NewTask(TypeExpireIdle, nil, asynq.MaxRetry(0))
}
