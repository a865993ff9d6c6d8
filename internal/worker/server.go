package worker

import (
	"context"
	"errors"

	"github.com/hibiken/asynq"
	"github.com/sirupsen/logrus"
)

// WorkerServer обгортає asynq сервер та планувальник періодичних задач.
type WorkerServer struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	schedule  string
	sweeper   Sweeper
	log       *logrus.Entry
}

func NewWorkerServer(redisOpt asynq.RedisClientOpt, sweeper Sweeper, schedule string, logger *logrus.Logger) *WorkerServer {
	logEntry := logger.WithField("component", "worker_server")

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 2,
		Queues:      map[string]int{"default": 1},
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			retries, _ := asynq.GetRetryCount(ctx)
			logEntry.WithFields(logrus.Fields{
				"task_type": task.Type(),
				"retries":   retries,
			}).WithError(err).Error("task failed")
		}),
	})

	return &WorkerServer{
		server:    server,
		scheduler: asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{}),
		schedule:  schedule,
		sweeper:   sweeper,
		log:       logEntry,
	}
}

// NewMux реєструє обробники задач.
func NewMux(sweeper Sweeper) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Handle(TypeExpireIdle, NewExpireIdleHandler(sweeper))
	return mux
}

// Start запускає планувальник і сервер. Блокує до зупинки сервера.
func (ws *WorkerServer) Start() error {
	entryID, err := ws.scheduler.Register(ws.schedule, NewExpireIdleTask(), asynq.Queue("default"))
	if err != nil {
		return err
	}
	ws.log.WithFields(logrus.Fields{
		"entry_id": entryID,
		"schedule": ws.schedule,
	}).Info("registered idle session sweep")

	if err := ws.scheduler.Start(); err != nil {
		return err
	}

	ws.log.Info("worker server starting")
	if err := ws.server.Run(NewMux(ws.sweeper)); err != nil && !errors.Is(err, asynq.ErrServerClosed) {
		return err
	}
	return nil
}

func (ws *WorkerServer) Shutdown() {
	ws.log.Info("shutting down worker server")
	ws.scheduler.Shutdown()
	ws.server.Shutdown()
}
