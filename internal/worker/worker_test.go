package worker_test

import (
	"chatlounge/backend/internal/worker"
	"context"
	"errors"
	"testing"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockSweeper struct {
	mock.Mock
}

func (m *mockSweeper) Sweep(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func TestExpireIdleHandler(t *testing.T) {
	sweeper := new(mockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(int64(3), nil).Once()

	h := worker.NewExpireIdleHandler(sweeper)
	require.NoError(t, h.ProcessTask(context.Background(), worker.NewExpireIdleTask()))
	sweeper.AssertExpectations(t)
}

func TestExpireIdleHandler_PropagatesError(t *testing.T) {
	boom := errors.New("db down")
	sweeper := new(mockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(int64(0), boom).Once()

	err := worker.NewExpireIdleHandler(sweeper).ProcessTask(context.Background(), worker.NewExpireIdleTask())
	assert.ErrorIs(t, err, boom)
}

func TestMuxRoutesExpireIdle(t *testing.T) {
	sweeper := new(mockSweeper)
	sweeper.On("Sweep", mock.Anything).Return(int64(0), nil).Once()

	mux := worker.NewMux(sweeper)
	require.NoError(t, mux.ProcessTask(context.Background(), asynq.NewTask(worker.TypeExpireIdle, nil)))
	sweeper.AssertExpectations(t)
}
