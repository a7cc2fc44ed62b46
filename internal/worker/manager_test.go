package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/worker"
)

type blockingWorker struct {
	name    string
	stop    chan struct{}
	ignore  bool
	started atomic.Bool
}

func newBlockingWorker(name string, ignoreStop bool) *blockingWorker {
	return &blockingWorker{name: name, stop: make(chan struct{}), ignore: ignoreStop}
}

func (w *blockingWorker) Start(ctx context.Context) error {
	w.started.Store(true)
	if w.ignore {
		<-ctx.Done()
		return ctx.Err()
	}
	select {
	case <-w.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (w *blockingWorker) Stop() error {
	if !w.ignore {
		close(w.stop)
	}
	return nil
}

func (w *blockingWorker) Name() string { return w.name }

func TestWorkerManager_NoWorkers(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	assert.Error(t, m.Start(context.Background()))
}

func TestWorkerManager_StartStop(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	a, b := newBlockingWorker("a", false), newBlockingWorker("b", false)
	m.Register(a)
	m.Register(b)

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, func() bool {
		return a.started.Load() && b.started.Load()
	}, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.Stop(ctx))
}

func TestWorkerManager_StopTimesOut(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	stuck := newBlockingWorker("stuck", true)
	m.Register(stuck)

	runCtx, stopRun := context.WithCancel(context.Background())
	defer stopRun()
	require.NoError(t, m.Start(runCtx))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Stop(ctx), context.DeadlineExceeded)
}

type panickingWorker struct{}

func (panickingWorker) Start(ctx context.Context) error { panic("corrupt tile batch") }
func (panickingWorker) Stop() error                     { return nil }
func (panickingWorker) Name() string                    { return "panicking" }

func TestWorkerManager_RecoversWorkerPanic(t *testing.T) {
	m := worker.NewWorkerManager(zap.NewNop())
	m.Register(panickingWorker{})
	healthy := newBlockingWorker("healthy", false)
	m.Register(healthy)

	require.NoError(t, m.Start(context.Background()))
	require.Eventually(t, healthy.started.Load, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, m.Stop(ctx))
}
