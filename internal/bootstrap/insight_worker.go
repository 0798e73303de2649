package bootstrap

import (
	"context"
	"os"
	"sync"

	"insight_server/adapter/in/worker"
	"insight_server/config"
	"insight_server/pkg/logger"

	"github.com/rs/zerolog"
)

// Worker runs the periodic refresh until stopped.
type Worker struct {
	scheduler *worker.RefreshScheduler
	ctx       context.Context
	cancel    context.CancelFunc
	stopOnce  sync.Once
	zlog      zerolog.Logger
}

func NewWorker(cfg *config.Config, deps *Dependencies) *Worker {
	zlog := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
		With().Timestamp().Str("component", "worker").Logger()

	ctx, cancel := context.WithCancel(context.Background())

	interval := cfg.RefreshInterval()
	if interval <= 0 {
		logger.Warn("INSIGHT_REFRESH_INTERVAL_MIN is not positive, scheduled refresh disabled")
		return &Worker{ctx: ctx, cancel: cancel, zlog: zlog}
	}

	return &Worker{
		scheduler: worker.NewRefreshScheduler(deps.InsightService, interval, zlog),
		ctx:       ctx,
		cancel:    cancel,
		zlog:      zlog,
	}
}

// Start starts the scheduler and blocks until Stop is called.
func (w *Worker) Start() {
	if w.scheduler != nil {
		w.scheduler.Start()
	}
	w.zlog.Info().Msg("worker started")
	<-w.ctx.Done()
}

// Stop stops the scheduler and releases Start.
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		if w.scheduler != nil {
			w.scheduler.Stop()
		}
		w.cancel()
		w.zlog.Info().Msg("worker stopped")
	})
}
