package worker

import (
	"context"
	"sync"
	"time"

	"insight_server/core/domain"
	"insight_server/pkg/apperr"

	"github.com/rs/zerolog"
)

// Refresher runs one analysis pass.
type Refresher interface {
	Refresh(ctx context.Context) (*domain.Snapshot, error)
}

// RefreshScheduler re-analyzes the mailbox on a fixed interval, once at start
// and then on every tick.
type RefreshScheduler struct {
	refresher Refresher
	interval  time.Duration
	timeout   time.Duration
	log       zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRefreshScheduler creates a scheduler; interval must be positive.
func NewRefreshScheduler(refresher Refresher, interval time.Duration, log zerolog.Logger) *RefreshScheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &RefreshScheduler{
		refresher: refresher,
		interval:  interval,
		timeout:   5 * time.Minute,
		log:       log.With().Str("component", "refresh_scheduler").Logger(),
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start starts the scheduler loop.
func (s *RefreshScheduler) Start() {
	s.once.Do(func() {
		s.log.Info().Dur("interval", s.interval).Msg("starting refresh scheduler")
		s.wg.Add(1)
		go s.run()
	})
}

// Stop cancels any running pass and waits for the loop to exit.
func (s *RefreshScheduler) Stop() {
	s.cancel()
	s.wg.Wait()
	s.log.Info().Msg("refresh scheduler stopped")
}

func (s *RefreshScheduler) run() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.refresh()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.refresh()
		}
	}
}

func (s *RefreshScheduler) refresh() {
	ctx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()

	start := time.Now()
	snap, err := s.refresher.Refresh(ctx)
	if err != nil {
		if s.ctx.Err() != nil {
			return
		}
		s.log.Error().Err(err).Str("code", apperr.CodeOf(err)).Msg("scheduled refresh failed")
		return
	}

	s.log.Info().
		Str("run_id", snap.RunID.String()).
		Str("source", snap.Source).
		Int("contacts", len(snap.Contacts)).
		Int("messages", snap.Messages).
		Dur("took", time.Since(start)).
		Msg("scheduled refresh complete")
}
