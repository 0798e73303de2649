package insight

import (
	"context"
	"errors"
	"sync"
	"time"

	"insight_server/core/domain"
	"insight_server/core/port/in"
	"insight_server/core/port/out"
	"insight_server/pkg/apperr"
	"insight_server/pkg/logger"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

// SourceRequest marks snapshots computed from a caller-supplied batch.
const SourceRequest = "request"

// ServiceConfig wires the service's collaborators.
type ServiceConfig struct {
	MailboxID string
	Source    out.MessageSource
	Fallback  out.MessageSource // used when Source fails; nil disables fallback
	Snapshots out.SnapshotRepository
	Settings  out.SettingsRepository
	Clock     *BusinessHours
	Defaults  *domain.AnalysisSettings
}

// Service runs analysis passes for one mailbox and stores their results.
// At most one pass is in flight; concurrent refreshes share one result.
type Service struct {
	mailboxID string
	source    out.MessageSource
	fallback  out.MessageSource
	snapshots out.SnapshotRepository
	settings  out.SettingsRepository
	analyzer  *Analyzer
	defaults  domain.AnalysisSettings

	now    func() time.Time
	mu     sync.Mutex
	flight singleflight.Group
}

// NewService creates an insight service.
func NewService(cfg ServiceConfig) *Service {
	defaults := domain.DefaultAnalysisSettings()
	if cfg.Defaults != nil {
		defaults = cfg.Defaults
	}
	return &Service{
		mailboxID: cfg.MailboxID,
		source:    cfg.Source,
		fallback:  cfg.Fallback,
		snapshots: cfg.Snapshots,
		settings:  cfg.Settings,
		analyzer:  NewAnalyzer(cfg.Clock),
		defaults:  *defaults,
		now:       time.Now,
	}
}

// Refresh fetches the mailbox from the configured source, analyzes it and
// stores the snapshot.
func (s *Service) Refresh(ctx context.Context) (*domain.Snapshot, error) {
	v, err, shared := s.flight.Do("refresh", func() (interface{}, error) {
		return s.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		logger.WithContext(ctx).Debug("refresh joined an in-flight analysis")
	}
	return v.(*domain.Snapshot), nil
}

func (s *Service) refresh(ctx context.Context) (*domain.Snapshot, error) {
	if s.source == nil {
		return nil, apperr.ConfigError("no message source configured")
	}

	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}

	log := logger.WithContext(ctx).WithField("mailbox_id", s.mailboxID).WithField("source", s.source.Name())
	start := time.Now()

	sourceName, sample := s.source.Name(), false
	batch, err := s.source.FetchMessages(ctx, settings.Since(s.now()))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			log.WithError(err).Error("Fetching messages timed out")
			return nil, apperr.Timeout("fetch messages from "+s.source.Name(), err)
		}
		if s.fallback == nil {
			log.WithError(err).Error("Failed to fetch messages")
			return nil, apperr.ExternalError(s.source.Name(), err)
		}
		log.WithError(err).Warn("Failed to fetch messages, using %s data", s.fallback.Name())
		batch, err = s.fallback.FetchMessages(ctx, nil)
		if err != nil {
			return nil, apperr.ExternalError(s.fallback.Name(), err)
		}
		sourceName, sample = s.fallback.Name(), true
	}

	snap := s.run(batch, settings, sourceName, sample)
	if err := s.save(ctx, snap); err != nil {
		return nil, err
	}

	log.WithField("run_id", snap.RunID.String()).
		WithField("contacts", len(snap.Contacts)).
		WithField("messages", snap.Messages).
		WithDuration(time.Since(start)).
		Info("Email analysis complete")
	return snap, nil
}

// AnalyzeBatch analyzes a caller-supplied batch, trimmed to the analysis period.
func (s *Service) AnalyzeBatch(ctx context.Context, req *in.AnalyzeRequest) (*domain.Snapshot, error) {
	if req == nil {
		return nil, apperr.BadRequest("request body is required")
	}

	settings := req.Settings
	if settings == nil {
		stored, err := s.Settings(ctx)
		if err != nil {
			return nil, err
		}
		settings = stored
	}
	if err := settings.Validate(); err != nil {
		return nil, apperr.ValidationFailed(err)
	}

	batch := &req.Batch
	if since := settings.Since(s.now()); since != nil {
		batch = batch.Since(*since)
		if dropped := req.Batch.Len() - batch.Len(); dropped > 0 {
			logger.WithContext(ctx).Info("Skipped %d of %d messages older than %s",
				dropped, req.Batch.Len(), since.UTC().Format(time.RFC3339))
		}
	}

	snap := s.run(batch, settings, SourceRequest, false)
	if req.Store {
		if err := s.save(ctx, snap); err != nil {
			return nil, err
		}
	}
	return snap, nil
}

func (s *Service) run(batch *domain.MailBatch, settings *domain.AnalysisSettings, source string, sample bool) *domain.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	return &domain.Snapshot{
		RunID:       uuid.New(),
		MailboxID:   s.mailboxID,
		Source:      source,
		Sample:      sample,
		Settings:    *settings,
		Messages:    batch.Len(),
		Contacts:    s.analyzer.Analyze(batch, settings),
		GeneratedAt: s.now().UTC(),
	}
}

func (s *Service) save(ctx context.Context, snap *domain.Snapshot) error {
	if err := s.snapshots.Save(ctx, snap); err != nil {
		return apperr.StorageError("save snapshot", err)
	}
	return nil
}

// Latest returns the most recently stored snapshot.
func (s *Service) Latest(ctx context.Context) (*domain.Snapshot, error) {
	snap, err := s.snapshots.Latest(ctx, s.mailboxID)
	if errors.Is(err, out.ErrNotFound) {
		return nil, apperr.NotFound("insight snapshot")
	}
	if err != nil {
		return nil, apperr.StorageError("load snapshot", err)
	}
	return snap, nil
}

// Report builds a sorted, summarized view of the latest snapshot.
func (s *Service) Report(ctx context.Context, sortBy string) (*domain.InsightReport, error) {
	snap, err := s.Latest(ctx)
	if err != nil {
		return nil, err
	}

	switch sortBy {
	case SortByName, SortByIgnored, SortByResponseTime, SortByVolume:
	case "":
		sortBy = SortByName
	default:
		return nil, apperr.InvalidInput("sort", "unknown sort key "+sortBy).
			WithDetail("allowed", []string{SortByName, SortByIgnored, SortByResponseTime, SortByVolume})
	}

	return &domain.InsightReport{
		RunID:       snap.RunID,
		SortBy:      sortBy,
		Summary:     Summarize(snap.Contacts),
		Contacts:    SortContacts(snap.Contacts, sortBy, &snap.Settings),
		Sample:      snap.Sample,
		GeneratedAt: snap.GeneratedAt,
	}, nil
}

// Clear removes the stored snapshot.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.snapshots.Delete(ctx, s.mailboxID); err != nil {
		return apperr.StorageError("delete snapshot", err)
	}
	return nil
}

// Settings returns the stored settings, or the defaults when none are stored.
func (s *Service) Settings(ctx context.Context) (*domain.AnalysisSettings, error) {
	settings, err := s.settings.Get(ctx, s.mailboxID)
	if errors.Is(err, out.ErrNotFound) {
		d := s.defaults
		return &d, nil
	}
	if err != nil {
		return nil, apperr.StorageError("load settings", err)
	}
	return settings, nil
}

// UpdateSettings validates and stores settings.
func (s *Service) UpdateSettings(ctx context.Context, settings *domain.AnalysisSettings) (*domain.AnalysisSettings, error) {
	if settings == nil {
		return nil, apperr.BadRequest("settings are required")
	}
	if err := settings.Validate(); err != nil {
		return nil, apperr.ValidationFailed(err)
	}
	if err := s.settings.Save(ctx, s.mailboxID, settings); err != nil {
		return nil, apperr.StorageError("save settings", err)
	}
	return settings, nil
}

var _ in.InsightService = (*Service)(nil)
