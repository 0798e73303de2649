package bootstrap

import (
	"context"

	"insight_server/adapter/in/http"
	"insight_server/adapter/out/persistence"
	"insight_server/adapter/out/provider/gmail"
	"insight_server/adapter/out/provider/outlook"
	"insight_server/adapter/out/provider/sample"
	"insight_server/config"
	"insight_server/core/port/out"
	"insight_server/core/service/insight"
	"insight_server/infra/database"
	"insight_server/pkg/apperr"
	"insight_server/pkg/logger"

	"github.com/redis/go-redis/v9"
)

type Dependencies struct {
	Config *config.Config
	Redis  *redis.Client

	// Repositories
	Snapshots out.SnapshotRepository
	Settings  out.SettingsRepository

	// Sources
	Source   out.MessageSource
	Fallback out.MessageSource

	// Services
	InsightService *insight.Service

	HealthChecks map[string]http.HealthChecker
}

func NewDependencies(ctx context.Context, cfg *config.Config) (*Dependencies, func(), error) {
	deps := &Dependencies{
		Config:       cfg,
		HealthChecks: make(map[string]http.HealthChecker),
	}
	cleanup := func() {
		if deps.Redis != nil {
			if err := deps.Redis.Close(); err != nil {
				logger.WithError(err).Warn("Failed to close Redis")
			}
		}
	}

	// Storage: Redis when configured, otherwise in-process
	if cfg.RedisURL != "" {
		client, err := database.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, apperr.StorageError("connect redis", err)
		}
		deps.Redis = client

		store := persistence.NewRedisStore(client, cfg.SnapshotTTL())
		deps.Snapshots = store
		deps.Settings = store.Settings()
		deps.HealthChecks["redis"] = store
		logger.Info("Redis snapshot store initialized")
	} else {
		store := persistence.NewMemoryStore()
		deps.Snapshots = store
		deps.Settings = store.Settings()
		deps.HealthChecks["redis"] = nil
		logger.Warn("REDIS_URL not set, snapshots are kept in memory")
	}

	source, err := newMessageSource(ctx, cfg)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	deps.Source = source
	if cfg.SampleFallback && cfg.Provider != config.ProviderSample {
		deps.Fallback = sample.NewSource()
	}

	deps.InsightService = insight.NewService(insight.ServiceConfig{
		MailboxID: cfg.MailboxID,
		Source:    deps.Source,
		Fallback:  deps.Fallback,
		Snapshots: deps.Snapshots,
		Settings:  deps.Settings,
		Clock:     insight.NewBusinessHours(cfg.Location()),
		Defaults:  &cfg.Analysis,
	})

	logger.Info("Insight service initialized (provider=%s, mailbox=%s, timezone=%s)",
		deps.Source.Name(), cfg.MailboxID, cfg.Location())

	return deps, cleanup, nil
}

func newMessageSource(ctx context.Context, cfg *config.Config) (out.MessageSource, error) {
	switch cfg.Provider {
	case config.ProviderOutlook:
		return outlook.NewSource(ctx, &outlook.Config{
			ClientID:     cfg.MicrosoftClientID,
			ClientSecret: cfg.MicrosoftClientSecret,
			TenantID:     cfg.MicrosoftTenantID,
			RefreshToken: cfg.MicrosoftRefreshToken,
			FetchLimit:   cfg.FetchLimit,
		}), nil
	case config.ProviderGmail:
		src, err := gmail.NewSource(ctx, &gmail.Config{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RefreshToken: cfg.GoogleRefreshToken,
			FetchLimit:   cfg.FetchLimit,
			Concurrency:  cfg.GmailConcurrency,
		})
		if err != nil {
			return nil, apperr.OAuthFailed("gmail", err)
		}
		return src, nil
	case config.ProviderSample:
		return sample.NewSource(), nil
	default:
		return nil, apperr.ConfigError("unknown provider: " + cfg.Provider)
	}
}
