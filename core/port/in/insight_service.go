package in

import (
	"context"

	"insight_server/core/domain"
)

type InsightService interface {
	// Analysis
	Refresh(ctx context.Context) (*domain.Snapshot, error)
	AnalyzeBatch(ctx context.Context, req *AnalyzeRequest) (*domain.Snapshot, error)

	// Stored results
	Latest(ctx context.Context) (*domain.Snapshot, error)
	Report(ctx context.Context, sortBy string) (*domain.InsightReport, error)
	Clear(ctx context.Context) error

	// Settings
	Settings(ctx context.Context) (*domain.AnalysisSettings, error)
	UpdateSettings(ctx context.Context, settings *domain.AnalysisSettings) (*domain.AnalysisSettings, error)
}

// AnalyzeRequest carries a caller-supplied batch. Settings == nil uses the
// stored settings, otherwise Settings is used as-is and must be complete.
// Store controls whether the result replaces the snapshot.
type AnalyzeRequest struct {
	Batch    domain.MailBatch         `json:"messages"`
	Settings *domain.AnalysisSettings `json:"settings,omitempty"`
	Store    bool                     `json:"store"`
}
