package out

import (
	"context"
	"errors"

	"insight_server/core/domain"
)

// ErrNotFound is returned by repositories when nothing is stored for a key.
var ErrNotFound = errors.New("not found")

// =============================================================================
// SnapshotRepository (Redis / memory)
// =============================================================================

// SnapshotRepository stores the latest analysis result per mailbox.
type SnapshotRepository interface {
	Save(ctx context.Context, snapshot *domain.Snapshot) error
	Latest(ctx context.Context, mailboxID string) (*domain.Snapshot, error)
	Delete(ctx context.Context, mailboxID string) error
}

// =============================================================================
// SettingsRepository (Redis / memory)
// =============================================================================

// SettingsRepository stores analysis settings per mailbox.
type SettingsRepository interface {
	Get(ctx context.Context, mailboxID string) (*domain.AnalysisSettings, error)
	Save(ctx context.Context, mailboxID string, settings *domain.AnalysisSettings) error
}
