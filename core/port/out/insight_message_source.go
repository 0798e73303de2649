// Package out defines outbound ports (driven ports) for the application.
package out

import (
	"context"
	"time"

	"insight_server/core/domain"
)

// =============================================================================
// Message Source Port (Outlook, Gmail, sample data)
// =============================================================================

// MessageSource supplies the sent and received message metadata of a mailbox.
// since == nil means no date cutoff.
type MessageSource interface {
	Name() string
	FetchMessages(ctx context.Context, since *time.Time) (*domain.MailBatch, error)
}
