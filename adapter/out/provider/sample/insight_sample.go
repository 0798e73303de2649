// Package sample provides a bundled, deterministic mailbox for development
// and for falling back when the real provider is unreachable.
package sample

import (
	"context"
	"fmt"
	"time"

	"insight_server/core/domain"
	"insight_server/core/port/out"
)

// Owner is the mailbox address the sample data is written from.
const Owner = "me@company.com"

// Anchor is the Monday 09:00 UTC the sample conversations start from.
var Anchor = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

type profile struct {
	address string
	threads int
	// every replyEvery-th thread gets a reply after replyDelay
	replyEvery int
	replyDelay time.Duration
	// unsolicited messages from the contact
	inbound int
}

var profiles = []profile{
	{address: "john.doe@company.com", threads: 45, replyEvery: 2, replyDelay: 8*time.Hour + 30*time.Minute, inbound: 29},
	{address: "jane.smith@company.com", threads: 28, replyEvery: 1, replyDelay: 45 * time.Minute, inbound: 7},
	{address: "ops@vendor.io", threads: 6, replyEvery: 3, replyDelay: 26 * time.Hour},
	{address: "newsletter@updates.example", inbound: 12},
}

// Source implements out.MessageSource with generated data.
type Source struct {
	anchor time.Time
}

// NewSource creates a sample source anchored at Anchor.
func NewSource() *Source {
	return &Source{anchor: Anchor}
}

// Name returns the source name.
func (s *Source) Name() string {
	return "sample"
}

// FetchMessages returns the sample mailbox, trimmed to since when given.
func (s *Source) FetchMessages(ctx context.Context, since *time.Time) (*domain.MailBatch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch := s.build()
	if since != nil {
		batch = batch.Since(*since)
	}
	return batch, nil
}

func (s *Source) build() *domain.MailBatch {
	batch := &domain.MailBatch{}
	seq := 0
	next := func() string {
		seq++
		return fmt.Sprintf("sample-%04d", seq)
	}

	for p, pr := range profiles {
		for i := 0; i < pr.threads; i++ {
			thread := fmt.Sprintf("thread-%d-%d", p, i)
			at := s.anchor.Add(time.Duration(i)*24*time.Hour + time.Duration(p)*time.Hour)
			subject := fmt.Sprintf("Update %d", i+1)

			batch.Sent = append(batch.Sent, domain.MailItem{
				ID:         next(),
				Subject:    subject,
				From:       Owner,
				To:         []string{pr.address},
				ReceivedAt: at,
				ThreadID:   thread,
			})
			if pr.replyEvery > 0 && i%pr.replyEvery == 0 {
				batch.Received = append(batch.Received, domain.MailItem{
					ID:         next(),
					Subject:    "RE: " + subject,
					From:       pr.address,
					To:         []string{Owner},
					ReceivedAt: at.Add(pr.replyDelay),
					ThreadID:   thread,
				})
			}
		}

		for i := 0; i < pr.inbound; i++ {
			batch.Received = append(batch.Received, domain.MailItem{
				ID:         next(),
				Subject:    fmt.Sprintf("FYI %d", i+1),
				From:       pr.address,
				To:         []string{Owner},
				ReceivedAt: s.anchor.Add(time.Duration(i)*24*time.Hour + 30*time.Minute),
				ThreadID:   fmt.Sprintf("inbound-%d-%d", p, i),
			})
		}
	}

	// Noise the default filters drop.
	batch.Sent = append(batch.Sent, domain.MailItem{
		ID:         next(),
		Subject:    "Invitation: Quarterly review",
		From:       Owner,
		To:         []string{"john.doe@company.com", "jane.smith@company.com"},
		ReceivedAt: s.anchor.Add(2 * time.Hour),
		ThreadID:   "invite-1",
	})
	batch.Received = append(batch.Received, domain.MailItem{
		ID:         next(),
		Subject:    "Automatic reply: Update 3",
		From:       "jane.smith@company.com",
		To:         []string{Owner},
		ReceivedAt: s.anchor.Add(48*time.Hour + 5*time.Minute),
		ThreadID:   "thread-1-2",
	})

	return batch
}

var _ out.MessageSource = (*Source)(nil)
