package insight

import (
	"sort"

	"insight_server/core/domain"
)

// Analyzer runs analysis passes with a fixed business-hours clock.
type Analyzer struct {
	clock *BusinessHours
}

// NewAnalyzer creates an analyzer; a nil clock uses business hours in time.Local.
func NewAnalyzer(clock *BusinessHours) *Analyzer {
	if clock == nil {
		clock = NewBusinessHours(nil)
	}
	return &Analyzer{clock: clock}
}

// Analyze computes per-contact statistics for a batch. It performs no I/O and
// keeps no state between calls.
func (a *Analyzer) Analyze(batch *domain.MailBatch, settings *domain.AnalysisSettings) domain.ContactStatsMap {
	if batch == nil {
		batch = &domain.MailBatch{}
	}
	if settings == nil {
		settings = domain.DefaultAnalysisSettings()
	}

	contacts := make(contactTable)

	sent := make([]domain.Message, 0, len(batch.Sent))
	for i := range batch.Sent {
		msg, ok := toMessage(&batch.Sent[i], domain.DirectionSent, settings)
		if !ok {
			continue
		}
		for _, r := range msg.Recipients {
			contacts.get(r).sent++
		}
		sent = append(sent, msg)
	}

	received := make([]domain.Message, 0, len(batch.Received))
	for i := range batch.Received {
		msg, ok := toMessage(&batch.Received[i], domain.DirectionReceived, settings)
		if !ok {
			continue
		}
		contacts.get(msg.Sender).received++
		received = append(received, msg)
	}

	// Threads are matched in id order so float sums are reproducible.
	threads := BuildConversations(sent, received)
	ids := make([]string, 0, len(threads))
	for id := range threads {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	for _, id := range ids {
		contacts.apply(MatchThread(threads[id], a.clock, settings.UseBusinessHours))
	}

	return contacts.finalize()
}

// Analyze runs a pass with business hours in time.Local.
func Analyze(batch *domain.MailBatch, settings *domain.AnalysisSettings) domain.ContactStatsMap {
	return NewAnalyzer(nil).Analyze(batch, settings)
}
