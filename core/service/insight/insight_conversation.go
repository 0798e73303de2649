package insight

import (
	"sort"

	"insight_server/core/domain"
)

// BuildConversations groups messages by thread id. Sent events are appended
// before received events and every thread is stable-sorted by timestamp, so a
// reply stamped at the same instant as its send still follows it.
// Messages without a thread id are skipped.
func BuildConversations(sent, received []domain.Message) map[string]domain.Thread {
	threads := make(map[string]domain.Thread)

	for _, m := range sent {
		if m.ThreadID == "" {
			continue
		}
		for _, r := range m.Recipients {
			threads[m.ThreadID] = append(threads[m.ThreadID], domain.ThreadEvent{
				Direction:    domain.DirectionSent,
				Timestamp:    m.Timestamp,
				Counterparty: r,
			})
		}
	}

	for _, m := range received {
		if m.ThreadID == "" || m.Sender == "" {
			continue
		}
		threads[m.ThreadID] = append(threads[m.ThreadID], domain.ThreadEvent{
			Direction:    domain.DirectionReceived,
			Timestamp:    m.Timestamp,
			Counterparty: m.Sender,
		})
	}

	for _, t := range threads {
		sort.SliceStable(t, func(i, j int) bool {
			return t[i].Timestamp.Before(t[j].Timestamp)
		})
	}
	return threads
}
