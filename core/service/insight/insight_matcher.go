package insight

import "insight_server/core/domain"

// =============================================================================
// Response Matcher
// =============================================================================

// ThreadOutcome holds the per-contact results of matching one thread.
type ThreadOutcome struct {
	Replied       map[string]int
	Ignored       map[string]int
	ResponseTimes map[string][]float64
}

// MatchThread classifies every sent event of a sorted thread as replied or
// ignored. A sent event is replied when any later received event comes from
// the same counterparty; only the first such event is timed. Received events
// are not consumed, so one reply answers every earlier unanswered send to
// that contact.
func MatchThread(thread domain.Thread, clock *BusinessHours, useBusinessHours bool) ThreadOutcome {
	out := ThreadOutcome{
		Replied:       make(map[string]int),
		Ignored:       make(map[string]int),
		ResponseTimes: make(map[string][]float64),
	}

	for i, ev := range thread {
		if ev.Direction != domain.DirectionSent {
			continue
		}

		replied := false
		for j := i + 1; j < len(thread); j++ {
			next := thread[j]
			if next.Direction != domain.DirectionReceived || next.Counterparty != ev.Counterparty {
				continue
			}
			replied = true
			elapsed := clock.Elapsed(ev.Timestamp, next.Timestamp, useBusinessHours)
			out.ResponseTimes[ev.Counterparty] = append(out.ResponseTimes[ev.Counterparty], elapsed)
			break
		}

		if replied {
			out.Replied[ev.Counterparty]++
		} else {
			out.Ignored[ev.Counterparty]++
		}
	}
	return out
}
