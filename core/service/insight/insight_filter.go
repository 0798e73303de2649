// Package insight threads mailbox metadata into conversations and derives
// per-contact reply and response-time metrics.
package insight

import (
	"strings"

	"insight_server/core/domain"
)

// =============================================================================
// Noise Filter
// =============================================================================

var (
	calendarPrefixes = []string{"accepted:", "declined:", "tentative:"}
	calendarKeywords = []string{"invitation:", "meeting request"}

	// Subject-only auto-reply detection; message headers are not requested
	// from providers.
	autoReplyKeywords = []string{
		"out of office",
		"ooo",
		"automatic reply",
		"autoreply",
		"away from the office",
		"out of the office",
		"undeliverable:",
		"delivery status notification (failure)",
		"message could not be delivered",
	}
)

// IsNoise reports whether a message should be left out of the analysis.
func IsNoise(item *domain.MailItem, f domain.FilterSettings) bool {
	subject := strings.ToLower(item.Subject)

	if f.FilterCalendarInvites && isCalendarSubject(subject) {
		return true
	}
	if f.FilterOutOfOffice && containsAny(subject, autoReplyKeywords) {
		return true
	}
	return false
}

func isCalendarSubject(subject string) bool {
	for _, p := range calendarPrefixes {
		if strings.HasPrefix(subject, p) {
			return true
		}
	}
	return containsAny(subject, calendarKeywords)
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}
