package insight

import (
	"sort"

	"insight_server/core/domain"
)

// Sort keys accepted by SortContacts.
const (
	SortByName         = "name"
	SortByIgnored      = "ignored"
	SortByResponseTime = "responseTime"
	SortByVolume       = "volume"
)

// ReplyRate returns repliedTo/sent as a percentage; 100 when nothing was sent.
func ReplyRate(s domain.ContactStats) float64 {
	if s.Sent == 0 {
		return 100
	}
	return float64(s.RepliedTo) / float64(s.Sent) * 100
}

// IsLowReplyRate flags contacts that rarely answer.
func IsLowReplyRate(s domain.ContactStats, settings *domain.AnalysisSettings) bool {
	if s.Sent > 5 && ReplyRate(s) < float64(settings.ShameThreshold) {
		return true
	}
	return s.Ignored >= settings.IgnoreThreshold
}

// SortContacts returns report rows ordered by sortBy. Unknown keys sort by name.
// For responseTime, contacts without an average sort last; a "0m" average
// (reply and request both outside business hours) is a real value and sorts
// as zero.
func SortContacts(stats domain.ContactStatsMap, sortBy string, settings *domain.AnalysisSettings) []domain.ContactReport {
	rows := make([]domain.ContactReport, 0, len(stats))
	for email, s := range stats {
		rows = append(rows, domain.ContactReport{
			Email:        email,
			ContactStats: s,
			ReplyRate:    ReplyRate(s),
			LowReplyRate: IsLowReplyRate(s, settings),
		})
	}

	// Name order first so every other key has a deterministic tie-break.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Email < rows[j].Email })

	switch sortBy {
	case SortByIgnored:
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Ignored > rows[j].Ignored })
	case SortByVolume:
		sort.SliceStable(rows, func(i, j int) bool {
			return rows[i].Sent+rows[i].Received > rows[j].Sent+rows[j].Received
		})
	case SortByResponseTime:
		sort.SliceStable(rows, func(i, j int) bool {
			ti, okI := ParseResponseTime(rows[i].AvgResponseTime)
			tj, okJ := ParseResponseTime(rows[j].AvgResponseTime)
			if !okI || !okJ {
				return okI && !okJ
			}
			return ti > tj
		})
	}
	return rows
}

// Summarize totals a stats map. AvgResponseTime is the mean of the
// per-contact averages, or "-" when no contact has one. "0m" averages are
// included in the mean.
func Summarize(stats domain.ContactStatsMap) domain.InsightSummary {
	summary := domain.InsightSummary{TotalContacts: len(stats), AvgResponseTime: "-"}

	var sum float64
	var n int
	for _, s := range stats {
		summary.TotalEmails += s.Sent + s.Received
		summary.TotalIgnored += s.Ignored
		if m, ok := ParseResponseTime(s.AvgResponseTime); ok {
			sum += m
			n++
		}
	}
	if n > 0 {
		summary.AvgResponseTime = FormatResponseTime(sum / float64(n))
	}
	return summary
}
