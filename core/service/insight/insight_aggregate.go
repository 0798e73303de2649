package insight

import (
	"fmt"
	"math"
	"regexp"
	"strconv"

	"insight_server/core/domain"
)

// contactBuilder accumulates one contact during a pass. Response samples
// never leave this type; build produces the immutable summary.
type contactBuilder struct {
	sent          int
	received      int
	repliedTo     int
	ignored       int
	responseTimes []float64
}

func (b *contactBuilder) build() domain.ContactStats {
	stats := domain.ContactStats{
		Sent:      b.sent,
		Received:  b.received,
		RepliedTo: b.repliedTo,
		Ignored:   b.ignored,
	}
	if len(b.responseTimes) > 0 {
		var sum float64
		for _, v := range b.responseTimes {
			sum += v
		}
		stats.AvgResponseTime = FormatResponseTime(sum / float64(len(b.responseTimes)))
	}
	return stats
}

// contactTable is the per-pass accumulator, owned by a single Analyze call.
type contactTable map[string]*contactBuilder

func (t contactTable) get(addr string) *contactBuilder {
	b, ok := t[addr]
	if !ok {
		b = &contactBuilder{}
		t[addr] = b
	}
	return b
}

func (t contactTable) apply(o ThreadOutcome) {
	for addr, n := range o.Replied {
		t.get(addr).repliedTo += n
	}
	for addr, n := range o.Ignored {
		t.get(addr).ignored += n
	}
	for addr, samples := range o.ResponseTimes {
		b := t.get(addr)
		b.responseTimes = append(b.responseTimes, samples...)
	}
}

func (t contactTable) finalize() domain.ContactStatsMap {
	result := make(domain.ContactStatsMap, len(t))
	for addr, b := range t {
		result[addr] = b.build()
	}
	return result
}

// =============================================================================
// Response time formatting
// =============================================================================

const (
	minutesPerHour = 60
	minutesPerDay  = 1440
)

// FormatResponseTime renders minutes as "45m", "8.5h" or "2.0d".
func FormatResponseTime(minutes float64) string {
	switch {
	case minutes < minutesPerHour:
		return fmt.Sprintf("%dm", int(math.Round(minutes)))
	case minutes < minutesPerDay:
		return strconv.FormatFloat(minutes/minutesPerHour, 'f', 1, 64) + "h"
	default:
		return strconv.FormatFloat(minutes/minutesPerDay, 'f', 1, 64) + "d"
	}
}

var (
	dayPart    = regexp.MustCompile(`([\d.]+)\s*d`)
	hourPart   = regexp.MustCompile(`([\d.]+)\s*h`)
	minutePart = regexp.MustCompile(`([\d.]+)\s*m`)
)

// ParseResponseTime converts a formatted response time back to minutes.
// ok is false for "", "-" and text without any unit.
func ParseResponseTime(s string) (float64, bool) {
	if s == "" || s == "-" {
		return 0, false
	}

	var minutes float64
	found := false
	for _, u := range []struct {
		re     *regexp.Regexp
		factor float64
	}{
		{dayPart, minutesPerDay},
		{hourPart, minutesPerHour},
		{minutePart, 1},
	} {
		m := u.re.FindStringSubmatch(s)
		if m == nil {
			continue
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			continue
		}
		minutes += v * u.factor
		found = true
	}
	return minutes, found
}
