package domain

import (
	"fmt"
	"time"
)

// AllTime is the AnalysisPeriod sentinel for "no date cutoff".
const AllTime = -1

// FilterSettings selects which noise rules apply to subjects.
type FilterSettings struct {
	FilterCalendarInvites bool `json:"filterCalendarInvites"`
	FilterOutOfOffice     bool `json:"filterOutOfOffice"`
}

// AnalysisSettings configures one analysis pass.
type AnalysisSettings struct {
	AnalysisPeriod int `json:"analysisPeriod"` // days, or AllTime
	FilterSettings
	FilterGroupEmails bool `json:"filterGroupEmails"` // true: count every recipient separately
	UseBusinessHours  bool `json:"useBusinessHours"`

	// Report thresholds
	ShameThreshold  int `json:"shameThreshold"`  // reply rate percent
	IgnoreThreshold int `json:"ignoreThreshold"` // ignored count
}

// DefaultAnalysisSettings returns the settings used when none are stored.
func DefaultAnalysisSettings() *AnalysisSettings {
	return &AnalysisSettings{
		AnalysisPeriod: 90,
		FilterSettings: FilterSettings{
			FilterCalendarInvites: true,
			FilterOutOfOffice:     true,
		},
		FilterGroupEmails: true,
		UseBusinessHours:  true,
		ShameThreshold:    30,
		IgnoreThreshold:   10,
	}
}

// IsAllTime reports whether the period has no date cutoff.
func (s *AnalysisSettings) IsAllTime() bool {
	return s.AnalysisPeriod == AllTime
}

// Since returns the start of the analysis window relative to now,
// or nil for all-time analysis.
func (s *AnalysisSettings) Since(now time.Time) *time.Time {
	if s.IsAllTime() {
		return nil
	}
	t := now.AddDate(0, 0, -s.AnalysisPeriod)
	return &t
}

// Validate checks ranges of user-provided settings.
func (s *AnalysisSettings) Validate() error {
	if s.AnalysisPeriod != AllTime && s.AnalysisPeriod <= 0 {
		return fmt.Errorf("analysisPeriod must be positive or %d, got %d", AllTime, s.AnalysisPeriod)
	}
	if s.ShameThreshold < 0 || s.ShameThreshold > 100 {
		return fmt.Errorf("shameThreshold must be within 0-100, got %d", s.ShameThreshold)
	}
	if s.IgnoreThreshold < 0 {
		return fmt.Errorf("ignoreThreshold must not be negative, got %d", s.IgnoreThreshold)
	}
	return nil
}
