package domain

import (
	"time"

	"github.com/google/uuid"
)

// ContactStats is the finalized per-contact result of one analysis pass.
// AvgResponseTime is empty when no reply was ever matched.
type ContactStats struct {
	Sent            int    `json:"sent"`
	Received        int    `json:"received"`
	RepliedTo       int    `json:"repliedTo"`
	Ignored         int    `json:"ignored"`
	AvgResponseTime string `json:"avgResponseTime,omitempty"`
}

// ContactStatsMap is keyed by lowercased email address.
type ContactStatsMap map[string]ContactStats

// Snapshot is a stored analysis result.
type Snapshot struct {
	RunID       uuid.UUID        `json:"runId"`
	MailboxID   string           `json:"mailboxId"`
	Source      string           `json:"source"` // outlook, gmail, sample, request
	Sample      bool             `json:"sample"`
	Settings    AnalysisSettings `json:"settings"`
	Messages    int              `json:"messages"`
	Contacts    ContactStatsMap  `json:"contacts"`
	GeneratedAt time.Time        `json:"generatedAt"`
}

// ContactReport is a contact row enriched with derived metrics.
type ContactReport struct {
	Email string `json:"email"`
	ContactStats
	ReplyRate    float64 `json:"replyRate"`
	LowReplyRate bool    `json:"lowReplyRate"`
}

// InsightSummary aggregates a whole snapshot.
type InsightSummary struct {
	TotalContacts   int    `json:"totalContacts"`
	TotalEmails     int    `json:"totalEmails"`
	TotalIgnored    int    `json:"totalIgnored"`
	AvgResponseTime string `json:"avgResponseTime"`
}

// InsightReport is a sorted, summarized view of a snapshot.
type InsightReport struct {
	RunID       uuid.UUID       `json:"runId"`
	SortBy      string          `json:"sortBy"`
	Summary     InsightSummary  `json:"summary"`
	Contacts    []ContactReport `json:"contacts"`
	Sample      bool            `json:"sample"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
