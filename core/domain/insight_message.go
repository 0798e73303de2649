package domain

import "time"

// Direction tells whether a message was sent by the mailbox owner or received.
type Direction string

const (
	DirectionSent     Direction = "sent"
	DirectionReceived Direction = "received"
)

// MailItem is a message as delivered by a message source, before any
// filtering or address normalization.
type MailItem struct {
	ID         string    `json:"id,omitempty"`
	Subject    string    `json:"subject"`
	From       string    `json:"from,omitempty"`
	Sender     string    `json:"sender,omitempty"`
	To         []string  `json:"to,omitempty"`
	Cc         []string  `json:"cc,omitempty"`
	ReceivedAt time.Time `json:"receivedAt"`
	ThreadID   string    `json:"threadId,omitempty"`
}

// MailBatch holds the two ordered message sets of one mailbox.
type MailBatch struct {
	Sent     []MailItem `json:"sent"`
	Received []MailItem `json:"received"`
}

// Len returns the total number of items in the batch.
func (b *MailBatch) Len() int {
	if b == nil {
		return 0
	}
	return len(b.Sent) + len(b.Received)
}

// Since returns a copy of the batch keeping only items received at or after t.
func (b *MailBatch) Since(t time.Time) *MailBatch {
	if b == nil {
		return &MailBatch{}
	}
	keep := func(items []MailItem) []MailItem {
		out := make([]MailItem, 0, len(items))
		for _, it := range items {
			if !it.ReceivedAt.Before(t) {
				out = append(out, it)
			}
		}
		return out
	}
	return &MailBatch{Sent: keep(b.Sent), Received: keep(b.Received)}
}

// Message is a filtered MailItem with normalized addresses.
// Sender is set for received messages, Recipients for sent ones.
type Message struct {
	Subject    string
	Sender     string
	Recipients []string
	Timestamp  time.Time
	ThreadID   string
	Direction  Direction
}

// ThreadEvent projects a Message onto a thread timeline. Counterparty is the
// recipient for sent events and the sender for received events.
type ThreadEvent struct {
	Direction    Direction
	Timestamp    time.Time
	Counterparty string
}

// Thread is a conversation timeline ordered ascending by timestamp.
type Thread []ThreadEvent
