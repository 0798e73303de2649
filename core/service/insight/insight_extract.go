package insight

import (
	"strings"

	"insight_server/core/domain"
)

// ExtractSender returns the lowercased From address, falling back to Sender.
func ExtractSender(item *domain.MailItem) (string, bool) {
	for _, addr := range []string{item.From, item.Sender} {
		if addr = strings.TrimSpace(addr); addr != "" {
			return strings.ToLower(addr), true
		}
	}
	return "", false
}

// ExtractRecipients returns the contact identifiers a sent message counts
// toward. With separate set, every To and Cc address is returned; otherwise
// the first recipient stands in for the whole recipient set.
func ExtractRecipients(item *domain.MailItem, separate bool) []string {
	all := make([]string, 0, len(item.To)+len(item.Cc))
	all = append(all, item.To...)
	all = append(all, item.Cc...)

	if !separate {
		if len(all) == 0 {
			return nil
		}
		first := strings.TrimSpace(all[0])
		if first == "" {
			return nil
		}
		return []string{strings.ToLower(first)}
	}

	recipients := make([]string, 0, len(all))
	for _, addr := range all {
		if addr = strings.TrimSpace(addr); addr != "" {
			recipients = append(recipients, strings.ToLower(addr))
		}
	}
	return recipients
}

// toMessage filters and normalizes a raw item. ok is false when the item is
// noise or has no usable address for its direction.
func toMessage(item *domain.MailItem, dir domain.Direction, s *domain.AnalysisSettings) (domain.Message, bool) {
	if IsNoise(item, s.FilterSettings) {
		return domain.Message{}, false
	}

	msg := domain.Message{
		Subject:   item.Subject,
		Timestamp: item.ReceivedAt,
		ThreadID:  item.ThreadID,
		Direction: dir,
	}

	switch dir {
	case domain.DirectionSent:
		msg.Recipients = ExtractRecipients(item, s.FilterGroupEmails)
		if len(msg.Recipients) == 0 {
			return domain.Message{}, false
		}
	case domain.DirectionReceived:
		sender, ok := ExtractSender(item)
		if !ok {
			return domain.Message{}, false
		}
		msg.Sender = sender
	}
	return msg, true
}
