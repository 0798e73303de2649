// Package gmail provides the Gmail API message source.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/go-pkgz/pool"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"insight_server/core/domain"
	"insight_server/core/port/out"
	"insight_server/pkg/httputil"
	"insight_server/pkg/logger"
)

const (
	labelSent  = "SENT"
	labelInbox = "INBOX"

	listPageSize       = 500
	defaultFetchLimit  = 1000
	defaultConcurrency = 10
	perMessageTimeout  = 15 * time.Second
)

var metadataHeaders = []string{"Subject", "From", "Sender", "To", "Cc"}

// Config holds Gmail credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	FetchLimit   int // per label
	Concurrency  int // parallel metadata requests
}

// Source implements out.MessageSource for Gmail.
type Source struct {
	svc         *gmail.Service
	fetchLimit  int
	concurrency int
	cb          *gobreaker.CircuitBreaker
}

// NewSource creates a Gmail source authorized by cfg.RefreshToken.
func NewSource(ctx context.Context, cfg *Config) (*Source, error) {
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{gmail.GmailMetadataScope},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.NewClient(httputil.GmailClientConfig()))
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})

	svc, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("create gmail service: %w", err)
	}
	return NewSourceWithService(svc, cfg), nil
}

// NewSourceWithService creates a source around an existing Gmail service.
func NewSourceWithService(svc *gmail.Service, cfg *Config) *Source {
	limit := cfg.FetchLimit
	if limit <= 0 {
		limit = defaultFetchLimit
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}

	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
		IsSuccessful: isHealthy,
	}

	return &Source{
		svc:         svc,
		fetchLimit:  limit,
		concurrency: concurrency,
		cb:          gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// isHealthy treats client errors (bad request, auth, not found) as successes
// for breaker accounting; only 429 and 5xx trip it.
func isHealthy(err error) bool {
	if err == nil {
		return true
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		return apiErr.Code < 500 && apiErr.Code != 429
	}
	return false
}

// Name returns the source name.
func (s *Source) Name() string {
	return "gmail"
}

// FetchMessages lists SENT and INBOX messages received since the cutoff.
func (s *Source) FetchMessages(ctx context.Context, since *time.Time) (*domain.MailBatch, error) {
	query := ""
	if since != nil {
		query = fmt.Sprintf("after:%d", since.Unix())
	}

	sent, err := s.fetchLabel(ctx, labelSent, query)
	if err != nil {
		return nil, fmt.Errorf("list sent messages: %w", err)
	}
	received, err := s.fetchLabel(ctx, labelInbox, query)
	if err != nil {
		return nil, fmt.Errorf("list inbox messages: %w", err)
	}
	return &domain.MailBatch{Sent: sent, Received: received}, nil
}

func (s *Source) fetchLabel(ctx context.Context, label, query string) ([]domain.MailItem, error) {
	ids, err := s.listIDs(ctx, label, query)
	if err != nil {
		return nil, err
	}
	return s.fetchMetadata(ctx, ids)
}

func (s *Source) listIDs(ctx context.Context, label, query string) ([]string, error) {
	var ids []string
	pageToken := ""

	for len(ids) < s.fetchLimit {
		req := s.svc.Users.Messages.List("me").
			LabelIds(label).
			MaxResults(int64(min(listPageSize, s.fetchLimit-len(ids))))
		if query != "" {
			req = req.Q(query)
		}
		if pageToken != "" {
			req = req.PageToken(pageToken)
		}

		var resp *gmail.ListMessagesResponse
		err := s.execute(func() error {
			var err error
			resp, err = req.Context(ctx).Do()
			return err
		})
		if err != nil {
			return nil, err
		}

		for _, m := range resp.Messages {
			ids = append(ids, m.Id)
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	if len(ids) > s.fetchLimit {
		ids = ids[:s.fetchLimit]
	}
	return ids, nil
}

type metadataJob struct {
	index int
	id    string
}

// fetchMetadata loads headers for every id in parallel, keeping list order.
// Messages that fail individually are skipped; the call fails only when
// every message failed.
func (s *Source) fetchMetadata(ctx context.Context, ids []string) ([]domain.MailItem, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	items := make([]domain.MailItem, len(ids))
	fetched := make([]bool, len(ids))
	var failed int64
	var lastErr error
	var errMu sync.Mutex

	worker := pool.WorkerFunc[metadataJob](func(ctx context.Context, job metadataJob) error {
		msgCtx, cancel := context.WithTimeout(ctx, perMessageTimeout)
		defer cancel()

		var msg *gmail.Message
		err := s.execute(func() error {
			var err error
			msg, err = s.svc.Users.Messages.Get("me", job.id).
				Format("metadata").
				MetadataHeaders(metadataHeaders...).
				Context(msgCtx).Do()
			return err
		})
		if err != nil {
			atomic.AddInt64(&failed, 1)
			errMu.Lock()
			lastErr = err
			errMu.Unlock()
			return nil
		}

		// Each job owns its slot, no lock needed.
		items[job.index] = convertMessage(msg)
		fetched[job.index] = true
		return nil
	})

	p := pool.New[metadataJob](s.concurrency, worker).WithContinueOnError()
	if err := p.Go(ctx); err != nil {
		return nil, fmt.Errorf("start metadata pool: %w", err)
	}
	for i, id := range ids {
		p.Submit(metadataJob{index: i, id: id})
	}
	if err := p.Close(ctx); err != nil {
		return nil, fmt.Errorf("fetch metadata: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if int(failed) == len(ids) {
		return nil, fmt.Errorf("fetch metadata: all %d messages failed: %w", len(ids), lastErr)
	}
	if failed > 0 {
		logger.WithContext(ctx).WithError(lastErr).Warn("Skipped %d of %d Gmail messages", failed, len(ids))
	}

	result := make([]domain.MailItem, 0, len(ids)-int(failed))
	for i, ok := range fetched {
		if ok {
			result = append(result, items[i])
		}
	}
	return result, nil
}

func (s *Source) execute(fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		return nil, fn()
	})
	return err
}

func convertMessage(msg *gmail.Message) domain.MailItem {
	item := domain.MailItem{
		ID:         msg.Id,
		ThreadID:   msg.ThreadId,
		ReceivedAt: time.UnixMilli(msg.InternalDate).UTC(),
	}
	if msg.Payload == nil {
		return item
	}

	for _, h := range msg.Payload.Headers {
		switch h.Name {
		case "Subject":
			item.Subject = h.Value
		case "From":
			item.From = parseAddress(h.Value)
		case "Sender":
			item.Sender = parseAddress(h.Value)
		case "To":
			item.To = parseAddressList(h.Value)
		case "Cc":
			item.Cc = parseAddressList(h.Value)
		}
	}
	return item
}

// parseAddress returns the bare address, or "" when s does not parse.
func parseAddress(s string) string {
	addr, err := mail.ParseAddress(s)
	if err != nil {
		return ""
	}
	return addr.Address
}

// parseAddressList parses a To/Cc header. When the header as a whole is
// malformed, each comma-separated part is parsed on its own and parts that
// do not parse are dropped.
func parseAddressList(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	list, err := mail.ParseAddressList(s)
	if err == nil {
		result := make([]string, len(list))
		for i, addr := range list {
			result[i] = addr.Address
		}
		return result
	}

	var result []string
	for _, part := range strings.Split(s, ",") {
		if addr := parseAddress(part); addr != "" {
			result = append(result, addr)
		}
	}
	return result
}

// Ensure Source implements out.MessageSource
var _ out.MessageSource = (*Source)(nil)
