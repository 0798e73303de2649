// Package outlook provides the Microsoft Outlook/Graph API message source.
package outlook

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"

	"insight_server/core/domain"
	"insight_server/core/port/out"
	"insight_server/pkg/httputil"
	"insight_server/pkg/logger"
)

const (
	graphBaseURL = "https://graph.microsoft.com/v1.0"

	// Minimal-permission scope: metadata only, no bodies or headers.
	scopeMailReadBasic = "https://graph.microsoft.com/Mail.ReadBasic"
	scopeUserRead      = "https://graph.microsoft.com/User.Read"
	scopeOfflineAccess = "offline_access"

	messageSelect = "subject,from,sender,toRecipients,ccRecipients,receivedDateTime,conversationId"
	pageSize      = 1000
)

// Config holds Outlook credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	TenantID     string
	RefreshToken string
	FetchLimit   int // per folder; 0 = one page
	BaseURL      string
}

// Source implements out.MessageSource for Outlook.
type Source struct {
	client     *http.Client
	baseURL    string
	fetchLimit int
	cb         *gobreaker.CircuitBreaker
}

// NewSource creates an Outlook source that refreshes its access token from cfg.RefreshToken.
func NewSource(ctx context.Context, cfg *Config) *Source {
	tenant := cfg.TenantID
	if tenant == "" {
		tenant = "common"
	}
	oauthCfg := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Endpoint:     microsoft.AzureADEndpoint(tenant),
		Scopes:       []string{scopeMailReadBasic, scopeUserRead, scopeOfflineAccess},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, httputil.NewClient(httputil.OutlookClientConfig()))
	client := oauthCfg.Client(ctx, &oauth2.Token{RefreshToken: cfg.RefreshToken})
	return NewSourceWithClient(client, cfg)
}

// NewSourceWithClient creates a source around an already authorized client.
func NewSourceWithClient(client *http.Client, cfg *Config) *Source {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = graphBaseURL
	}
	limit := cfg.FetchLimit
	if limit <= 0 {
		limit = pageSize
	}

	cbSettings := gobreaker.Settings{
		Name:        "graph-api",
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
		IsSuccessful: func(err error) bool {
			// Client errors do not say anything about Graph's health.
			var apiErr *graphError
			if errors.As(err, &apiErr) {
				return apiErr.Status < 500 && apiErr.Status != http.StatusTooManyRequests
			}
			return err == nil
		},
	}

	return &Source{
		client:     client,
		baseURL:    strings.TrimRight(baseURL, "/"),
		fetchLimit: limit,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Name returns the source name.
func (s *Source) Name() string {
	return "outlook"
}

// FetchMessages lists sent items and inbox messages received since the cutoff.
func (s *Source) FetchMessages(ctx context.Context, since *time.Time) (*domain.MailBatch, error) {
	period := "All-Time"
	if since != nil {
		period = "since " + since.UTC().Format(time.RFC3339)
	}
	logger.WithContext(ctx).Info("Fetching Outlook messages (%s)", period)

	sent, err := s.listFolder(ctx, "sentitems", since)
	if err != nil {
		return nil, fmt.Errorf("list sent items: %w", err)
	}
	received, err := s.listFolder(ctx, "inbox", since)
	if err != nil {
		return nil, fmt.Errorf("list inbox: %w", err)
	}
	return &domain.MailBatch{Sent: sent, Received: received}, nil
}

func (s *Source) listFolder(ctx context.Context, folder string, since *time.Time) ([]domain.MailItem, error) {
	params := url.Values{}
	params.Set("$select", messageSelect)
	params.Set("$top", fmt.Sprintf("%d", min(pageSize, s.fetchLimit)))
	if since != nil {
		params.Set("$filter", "receivedDateTime ge "+since.UTC().Format(time.RFC3339))
	}
	next := fmt.Sprintf("%s/me/mailFolders/%s/messages?%s", s.baseURL, folder, params.Encode())

	var items []domain.MailItem
	for next != "" && len(items) < s.fetchLimit {
		var page struct {
			Value    []graphMessage `json:"value"`
			NextLink string         `json:"@odata.nextLink"`
		}
		if err := s.get(ctx, next, &page); err != nil {
			return nil, err
		}
		for i := range page.Value {
			item, err := convertMessage(&page.Value[i])
			if err != nil {
				logger.WithContext(ctx).WithError(err).Warn("Skipping Outlook message %s", page.Value[i].ID)
				continue
			}
			items = append(items, item)
		}
		next = page.NextLink
	}

	if len(items) > s.fetchLimit {
		items = items[:s.fetchLimit]
	}
	return items, nil
}

// HTTP helpers

func (s *Source) get(ctx context.Context, rawURL string, result interface{}) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")
		return nil, s.doRequest(req, result)
	})
	return err
}

func (s *Source) doRequest(req *http.Request, result interface{}) error {
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &graphError{Status: resp.StatusCode, Body: string(body)}
	}
	return json.NewDecoder(resp.Body).Decode(result)
}

type graphError struct {
	Status int
	Body   string
}

func (e *graphError) Error() string {
	return fmt.Sprintf("graph API error: %d - %s", e.Status, e.Body)
}

// Graph API types

type graphMessage struct {
	ID               string           `json:"id"`
	ConversationID   string           `json:"conversationId"`
	Subject          string           `json:"subject"`
	From             *graphRecipient  `json:"from"`
	Sender           *graphRecipient  `json:"sender"`
	ToRecipients     []graphRecipient `json:"toRecipients"`
	CcRecipients     []graphRecipient `json:"ccRecipients"`
	ReceivedDateTime string           `json:"receivedDateTime"`
}

type graphRecipient struct {
	EmailAddress graphEmailAddress `json:"emailAddress"`
}

type graphEmailAddress struct {
	Name    string `json:"name"`
	Address string `json:"address"`
}

func convertMessage(msg *graphMessage) (domain.MailItem, error) {
	receivedAt, err := time.Parse(time.RFC3339, msg.ReceivedDateTime)
	if err != nil {
		return domain.MailItem{}, fmt.Errorf("parse receivedDateTime: %w", err)
	}

	return domain.MailItem{
		ID:         msg.ID,
		ThreadID:   msg.ConversationID,
		Subject:    msg.Subject,
		From:       address(msg.From),
		Sender:     address(msg.Sender),
		To:         addresses(msg.ToRecipients),
		Cc:         addresses(msg.CcRecipients),
		ReceivedAt: receivedAt,
	}, nil
}

func address(r *graphRecipient) string {
	if r == nil {
		return ""
	}
	return r.EmailAddress.Address
}

func addresses(rs []graphRecipient) []string {
	if len(rs) == 0 {
		return nil
	}
	result := make([]string, 0, len(rs))
	for _, r := range rs {
		result = append(result, r.EmailAddress.Address)
	}
	return result
}

// Ensure Source implements out.MessageSource
var _ out.MessageSource = (*Source)(nil)
