package http

import (
	"context"
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"insight_server/adapter/out/persistence"
	"insight_server/adapter/out/provider/sample"
	"insight_server/core/domain"
	"insight_server/core/service/insight"
	"insight_server/infra/middleware"

	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
)

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
}

func newTestApp(t *testing.T) *fiber.App {
	t.Helper()

	defaults := domain.DefaultAnalysisSettings()
	defaults.AnalysisPeriod = domain.AllTime

	store := persistence.NewMemoryStore()
	svc := insight.NewService(insight.ServiceConfig{
		MailboxID: "me",
		Source:    sample.NewSource(),
		Snapshots: store,
		Settings:  store.Settings(),
		Clock:     insight.NewBusinessHours(time.UTC),
		Defaults:  defaults,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: middleware.ErrorHandler(),
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})
	app.Use(middleware.RequestID())

	NewHealthHandler(map[string]HealthChecker{"store": nil}).Register(app)
	api := app.Group("/api/v1")
	NewInsightHandler(svc).Register(api)
	NewSettingsHandler(svc).Register(api)
	return app
}

func do(t *testing.T, app *fiber.App, method, path, body string) (int, envelope) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	var env envelope
	raw, _ := io.ReadAll(resp.Body)
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &env); err != nil {
			t.Fatalf("%s %s: decode %q: %v", method, path, raw, err)
		}
	}
	return resp.StatusCode, env
}

func TestInsightHandler_Lifecycle(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, "GET", "/api/v1/insights", "")
	if status != fiber.StatusNotFound || env.Error == nil || env.Error.Code != "NOT_FOUND" {
		t.Fatalf("GET before refresh = %d %+v, want 404 NOT_FOUND", status, env.Error)
	}

	status, env = do(t, app, "POST", "/api/v1/insights/refresh", "")
	if status != fiber.StatusOK || !env.Success {
		t.Fatalf("POST refresh = %d %+v", status, env.Error)
	}
	var snap domain.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if snap.Source != "sample" {
		t.Errorf("Source = %q, want sample", snap.Source)
	}
	if got := snap.Contacts["jane.smith@company.com"]; got.Sent != 28 || got.RepliedTo != 28 {
		t.Errorf("jane = %+v, want 28 sent and replied", got)
	}

	status, env = do(t, app, "GET", "/api/v1/insights/report?sort=ignored", "")
	if status != fiber.StatusOK {
		t.Fatalf("GET report = %d %+v", status, env.Error)
	}
	var report domain.InsightReport
	if err := json.Unmarshal(env.Data, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SortBy != "ignored" || len(report.Contacts) == 0 || report.Contacts[0].Email != "john.doe@company.com" {
		t.Errorf("report sort=%q first=%+v, want john.doe first", report.SortBy, report.Contacts)
	}
	if report.Summary.TotalContacts != len(snap.Contacts) {
		t.Errorf("TotalContacts = %d, want %d", report.Summary.TotalContacts, len(snap.Contacts))
	}

	status, env = do(t, app, "GET", "/api/v1/insights/report?sort=alphabet", "")
	if status != fiber.StatusBadRequest || env.Error == nil || env.Error.Code != "INVALID_INPUT" {
		t.Errorf("GET report bad sort = %d %+v, want 400 INVALID_INPUT", status, env.Error)
	}

	status, _ = do(t, app, "DELETE", "/api/v1/insights", "")
	if status != fiber.StatusNoContent {
		t.Errorf("DELETE = %d, want 204", status)
	}
	status, _ = do(t, app, "GET", "/api/v1/insights", "")
	if status != fiber.StatusNotFound {
		t.Errorf("GET after DELETE = %d, want 404", status)
	}
}

func TestInsightHandler_Analyze(t *testing.T) {
	app := newTestApp(t)

	body := `{
		"messages": {
			"sent": [{"subject": "Hi", "to": ["Bob@X.com"], "receivedAt": "2024-03-04T10:00:00Z", "threadId": "t1"}],
			"received": [{"subject": "Re: Hi", "from": "bob@x.com", "receivedAt": "2024-03-04T10:30:00Z", "threadId": "t1"}]
		},
		"settings": {"analysisPeriod": -1, "filterGroupEmails": true, "useBusinessHours": true, "shameThreshold": 30, "ignoreThreshold": 10}
	}`
	status, env := do(t, app, "POST", "/api/v1/insights/analyze", body)
	if status != fiber.StatusOK {
		t.Fatalf("POST analyze = %d %+v", status, env.Error)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	want := domain.ContactStats{Sent: 1, Received: 1, RepliedTo: 1, AvgResponseTime: "30m"}
	if got := snap.Contacts["bob@x.com"]; got != want {
		t.Errorf("bob = %+v, want %+v", got, want)
	}

	// store was false, nothing persisted
	if status, _ := do(t, app, "GET", "/api/v1/insights", ""); status != fiber.StatusNotFound {
		t.Errorf("GET after unstored analyze = %d, want 404", status)
	}

	status, env = do(t, app, "POST", "/api/v1/insights/analyze", "")
	if status != fiber.StatusBadRequest || env.Error == nil || env.Error.Code != "BAD_REQUEST" {
		t.Errorf("POST analyze without body = %d %+v, want 400 BAD_REQUEST", status, env.Error)
	}
}

func TestInsightHandler_AnalyzePartialSettings(t *testing.T) {
	app := newTestApp(t)

	body := `{
		"messages": {
			"sent": [
				{"subject": "Accepted: Project Sync", "to": ["a@x.com", "b@x.com"], "receivedAt": "2024-03-04T10:00:00Z", "threadId": "t1"},
				{"subject": "Hi", "to": ["a@x.com"], "receivedAt": "2024-03-04T11:00:00Z", "threadId": "t2"}
			],
			"received": []
		},
		"settings": {"analysisPeriod": -1}
	}`
	status, env := do(t, app, "POST", "/api/v1/insights/analyze", body)
	if status != fiber.StatusOK {
		t.Fatalf("POST analyze = %d %+v", status, env.Error)
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(env.Data, &snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}

	s := snap.Settings
	if !s.FilterCalendarInvites || !s.FilterOutOfOffice || !s.FilterGroupEmails || !s.UseBusinessHours {
		t.Errorf("settings = %+v, want omitted fields kept from stored settings", s)
	}
	if s.ShameThreshold != 30 || s.IgnoreThreshold != 10 {
		t.Errorf("thresholds = %d/%d, want 30/10", s.ShameThreshold, s.IgnoreThreshold)
	}

	if want := (domain.ContactStats{Sent: 1, Ignored: 1}); snap.Contacts["a@x.com"] != want {
		t.Errorf("a@x.com = %+v, want %+v (invite filtered)", snap.Contacts["a@x.com"], want)
	}
	if _, ok := snap.Contacts["b@x.com"]; ok {
		t.Errorf("b@x.com present, want the calendar reply filtered out")
	}
}

func TestSettingsHandler(t *testing.T) {
	app := newTestApp(t)

	status, env := do(t, app, "GET", "/api/v1/insights/settings", "")
	if status != fiber.StatusOK {
		t.Fatalf("GET settings = %d", status)
	}
	var got domain.AnalysisSettings
	_ = json.Unmarshal(env.Data, &got)
	if !got.IsAllTime() || got.ShameThreshold != 30 {
		t.Errorf("defaults = %+v", got)
	}

	status, env = do(t, app, "PUT", "/api/v1/insights/settings", `{"shameThreshold": 50}`)
	if status != fiber.StatusOK {
		t.Fatalf("PUT settings = %d %+v", status, env.Error)
	}
	got = domain.AnalysisSettings{}
	_ = json.Unmarshal(env.Data, &got)
	if got.ShameThreshold != 50 || !got.IsAllTime() || !got.UseBusinessHours {
		t.Errorf("updated = %+v, want shameThreshold 50 with other fields kept", got)
	}

	status, env = do(t, app, "PUT", "/api/v1/insights/settings", `{"analysisPeriod": 0}`)
	if status != fiber.StatusBadRequest || env.Error == nil || env.Error.Code != "VALIDATION_FAILED" {
		t.Errorf("PUT invalid = %d %+v, want 400 VALIDATION_FAILED", status, env.Error)
	}
}

type pinger struct{ err error }

func (p pinger) Ping(ctx context.Context) error { return p.err }

func TestHealthHandler_Ready(t *testing.T) {
	tests := []struct {
		name   string
		checks map[string]HealthChecker
		want   int
	}{
		{"healthy", map[string]HealthChecker{"redis": pinger{}}, fiber.StatusOK},
		{"not configured", map[string]HealthChecker{"redis": nil}, fiber.StatusOK},
		{"unhealthy", map[string]HealthChecker{"redis": pinger{errors.New("down")}}, fiber.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			app := fiber.New()
			NewHealthHandler(tt.checks).Register(app)

			resp, err := app.Test(httptest.NewRequest("GET", "/ready", nil))
			if err != nil {
				t.Fatalf("GET /ready: %v", err)
			}
			if resp.StatusCode != tt.want {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.want)
			}
		})
	}
}
