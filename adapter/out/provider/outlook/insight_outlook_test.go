package outlook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"insight_server/core/domain"

	"github.com/goccy/go-json"
	"github.com/sony/gobreaker"
)

func newGraphServer(t *testing.T, handler http.HandlerFunc) (*httptest.Server, *Source) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv, NewSourceWithClient(srv.Client(), &Config{BaseURL: srv.URL, FetchLimit: 10})
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestFetchMessages_FoldersPagingAndConversion(t *testing.T) {
	var srvURL string
	var filters []string

	srv, src := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		filters = append(filters, r.URL.Query().Get("$filter"))
		switch {
		case r.URL.Path == "/me/mailFolders/sentitems/messages" && r.URL.Query().Get("page") == "":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{{
					"id":               "s1",
					"conversationId":   "c1",
					"subject":          "Proposal",
					"toRecipients":     []map[string]any{{"emailAddress": map[string]string{"address": "Alice@X.com"}}},
					"ccRecipients":     []map[string]any{{"emailAddress": map[string]string{"address": "bob@x.com"}}},
					"receivedDateTime": "2024-03-04T10:00:00Z",
				}},
				"@odata.nextLink": srvURL + "/me/mailFolders/sentitems/messages?page=2",
			})
		case r.URL.Path == "/me/mailFolders/sentitems/messages":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{{
					"id":               "s2",
					"conversationId":   "c2",
					"subject":          "Follow up",
					"toRecipients":     []map[string]any{{"emailAddress": map[string]string{"address": "carol@x.com"}}},
					"receivedDateTime": "2024-03-05T10:00:00Z",
				}},
			})
		case r.URL.Path == "/me/mailFolders/inbox/messages":
			writeJSON(t, w, map[string]any{
				"value": []map[string]any{{
					"id":               "r1",
					"conversationId":   "c1",
					"subject":          "RE: Proposal",
					"sender":           map[string]any{"emailAddress": map[string]string{"address": "alice@x.com"}},
					"receivedDateTime": "2024-03-04T10:30:00Z",
				}},
			})
		default:
			http.NotFound(w, r)
		}
	})
	srvURL = srv.URL

	since := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	batch, err := src.FetchMessages(context.Background(), &since)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}

	if len(batch.Sent) != 2 {
		t.Fatalf("len(Sent) = %d, want 2 (two pages)", len(batch.Sent))
	}
	if len(batch.Received) != 1 {
		t.Fatalf("len(Received) = %d, want 1", len(batch.Received))
	}

	first := batch.Sent[0]
	if first.ThreadID != "c1" || first.To[0] != "Alice@X.com" || first.Cc[0] != "bob@x.com" {
		t.Errorf("Sent[0] = %+v", first)
	}
	if !first.ReceivedAt.Equal(time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("ReceivedAt = %v", first.ReceivedAt)
	}

	reply := batch.Received[0]
	if reply.From != "" || reply.Sender != "alice@x.com" {
		t.Errorf("Received[0] From/Sender = %q/%q, want empty/alice@x.com", reply.From, reply.Sender)
	}

	if !strings.HasPrefix(filters[0], "receivedDateTime ge 2024-03-01T00:00:00Z") {
		t.Errorf("$filter = %q, want receivedDateTime cutoff", filters[0])
	}
}

func TestFetchMessages_AllTimeHasNoFilter(t *testing.T) {
	_, src := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("$filter") {
			t.Errorf("unexpected $filter for all-time fetch: %s", r.URL.RawQuery)
		}
		writeJSON(t, w, map[string]any{"value": []any{}})
	})

	batch, err := src.FetchMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}
	if batch.Len() != 0 {
		t.Errorf("Len() = %d, want 0", batch.Len())
	}
}

func TestFetchMessages_FetchLimit(t *testing.T) {
	var srvURL string
	srv, _ := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"value": []map[string]any{
				{"id": "1", "receivedDateTime": "2024-03-04T10:00:00Z"},
				{"id": "2", "receivedDateTime": "2024-03-04T10:00:00Z"},
			},
			"@odata.nextLink": srvURL + r.URL.Path + "?next=1",
		})
	})
	srvURL = srv.URL
	src := NewSourceWithClient(srv.Client(), &Config{BaseURL: srv.URL, FetchLimit: 3})

	batch, err := src.FetchMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}
	if len(batch.Sent) != 3 || len(batch.Received) != 3 {
		t.Errorf("sizes = %d/%d, want 3/3", len(batch.Sent), len(batch.Received))
	}
}

func TestFetchMessages_SkipsBadTimestamp(t *testing.T) {
	_, src := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, map[string]any{
			"value": []map[string]any{
				{"id": "bad", "conversationId": "c1", "receivedDateTime": "yesterday"},
				{"id": "ok", "conversationId": "c1", "receivedDateTime": "2024-03-04T10:00:00Z"},
			},
		})
	})

	batch, err := src.FetchMessages(context.Background(), nil)
	if err != nil {
		t.Fatalf("FetchMessages() error = %v", err)
	}
	for _, items := range [][]domain.MailItem{batch.Sent, batch.Received} {
		if len(items) != 1 || items[0].ID != "ok" {
			t.Errorf("items = %+v, want only the message with a valid timestamp", items)
		}
	}
}

func TestCircuitBreaker_ClientErrorsDoNotTrip(t *testing.T) {
	_, src := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"forbidden"}`, http.StatusForbidden)
	})

	for i := 0; i < 5; i++ {
		if _, err := src.FetchMessages(context.Background(), nil); err == nil {
			t.Fatal("FetchMessages() error = nil, want 403 error")
		}
	}
	if st := src.cb.State(); st != gobreaker.StateClosed {
		t.Errorf("breaker state = %s, want closed", st)
	}
}

func TestCircuitBreaker_ServerErrorsTrip(t *testing.T) {
	_, src := newGraphServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unavailable", http.StatusServiceUnavailable)
	})

	for i := 0; i < 3; i++ {
		_, _ = src.FetchMessages(context.Background(), nil)
	}
	if st := src.cb.State(); st != gobreaker.StateOpen {
		t.Errorf("breaker state = %s, want open", st)
	}
}
