package insight

import (
	"testing"
	"time"

	"insight_server/core/domain"
)

func TestBuildConversations(t *testing.T) {
	base := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	sent := []domain.Message{
		{ThreadID: "t1", Recipients: []string{"a@x.com", "b@x.com"}, Timestamp: base.Add(time.Hour)},
		{ThreadID: "t1", Recipients: []string{"a@x.com"}, Timestamp: base},
		{ThreadID: "", Recipients: []string{"c@x.com"}, Timestamp: base},
	}
	received := []domain.Message{
		{ThreadID: "t1", Sender: "a@x.com", Timestamp: base.Add(30 * time.Minute)},
		{ThreadID: "t2", Sender: "d@x.com", Timestamp: base},
		{ThreadID: "t3", Sender: "", Timestamp: base},
	}

	threads := BuildConversations(sent, received)

	if len(threads) != 2 {
		t.Fatalf("len(threads) = %d, want 2 (t1, t2)", len(threads))
	}

	t1 := threads["t1"]
	want := []struct {
		dir  domain.Direction
		addr string
		at   time.Time
	}{
		{domain.DirectionSent, "a@x.com", base},
		{domain.DirectionReceived, "a@x.com", base.Add(30 * time.Minute)},
		{domain.DirectionSent, "a@x.com", base.Add(time.Hour)},
		{domain.DirectionSent, "b@x.com", base.Add(time.Hour)},
	}
	if len(t1) != len(want) {
		t.Fatalf("len(t1) = %d, want %d", len(t1), len(want))
	}
	for i, w := range want {
		ev := t1[i]
		if ev.Direction != w.dir || ev.Counterparty != w.addr || !ev.Timestamp.Equal(w.at) {
			t.Errorf("t1[%d] = %+v, want %s %s at %v", i, ev, w.dir, w.addr, w.at)
		}
	}
}

func TestBuildConversations_SentBeforeReceivedOnTie(t *testing.T) {
	at := time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)

	threads := BuildConversations(
		[]domain.Message{{ThreadID: "t", Recipients: []string{"a@x.com"}, Timestamp: at}},
		[]domain.Message{{ThreadID: "t", Sender: "a@x.com", Timestamp: at}},
	)

	th := threads["t"]
	if len(th) != 2 || th[0].Direction != domain.DirectionSent || th[1].Direction != domain.DirectionReceived {
		t.Errorf("thread = %+v, want sent then received", th)
	}
}
