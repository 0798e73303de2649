package persistence

import (
	"context"
	"errors"
	"testing"

	"insight_server/core/domain"
	"insight_server/core/port/out"

	"github.com/google/uuid"
)

func TestMemoryStore_Snapshots(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	if _, err := store.Latest(ctx, "me"); !errors.Is(err, out.ErrNotFound) {
		t.Fatalf("Latest() on empty store error = %v, want ErrNotFound", err)
	}

	snap := &domain.Snapshot{
		RunID:     uuid.New(),
		MailboxID: "me",
		Contacts:  domain.ContactStatsMap{"a@x.com": {Sent: 1}},
	}
	if err := store.Save(ctx, snap); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	// Mutating the caller's copy must not reach the store.
	snap.Contacts["b@x.com"] = domain.ContactStats{Sent: 9}

	got, err := store.Latest(ctx, "me")
	if err != nil {
		t.Fatalf("Latest() error = %v", err)
	}
	if got.RunID != snap.RunID {
		t.Errorf("RunID = %v, want %v", got.RunID, snap.RunID)
	}
	if len(got.Contacts) != 1 {
		t.Errorf("Contacts = %v, want only a@x.com", got.Contacts)
	}

	if err := store.Delete(ctx, "me"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := store.Latest(ctx, "me"); !errors.Is(err, out.ErrNotFound) {
		t.Errorf("Latest() after Delete error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_Settings(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryStore().Settings()

	if _, err := repo.Get(ctx, "me"); !errors.Is(err, out.ErrNotFound) {
		t.Fatalf("Get() on empty store error = %v, want ErrNotFound", err)
	}

	s := domain.DefaultAnalysisSettings()
	s.AnalysisPeriod = domain.AllTime
	if err := repo.Save(ctx, "me", s); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	got, err := repo.Get(ctx, "me")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if !got.IsAllTime() {
		t.Errorf("AnalysisPeriod = %d, want all-time", got.AnalysisPeriod)
	}
}
