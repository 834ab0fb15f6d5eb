package memory

import (
	"context"
	"sync"
	"testing"
	"time"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
)

func TestVoteStoreLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore()

	if err := store.Record(ctx, "s1", 0, "u1", 0); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, "s1", 0, "u1", 2); err != nil {
		t.Fatalf("record: %v", err)
	}

	tally, err := store.Tally(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if len(tally) != 1 || tally["u1"] != 2 {
		t.Fatalf("expected only the second vote, got %v", tally)
	}
}

func TestVoteStoreConcurrentDisjointWriters(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			participant := string(rune('a' + n%26))
			_ = store.Record(ctx, "s1", n%3, participant+"-"+string(rune('0'+n/26)), n%4)
		}(i)
	}
	wg.Wait()

	total := 0
	for q := 0; q < 3; q++ {
		tally, err := store.Tally(ctx, "s1", q)
		if err != nil {
			t.Fatalf("tally q%d: %v", q, err)
		}
		total += len(tally)
	}
	if total == 0 {
		t.Fatal("expected recorded votes across questions")
	}
}

func TestVoteStorePurge(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore()
	_ = store.Record(ctx, "s1", 0, "u1", 1)
	_ = store.Record(ctx, "s1", 1, "u1", 2)

	if err := store.Purge(ctx, "s1", 2); err != nil {
		t.Fatalf("purge: %v", err)
	}
	for q := 0; q < 2; q++ {
		tally, _ := store.Tally(ctx, "s1", q)
		if len(tally) != 0 {
			t.Fatalf("expected q%d empty after purge, got %v", q, tally)
		}
	}
}

func TestScoreHistoryTrimsToLimit(t *testing.T) {
	ctx := context.Background()
	store := NewScoreHistoryStore()
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < app.HistoryLimit+3; i++ {
		entry := domain.ScoreEntry{Correct: i, Total: 10, RecordedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := store.Append(ctx, "G1", "u1", entry); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	history, err := store.History(ctx, "G1", "u1")
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != app.HistoryLimit {
		t.Fatalf("expected %d entries, got %d", app.HistoryLimit, len(history))
	}
	if history[0].Correct != app.HistoryLimit+2 {
		t.Fatalf("expected newest first, got %+v", history[0])
	}
}

func TestUsedSetStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewUsedSetStore()

	_ = store.Add(ctx, "G1", "bandit")
	_ = store.Add(ctx, "G1", "bogey")
	_ = store.Add(ctx, "G2", "fox")

	members, err := store.Members(ctx, "G1")
	if err != nil {
		t.Fatalf("members: %v", err)
	}
	if len(members) != 2 {
		t.Fatalf("expected 2 members, got %v", members)
	}

	if err := store.Clear(ctx, "G1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	members, _ = store.Members(ctx, "G1")
	if len(members) != 0 {
		t.Fatalf("expected empty set after clear, got %v", members)
	}
	// Other communities are untouched.
	members, _ = store.Members(ctx, "G2")
	if len(members) != 1 {
		t.Fatalf("expected G2 unaffected, got %v", members)
	}
}

func TestCommunityConfigStoreCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewCommunityConfigStore()

	cfg := domain.CommunityConfig{
		CommunityID:  "G1",
		ChannelID:    "C1",
		PostInterval: 24 * time.Hour,
		Enabled:      true,
	}
	if err := store.Put(ctx, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChannelID != "C1" || !got.Enabled {
		t.Fatalf("unexpected config %+v", got)
	}

	if _, err := store.Get(ctx, "missing"); err != domain.ErrCommunityNotFound {
		t.Fatalf("expected ErrCommunityNotFound, got %v", err)
	}

	if err := store.Delete(ctx, "G1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "G1"); err != domain.ErrCommunityNotFound {
		t.Fatalf("expected config gone, got %v", err)
	}
}
