package redis

import (
	"context"
	"testing"
	"time"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestClient(t *testing.T) *redis.Client {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	t.Cleanup(mr.Close)
	return redis.NewClient(&redis.Options{Addr: mr.Addr()})
}

func TestCatalogStoreSwapKeepsBackup(t *testing.T) {
	ctx := context.Background()
	store := NewCatalogStore(newTestClient(t))

	first := []domain.Term{{Key: "Bandit", Text: "confirmed hostile"}}
	second := []domain.Term{{Key: "Bogey", Text: "unknown contact"}}

	if err := store.Replace(ctx, first); err != nil {
		t.Fatalf("first replace: %v", err)
	}
	if err := store.Replace(ctx, second); err != nil {
		t.Fatalf("second replace: %v", err)
	}

	active, err := store.All(ctx)
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(active) != 1 || active[0].Key != "Bogey" {
		t.Fatalf("unexpected active set %+v", active)
	}

	backup, err := store.Backup(ctx)
	if err != nil {
		t.Fatalf("backup: %v", err)
	}
	if len(backup) != 1 || backup[0].Key != "Bandit" {
		t.Fatalf("unexpected backup set %+v", backup)
	}
}

func TestCatalogStoreEmptyReadsNil(t *testing.T) {
	store := NewCatalogStore(newTestClient(t))
	terms, err := store.All(context.Background())
	if err != nil {
		t.Fatalf("all on empty: %v", err)
	}
	if len(terms) != 0 {
		t.Fatalf("expected empty catalog, got %+v", terms)
	}
}

func TestCommunityConfigStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewCommunityConfigStore(newTestClient(t))

	posted := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := domain.CommunityConfig{
		CommunityID:  "G1",
		ChannelID:    "C1",
		PostInterval: 24 * time.Hour,
		LastPostedAt: posted,
		Enabled:      true,
	}
	if err := store.Put(ctx, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := store.Get(ctx, "G1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChannelID != "C1" || got.PostInterval != 24*time.Hour || !got.LastPostedAt.Equal(posted) || !got.Enabled {
		t.Fatalf("round trip mismatch: %+v", got)
	}

	list, err := store.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("expected 1 config, got %d", len(list))
	}

	if err := store.Delete(ctx, "G1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Get(ctx, "G1"); err != domain.ErrCommunityNotFound {
		t.Fatalf("expected ErrCommunityNotFound, got %v", err)
	}
	list, _ = store.List(ctx)
	if len(list) != 0 {
		t.Fatalf("expected empty list after delete, got %+v", list)
	}
}

func TestUsedSetStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewUsedSetStore(newTestClient(t))

	_ = store.Add(ctx, "G1", "bandit")
	_ = store.Add(ctx, "G1", "bandit") // idempotent
	_ = store.Add(ctx, "G1", "bogey")

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
		t.Fatalf("expected cleared set, got %v", members)
	}
}

func TestVoteStoreLastWriteWinsAndPurge(t *testing.T) {
	ctx := context.Background()
	store := NewVoteStore(newTestClient(t), time.Minute)

	if err := store.Record(ctx, "s1", 0, "u1", 0); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, "s1", 0, "u1", 3); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := store.Record(ctx, "s1", 0, "u2", 1); err != nil {
		t.Fatalf("record: %v", err)
	}

	tally, err := store.Tally(ctx, "s1", 0)
	if err != nil {
		t.Fatalf("tally: %v", err)
	}
	if len(tally) != 2 || tally["u1"] != 3 || tally["u2"] != 1 {
		t.Fatalf("unexpected tally %v", tally)
	}

	if err := store.Purge(ctx, "s1", 1); err != nil {
		t.Fatalf("purge: %v", err)
	}
	tally, _ = store.Tally(ctx, "s1", 0)
	if len(tally) != 0 {
		t.Fatalf("expected empty tally after purge, got %v", tally)
	}
}

func TestScoreHistoryTrimsToLimit(t *testing.T) {
	ctx := context.Background()
	store := NewScoreHistoryStore(newTestClient(t))
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < app.HistoryLimit+2; i++ {
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
	if history[0].Correct != app.HistoryLimit+1 {
		t.Fatalf("expected newest first, got %+v", history[0])
	}

	participants, err := store.Participants(ctx, "G1")
	if err != nil {
		t.Fatalf("participants: %v", err)
	}
	if len(participants) != 1 || participants[0] != "u1" {
		t.Fatalf("unexpected participants %v", participants)
	}
}
