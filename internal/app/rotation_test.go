package app_test

import (
	"context"
	"sync"
	"testing"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	"brevitybot/internal/infra/memory"
	"go.uber.org/zap"
)

func newRotation(t *testing.T, keys ...string) *app.Rotation {
	t.Helper()
	terms := make([]domain.Term, 0, len(keys))
	for _, k := range keys {
		terms = append(terms, domain.Term{Key: k, Text: "definition of " + k})
	}
	catalog := app.NewCatalog(memory.NewCatalogStore(), &fakeSource{}, zap.NewNop())
	if err := catalog.ReplaceAll(context.Background(), terms); err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
	return app.NewRotation(catalog, memory.NewUsedSetStore(), zap.NewNop())
}

func TestNextNeverRepeatsUntilExhausted(t *testing.T) {
	ctx := context.Background()
	rotation := newRotation(t, "A", "B", "C", "D", "E")

	seen := make(map[string]struct{})
	for i := 0; i < 5; i++ {
		term, err := rotation.Next(ctx, "G1")
		if err != nil {
			t.Fatalf("next %d: %v", i, err)
		}
		if _, dup := seen[term.Key]; dup {
			t.Fatalf("term %q repeated before exhaustion", term.Key)
		}
		seen[term.Key] = struct{}{}
	}
	if len(seen) != 5 {
		t.Fatalf("expected a permutation of 5 terms, got %d", len(seen))
	}

	// Sixth draw comes from a reset deck and may repeat anything.
	if _, err := rotation.Next(ctx, "G1"); err != nil {
		t.Fatalf("next after exhaustion: %v", err)
	}
}

func TestNextResetsPerCommunity(t *testing.T) {
	ctx := context.Background()
	rotation := newRotation(t, "A", "B")

	for i := 0; i < 2; i++ {
		if _, err := rotation.Next(ctx, "G1"); err != nil {
			t.Fatalf("next: %v", err)
		}
	}

	// G2 still has a full deck.
	first, err := rotation.Next(ctx, "G2")
	if err != nil {
		t.Fatalf("next for G2: %v", err)
	}
	second, err := rotation.Next(ctx, "G2")
	if err != nil {
		t.Fatalf("next for G2: %v", err)
	}
	if first.Key == second.Key {
		t.Fatalf("G2 deck repeated %q before exhaustion", first.Key)
	}
}

func TestNextFailsOnEmptyCatalog(t *testing.T) {
	rotation := newRotation(t)
	if _, err := rotation.Next(context.Background(), "G1"); err != domain.ErrNoContent {
		t.Fatalf("expected ErrNoContent, got %v", err)
	}
}

func TestNextConcurrentSameCommunity(t *testing.T) {
	ctx := context.Background()
	rotation := newRotation(t, "A", "B", "C", "D", "E", "F", "G", "H")

	var (
		mu   sync.Mutex
		seen = make(map[string]int)
		wg   sync.WaitGroup
	)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			term, err := rotation.Next(ctx, "G1")
			if err != nil {
				t.Errorf("next: %v", err)
				return
			}
			mu.Lock()
			seen[term.Key]++
			mu.Unlock()
		}()
	}
	wg.Wait()

	for key, count := range seen {
		if count != 1 {
			t.Fatalf("term %q drawn %d times within one pass", key, count)
		}
	}
	if len(seen) != 8 {
		t.Fatalf("expected 8 distinct draws, got %d", len(seen))
	}
}
