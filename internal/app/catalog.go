package app

import (
	"context"
	"fmt"
	"sort"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Catalog owns the canonical term set. All writes go through a full-set
// replace so readers never observe a partially updated catalog.
type Catalog struct {
	store  CatalogStore
	source TermSource
	log    *zap.Logger
	sf     singleflight.Group
}

func NewCatalog(store CatalogStore, source TermSource, log *zap.Logger) *Catalog {
	return &Catalog{store: store, source: source, log: log}
}

// ReplaceAll swaps the active set with terms, deduplicated case-insensitively
// on key (later entries win). The previous set is kept as a backup generation.
func (c *Catalog) ReplaceAll(ctx context.Context, terms []domain.Term) error {
	return c.store.Replace(ctx, dedupeTerms(terms))
}

// All returns the active term set.
func (c *Catalog) All(ctx context.Context) ([]domain.Term, error) {
	return c.store.All(ctx)
}

// ByKey looks up a term case-insensitively.
func (c *Catalog) ByKey(ctx context.Context, key string) (domain.Term, error) {
	terms, err := c.store.All(ctx)
	if err != nil {
		return domain.Term{}, err
	}
	want := domain.NormalizeKey(key)
	for _, t := range terms {
		if domain.NormalizeKey(t.Key) == want {
			return t, nil
		}
	}
	return domain.Term{}, domain.ErrNoContent
}

// Refresh pulls the latest terms from the content source and merges them into
// the active set: new keys are added, changed bodies update in place. A fetch
// failure leaves the catalog untouched. Concurrent refreshes collapse into one.
func (c *Catalog) Refresh(ctx context.Context) (added, updated int, err error) {
	type result struct{ added, updated int }
	v, err, _ := c.sf.Do("refresh", func() (interface{}, error) {
		fetched, err := c.source.FetchTerms(ctx)
		if err != nil {
			return result{}, fmt.Errorf("%w: %v", domain.ErrContentFetch, err)
		}
		existing, err := c.store.All(ctx)
		if err != nil {
			return result{}, err
		}

		merged, added, updated := mergeTerms(existing, fetched)
		if added == 0 && updated == 0 {
			return result{}, nil
		}
		if err := c.store.Replace(ctx, merged); err != nil {
			return result{}, err
		}
		return result{added: added, updated: updated}, nil
	})
	if err != nil {
		return 0, 0, err
	}
	r := v.(result)
	return r.added, r.updated, nil
}

func dedupeTerms(terms []domain.Term) []domain.Term {
	index := make(map[string]int, len(terms))
	out := make([]domain.Term, 0, len(terms))
	for _, t := range terms {
		norm := domain.NormalizeKey(t.Key)
		if norm == "" {
			continue
		}
		if i, ok := index[norm]; ok {
			out[i] = t
			continue
		}
		index[norm] = len(out)
		out = append(out, t)
	}
	return out
}

// mergeTerms folds fetched into existing by normalized key. Existing order is
// preserved; new terms append in key order for stable output.
func mergeTerms(existing, fetched []domain.Term) (merged []domain.Term, added, updated int) {
	merged = make([]domain.Term, len(existing))
	copy(merged, existing)

	index := make(map[string]int, len(merged))
	for i, t := range merged {
		index[domain.NormalizeKey(t.Key)] = i
	}

	var fresh []domain.Term
	for _, t := range dedupeTerms(fetched) {
		norm := domain.NormalizeKey(t.Key)
		if i, ok := index[norm]; ok {
			if merged[i].Text != t.Text {
				merged[i] = t
				updated++
			}
			continue
		}
		index[norm] = -1
		fresh = append(fresh, t)
		added++
	}

	sort.Slice(fresh, func(i, j int) bool {
		return domain.NormalizeKey(fresh[i].Key) < domain.NormalizeKey(fresh[j].Key)
	})
	return append(merged, fresh...), added, updated
}
