package app

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

// Rotation hands out terms per community with no repeats until the whole
// catalog has been shown, then resets and starts over.
type Rotation struct {
	catalog *Catalog
	used    UsedSetStore
	log     *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewRotation(catalog *Catalog, used UsedSetStore, log *zap.Logger) *Rotation {
	return &Rotation{
		catalog: catalog,
		used:    used,
		log:     log,
		locks:   make(map[string]*sync.Mutex),
		rnd:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// Next picks the community's next unseen term and marks it used. Selection
// and the used-set update are atomic per community; different communities
// never block each other.
func (r *Rotation) Next(ctx context.Context, communityID string) (domain.Term, error) {
	lock := r.communityLock(communityID)
	lock.Lock()
	defer lock.Unlock()

	terms, err := r.catalog.All(ctx)
	if err != nil {
		return domain.Term{}, err
	}
	if len(terms) == 0 {
		return domain.Term{}, domain.ErrNoContent
	}

	used, err := r.used.Members(ctx, communityID)
	if err != nil {
		return domain.Term{}, err
	}

	remaining := make([]domain.Term, 0, len(terms))
	for _, t := range terms {
		if _, ok := used[domain.NormalizeKey(t.Key)]; !ok {
			remaining = append(remaining, t)
		}
	}

	if len(remaining) == 0 {
		// Deck exhausted: reset and deal from the full catalog again.
		if err := r.used.Clear(ctx, communityID); err != nil {
			return domain.Term{}, err
		}
		r.log.Info("rotation reset", zap.String("community", communityID), zap.Int("terms", len(terms)))
		remaining = terms
	}

	chosen := remaining[r.intn(len(remaining))]
	if err := r.used.Add(ctx, communityID, domain.NormalizeKey(chosen.Key)); err != nil {
		return domain.Term{}, err
	}
	return chosen, nil
}

func (r *Rotation) communityLock(communityID string) *sync.Mutex {
	r.mu.Lock()
	defer r.mu.Unlock()
	lock, ok := r.locks[communityID]
	if !ok {
		lock = &sync.Mutex{}
		r.locks[communityID] = lock
	}
	return lock
}

func (r *Rotation) intn(n int) int {
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.rnd.Intn(n)
}
