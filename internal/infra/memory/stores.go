package memory

import (
	"context"
	"sort"
	"sync"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
)

// CatalogStore keeps the active term set and one backup generation in memory.
type CatalogStore struct {
	mu     sync.RWMutex
	active []domain.Term
	backup []domain.Term
}

func NewCatalogStore() *CatalogStore {
	return &CatalogStore{}
}

func (s *CatalogStore) Replace(_ context.Context, terms []domain.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backup = s.active
	s.active = append([]domain.Term(nil), terms...)
	return nil
}

func (s *CatalogStore) All(_ context.Context) ([]domain.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Term(nil), s.active...), nil
}

func (s *CatalogStore) Backup(_ context.Context) ([]domain.Term, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.Term(nil), s.backup...), nil
}

// CommunityConfigStore is an in-memory implementation of app.CommunityConfigStore.
type CommunityConfigStore struct {
	mu      sync.RWMutex
	configs map[string]domain.CommunityConfig
}

func NewCommunityConfigStore() *CommunityConfigStore {
	return &CommunityConfigStore{configs: make(map[string]domain.CommunityConfig)}
}

func (s *CommunityConfigStore) Put(_ context.Context, cfg domain.CommunityConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.CommunityID] = cfg
	return nil
}

func (s *CommunityConfigStore) Get(_ context.Context, communityID string) (domain.CommunityConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	cfg, ok := s.configs[communityID]
	if !ok {
		return domain.CommunityConfig{}, domain.ErrCommunityNotFound
	}
	return cfg, nil
}

func (s *CommunityConfigStore) List(_ context.Context) ([]domain.CommunityConfig, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.CommunityConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CommunityID < out[j].CommunityID })
	return out, nil
}

func (s *CommunityConfigStore) Delete(_ context.Context, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, communityID)
	return nil
}

// UsedSetStore is an in-memory implementation of app.UsedSetStore.
type UsedSetStore struct {
	mu   sync.RWMutex
	used map[string]map[string]struct{}
}

func NewUsedSetStore() *UsedSetStore {
	return &UsedSetStore{used: make(map[string]map[string]struct{})}
}

func (s *UsedSetStore) Add(_ context.Context, communityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	set, ok := s.used[communityID]
	if !ok {
		set = make(map[string]struct{})
		s.used[communityID] = set
	}
	set[key] = struct{}{}
	return nil
}

func (s *UsedSetStore) Members(_ context.Context, communityID string) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]struct{}, len(s.used[communityID]))
	for key := range s.used[communityID] {
		out[key] = struct{}{}
	}
	return out, nil
}

func (s *UsedSetStore) Clear(_ context.Context, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, communityID)
	return nil
}

// VoteStore is an in-memory implementation of app.VoteStore. Writes to
// disjoint (session, question, participant) keys only contend on the map
// lock; same-key writes are last-write-wins.
type VoteStore struct {
	mu    sync.RWMutex
	votes map[voteKey]map[string]int
}

type voteKey struct {
	sessionID string
	question  int
}

func NewVoteStore() *VoteStore {
	return &VoteStore{votes: make(map[voteKey]map[string]int)}
}

func (s *VoteStore) Record(_ context.Context, sessionID string, question int, participantID string, option int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := voteKey{sessionID: sessionID, question: question}
	bucket, ok := s.votes[key]
	if !ok {
		bucket = make(map[string]int)
		s.votes[key] = bucket
	}
	bucket[participantID] = option
	return nil
}

func (s *VoteStore) Tally(_ context.Context, sessionID string, question int) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bucket := s.votes[voteKey{sessionID: sessionID, question: question}]
	out := make(map[string]int, len(bucket))
	for participant, option := range bucket {
		out[participant] = option
	}
	return out, nil
}

func (s *VoteStore) Purge(_ context.Context, sessionID string, questions int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := 0; i < questions; i++ {
		delete(s.votes, voteKey{sessionID: sessionID, question: i})
	}
	return nil
}

// ScoreHistoryStore is an in-memory implementation of app.ScoreHistoryStore.
type ScoreHistoryStore struct {
	mu      sync.RWMutex
	entries map[string]map[string][]domain.ScoreEntry
}

func NewScoreHistoryStore() *ScoreHistoryStore {
	return &ScoreHistoryStore{entries: make(map[string]map[string][]domain.ScoreEntry)}
}

func (s *ScoreHistoryStore) Append(_ context.Context, communityID, participantID string, entry domain.ScoreEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	community, ok := s.entries[communityID]
	if !ok {
		community = make(map[string][]domain.ScoreEntry)
		s.entries[communityID] = community
	}
	history := append([]domain.ScoreEntry{entry}, community[participantID]...)
	if len(history) > app.HistoryLimit {
		history = history[:app.HistoryLimit]
	}
	community[participantID] = history
	return nil
}

func (s *ScoreHistoryStore) History(_ context.Context, communityID, participantID string) ([]domain.ScoreEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]domain.ScoreEntry(nil), s.entries[communityID][participantID]...), nil
}

func (s *ScoreHistoryStore) Participants(_ context.Context, communityID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.entries[communityID]))
	for participant := range s.entries[communityID] {
		out = append(out, participant)
	}
	sort.Strings(out)
	return out, nil
}
