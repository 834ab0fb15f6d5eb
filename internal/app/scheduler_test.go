package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

// Internal tests use hand-rolled stores: importing infra/memory here would
// cycle back into this package.

type stubCatalogStore struct {
	mu     sync.Mutex
	active []domain.Term
	backup []domain.Term
}

func (s *stubCatalogStore) Replace(_ context.Context, terms []domain.Term) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.backup, s.active = s.active, terms
	return nil
}

func (s *stubCatalogStore) All(_ context.Context) ([]domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Term(nil), s.active...), nil
}

func (s *stubCatalogStore) Backup(_ context.Context) ([]domain.Term, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Term(nil), s.backup...), nil
}

type stubUsedSetStore struct {
	mu   sync.Mutex
	used map[string]map[string]struct{}
}

func newStubUsedSetStore() *stubUsedSetStore {
	return &stubUsedSetStore{used: make(map[string]map[string]struct{})}
}

func (s *stubUsedSetStore) Add(_ context.Context, communityID, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.used[communityID] == nil {
		s.used[communityID] = make(map[string]struct{})
	}
	s.used[communityID][key] = struct{}{}
	return nil
}

func (s *stubUsedSetStore) Members(_ context.Context, communityID string) (map[string]struct{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]struct{}, len(s.used[communityID]))
	for k := range s.used[communityID] {
		out[k] = struct{}{}
	}
	return out, nil
}

func (s *stubUsedSetStore) Clear(_ context.Context, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.used, communityID)
	return nil
}

type stubConfigStore struct {
	mu      sync.Mutex
	configs map[string]domain.CommunityConfig
}

func newStubConfigStore(cfgs ...domain.CommunityConfig) *stubConfigStore {
	s := &stubConfigStore{configs: make(map[string]domain.CommunityConfig)}
	for _, cfg := range cfgs {
		s.configs[cfg.CommunityID] = cfg
	}
	return s
}

func (s *stubConfigStore) Put(_ context.Context, cfg domain.CommunityConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.configs[cfg.CommunityID] = cfg
	return nil
}

func (s *stubConfigStore) Get(_ context.Context, communityID string) (domain.CommunityConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg, ok := s.configs[communityID]
	if !ok {
		return domain.CommunityConfig{}, domain.ErrCommunityNotFound
	}
	return cfg, nil
}

func (s *stubConfigStore) List(_ context.Context) ([]domain.CommunityConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.CommunityConfig, 0, len(s.configs))
	for _, cfg := range s.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (s *stubConfigStore) Delete(_ context.Context, communityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.configs, communityID)
	return nil
}

type stubMessenger struct {
	mu       sync.Mutex
	messages int
	embeds   []domain.Embed
	fail     bool
}

func (m *stubMessenger) SendMessage(_ context.Context, _, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("channel gone")
	}
	m.messages++
	return nil
}

func (m *stubMessenger) SendEmbed(_ context.Context, _ string, embed domain.Embed) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return errors.New("channel gone")
	}
	m.embeds = append(m.embeds, embed)
	return nil
}

func (m *stubMessenger) PresentChoice(_ context.Context, _, _ string, _ []string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return "", errors.New("channel gone")
	}
	return "msg-1", nil
}

type stubImageSource struct{ url string }

func (s *stubImageSource) FetchImageURL(_ context.Context) (string, error) {
	return s.url, nil
}

type stubTermSource struct{}

func (stubTermSource) FetchTerms(_ context.Context) ([]domain.Term, error) { return nil, nil }

func schedulerFixture(t *testing.T, cfgs []domain.CommunityConfig, messenger *stubMessenger, now time.Time) (*Scheduler, *stubConfigStore) {
	t.Helper()
	store := &stubCatalogStore{}
	_ = store.Replace(context.Background(), []domain.Term{
		{Key: "Bandit", Text: "confirmed hostile"},
		{Key: "Bogey", Text: "unknown contact"},
	})
	catalog := NewCatalog(store, stubTermSource{}, zap.NewNop())
	rotation := NewRotation(catalog, newStubUsedSetStore(), zap.NewNop())
	configs := newStubConfigStore(cfgs...)
	scheduler := NewScheduler(configs, rotation, &stubImageSource{url: "https://img.example/jet.jpg"}, messenger, 5*time.Minute, 5*time.Minute, zap.NewNop())
	scheduler.clock = func() time.Time { return now }
	return scheduler, configs
}

func TestPollPostsDueCommunityAndRecordsTime(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := domain.CommunityConfig{
		CommunityID:  "G1",
		ChannelID:    "C1",
		PostInterval: 24 * time.Hour,
		LastPostedAt: now.Add(-25 * time.Hour),
		Enabled:      true,
	}
	messenger := &stubMessenger{}
	scheduler, configs := schedulerFixture(t, []domain.CommunityConfig{cfg}, messenger, now)

	scheduler.pollOnce(context.Background())

	if messenger.messages != 1 || len(messenger.embeds) != 1 {
		t.Fatalf("expected one post, got %d messages %d embeds", messenger.messages, len(messenger.embeds))
	}
	if messenger.embeds[0].ImageURL != "https://img.example/jet.jpg" {
		t.Fatalf("expected decorative image on the embed, got %q", messenger.embeds[0].ImageURL)
	}

	updated, err := configs.Get(context.Background(), "G1")
	if err != nil {
		t.Fatalf("get config: %v", err)
	}
	if !updated.LastPostedAt.Equal(now) {
		t.Fatalf("expected LastPostedAt=%v, got %v", now, updated.LastPostedAt)
	}

	// A second poll in the same window must not double-post.
	scheduler.pollOnce(context.Background())
	if messenger.messages != 1 {
		t.Fatalf("double fire within the window double-posted: %d messages", messenger.messages)
	}
}

func TestPollSkipsDisabledAndNotDue(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfgs := []domain.CommunityConfig{
		{CommunityID: "off", ChannelID: "C1", PostInterval: time.Hour, LastPostedAt: now.Add(-2 * time.Hour), Enabled: false},
		{CommunityID: "fresh", ChannelID: "C2", PostInterval: 24 * time.Hour, LastPostedAt: now.Add(-time.Hour), Enabled: true},
	}
	messenger := &stubMessenger{}
	scheduler, _ := schedulerFixture(t, cfgs, messenger, now)

	scheduler.pollOnce(context.Background())
	if messenger.messages != 0 {
		t.Fatalf("expected no posts, got %d", messenger.messages)
	}
}

func TestDueWindowOpensToleranceEarly(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	messenger := &stubMessenger{}
	scheduler, _ := schedulerFixture(t, nil, messenger, now)

	cfg := domain.CommunityConfig{
		PostInterval: time.Hour,
		LastPostedAt: now.Add(-time.Hour + 3*time.Minute), // due in 3m, tolerance 5m
	}
	if !scheduler.due(cfg) {
		t.Fatal("expected community just inside the tolerance window to be due")
	}

	cfg.LastPostedAt = now.Add(-time.Hour + 10*time.Minute)
	if scheduler.due(cfg) {
		t.Fatal("expected community outside the window not to be due")
	}
}

func TestDeliveryFailurePrunesCommunity(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := domain.CommunityConfig{
		CommunityID:  "G1",
		ChannelID:    "gone",
		PostInterval: time.Hour,
		LastPostedAt: now.Add(-2 * time.Hour),
		Enabled:      true,
	}
	messenger := &stubMessenger{fail: true}
	scheduler, configs := schedulerFixture(t, []domain.CommunityConfig{cfg}, messenger, now)

	scheduler.pollOnce(context.Background())

	if _, err := configs.Get(context.Background(), "G1"); err != domain.ErrCommunityNotFound {
		t.Fatalf("expected config pruned after delivery failure, got %v", err)
	}
}

func TestEmptyCatalogSkipsTickWithoutPruning(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := domain.CommunityConfig{
		CommunityID:  "G1",
		ChannelID:    "C1",
		PostInterval: time.Hour,
		LastPostedAt: now.Add(-2 * time.Hour),
		Enabled:      true,
	}
	messenger := &stubMessenger{}
	catalog := NewCatalog(&stubCatalogStore{}, stubTermSource{}, zap.NewNop())
	rotation := NewRotation(catalog, newStubUsedSetStore(), zap.NewNop())
	configs := newStubConfigStore(cfg)
	scheduler := NewScheduler(configs, rotation, nil, messenger, 5*time.Minute, 5*time.Minute, zap.NewNop())
	scheduler.clock = func() time.Time { return now }

	scheduler.pollOnce(context.Background())

	if messenger.messages != 0 {
		t.Fatalf("expected no post on empty catalog, got %d", messenger.messages)
	}
	if _, err := configs.Get(context.Background(), "G1"); err != nil {
		t.Fatalf("config must survive a content failure: %v", err)
	}
}
