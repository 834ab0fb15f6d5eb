package redis

import (
	"context"
	"fmt"
	"time"

	"brevitybot/internal/domain"
	"github.com/redis/go-redis/v9"
)

const communityIndexKey = "communities"

// CommunityConfigStore keeps one hash per community plus a set index so
// List does not need KEYS scans.
type CommunityConfigStore struct {
	client *redis.Client
}

func NewCommunityConfigStore(client *redis.Client) *CommunityConfigStore {
	return &CommunityConfigStore{client: client}
}

func (s *CommunityConfigStore) Put(ctx context.Context, cfg domain.CommunityConfig) error {
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, s.key(cfg.CommunityID), map[string]interface{}{
		"channel":      cfg.ChannelID,
		"interval":     cfg.PostInterval.String(),
		"lastPostedAt": cfg.LastPostedAt.Format(time.RFC3339Nano),
		"enabled":      fmt.Sprintf("%t", cfg.Enabled),
	})
	pipe.SAdd(ctx, communityIndexKey, cfg.CommunityID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("put community config: %w", err)
	}
	return nil
}

func (s *CommunityConfigStore) Get(ctx context.Context, communityID string) (domain.CommunityConfig, error) {
	fields, err := s.client.HGetAll(ctx, s.key(communityID)).Result()
	if err != nil {
		return domain.CommunityConfig{}, fmt.Errorf("get community config: %w", err)
	}
	if len(fields) == 0 {
		return domain.CommunityConfig{}, domain.ErrCommunityNotFound
	}
	return parseConfig(communityID, fields)
}

func (s *CommunityConfigStore) List(ctx context.Context) ([]domain.CommunityConfig, error) {
	ids, err := s.client.SMembers(ctx, communityIndexKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list communities: %w", err)
	}
	out := make([]domain.CommunityConfig, 0, len(ids))
	for _, id := range ids {
		cfg, err := s.Get(ctx, id)
		if err == domain.ErrCommunityNotFound {
			// Index entry outlived its hash; drop it.
			_ = s.client.SRem(ctx, communityIndexKey, id).Err()
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, cfg)
	}
	return out, nil
}

func (s *CommunityConfigStore) Delete(ctx context.Context, communityID string) error {
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, s.key(communityID))
	pipe.SRem(ctx, communityIndexKey, communityID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("delete community config: %w", err)
	}
	return nil
}

func (s *CommunityConfigStore) key(communityID string) string {
	return "community:" + communityID
}

func parseConfig(communityID string, fields map[string]string) (domain.CommunityConfig, error) {
	cfg := domain.CommunityConfig{
		CommunityID: communityID,
		ChannelID:   fields["channel"],
		Enabled:     fields["enabled"] == "true",
	}
	if raw := fields["interval"]; raw != "" {
		d, err := time.ParseDuration(raw)
		if err != nil {
			return domain.CommunityConfig{}, fmt.Errorf("parse interval %q: %w", raw, err)
		}
		cfg.PostInterval = d
	}
	if raw := fields["lastPostedAt"]; raw != "" {
		t, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return domain.CommunityConfig{}, fmt.Errorf("parse lastPostedAt %q: %w", raw, err)
		}
		cfg.LastPostedAt = t
	}
	return cfg, nil
}
