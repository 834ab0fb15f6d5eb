package redis

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// UsedSetStore keeps the per-community shown-term keys as redis sets.
type UsedSetStore struct {
	client *redis.Client
}

func NewUsedSetStore(client *redis.Client) *UsedSetStore {
	return &UsedSetStore{client: client}
}

func (s *UsedSetStore) Add(ctx context.Context, communityID, key string) error {
	if err := s.client.SAdd(ctx, s.key(communityID), key).Err(); err != nil {
		return fmt.Errorf("mark term used: %w", err)
	}
	return nil
}

func (s *UsedSetStore) Members(ctx context.Context, communityID string) (map[string]struct{}, error) {
	members, err := s.client.SMembers(ctx, s.key(communityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("read used terms: %w", err)
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

func (s *UsedSetStore) Clear(ctx context.Context, communityID string) error {
	if err := s.client.Del(ctx, s.key(communityID)).Err(); err != nil {
		return fmt.Errorf("reset used terms: %w", err)
	}
	return nil
}

func (s *UsedSetStore) key(communityID string) string {
	return "used:" + communityID
}
