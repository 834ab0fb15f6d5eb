package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// VoteStore keeps one hash per (session, question): participant -> option.
// HSET is last-write-wins per field, which is exactly the vote semantics, and
// the TTL bounds the lifetime of abandoned sessions.
type VoteStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewVoteStore(client *redis.Client, ttl time.Duration) *VoteStore {
	return &VoteStore{client: client, ttl: ttl}
}

func (s *VoteStore) Record(ctx context.Context, sessionID string, question int, participantID string, option int) error {
	key := s.key(sessionID, question)
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, participantID, option)
	if s.ttl > 0 {
		pipe.Expire(ctx, key, s.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("record vote: %w", err)
	}
	return nil
}

func (s *VoteStore) Tally(ctx context.Context, sessionID string, question int) (map[string]int, error) {
	fields, err := s.client.HGetAll(ctx, s.key(sessionID, question)).Result()
	if err != nil {
		return nil, fmt.Errorf("tally votes: %w", err)
	}
	out := make(map[string]int, len(fields))
	for participant, raw := range fields {
		option, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("parse vote %q for %s: %w", raw, participant, err)
		}
		out[participant] = option
	}
	return out, nil
}

func (s *VoteStore) Purge(ctx context.Context, sessionID string, questions int) error {
	keys := make([]string, 0, questions)
	for i := 0; i < questions; i++ {
		keys = append(keys, s.key(sessionID, i))
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("purge votes: %w", err)
	}
	return nil
}

func (s *VoteStore) key(sessionID string, question int) string {
	return fmt.Sprintf("quiz:%s:q%d:votes", sessionID, question)
}
