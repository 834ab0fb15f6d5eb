package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	"github.com/redis/go-redis/v9"
)

// ScoreHistoryStore keeps each participant's outcome history as a redis list,
// newest first, trimmed to app.HistoryLimit. A set per community indexes the
// participants with any history.
type ScoreHistoryStore struct {
	client *redis.Client
}

func NewScoreHistoryStore(client *redis.Client) *ScoreHistoryStore {
	return &ScoreHistoryStore{client: client}
}

func (s *ScoreHistoryStore) Append(ctx context.Context, communityID, participantID string, entry domain.ScoreEntry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal score entry: %w", err)
	}
	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, s.historyKey(communityID, participantID), data)
	pipe.LTrim(ctx, s.historyKey(communityID, participantID), 0, int64(app.HistoryLimit-1))
	pipe.SAdd(ctx, s.indexKey(communityID), participantID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append score entry: %w", err)
	}
	return nil
}

func (s *ScoreHistoryStore) History(ctx context.Context, communityID, participantID string) ([]domain.ScoreEntry, error) {
	items, err := s.client.LRange(ctx, s.historyKey(communityID, participantID), 0, int64(app.HistoryLimit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("read score history: %w", err)
	}
	out := make([]domain.ScoreEntry, 0, len(items))
	for _, raw := range items {
		var entry domain.ScoreEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal score entry: %w", err)
		}
		out = append(out, entry)
	}
	return out, nil
}

func (s *ScoreHistoryStore) Participants(ctx context.Context, communityID string) ([]string, error) {
	members, err := s.client.SMembers(ctx, s.indexKey(communityID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list scored participants: %w", err)
	}
	return members, nil
}

func (s *ScoreHistoryStore) historyKey(communityID, participantID string) string {
	return fmt.Sprintf("scores:%s:%s", communityID, participantID)
}

func (s *ScoreHistoryStore) indexKey(communityID string) string {
	return "scores:" + communityID + ":participants"
}
