package postgres

import (
	"context"
	"fmt"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	"github.com/jackc/pgx/v4/pgxpool"
)

// ScoreHistoryStore keeps the full score archive in postgres; reads surface
// only the bounded window the board ranks on.
type ScoreHistoryStore struct {
	pool *pgxpool.Pool
}

func NewScoreHistoryStore(pool *pgxpool.Pool) *ScoreHistoryStore {
	return &ScoreHistoryStore{pool: pool}
}

func (s *ScoreHistoryStore) Append(ctx context.Context, communityID, participantID string, entry domain.ScoreEntry) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO score_entries (community_id, participant_id, correct, total, recorded_at)
		VALUES ($1, $2, $3, $4, $5)`,
		communityID, participantID, entry.Correct, entry.Total, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("append score for %s: %w", participantID, err)
	}
	return nil
}

func (s *ScoreHistoryStore) History(ctx context.Context, communityID, participantID string) ([]domain.ScoreEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT correct, total, recorded_at FROM score_entries
		WHERE community_id=$1 AND participant_id=$2
		ORDER BY recorded_at DESC, id DESC
		LIMIT $3`, communityID, participantID, app.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("history for %s: %w", participantID, err)
	}
	defer rows.Close()

	var entries []domain.ScoreEntry
	for rows.Next() {
		var entry domain.ScoreEntry
		if err := rows.Scan(&entry.Correct, &entry.Total, &entry.RecordedAt); err != nil {
			return nil, fmt.Errorf("scan score entry: %w", err)
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func (s *ScoreHistoryStore) Participants(ctx context.Context, communityID string) ([]string, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT DISTINCT participant_id FROM score_entries
		WHERE community_id=$1 ORDER BY participant_id`, communityID)
	if err != nil {
		return nil, fmt.Errorf("participants for %s: %w", communityID, err)
	}
	defer rows.Close()

	var participants []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan participant: %w", err)
		}
		participants = append(participants, id)
	}
	return participants, rows.Err()
}
