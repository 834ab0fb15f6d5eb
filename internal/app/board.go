package app

import (
	"context"
	"sort"

	"brevitybot/internal/domain"
)

// Board builds the greenie board: each participant's running accuracy over
// their last stored quiz outcomes.
type Board struct {
	scores ScoreHistoryStore
}

func NewBoard(scores ScoreHistoryStore) *Board {
	return &Board{scores: scores}
}

// Append records one quiz outcome for a participant. Stores bound the
// readable history at HistoryLimit entries, newest first.
func (b *Board) Append(ctx context.Context, communityID, participantID string, entry domain.ScoreEntry) error {
	return b.scores.Append(ctx, communityID, participantID, entry)
}

// Rows returns the board ordered by average accuracy descending, ties broken
// by most recent entry first.
func (b *Board) Rows(ctx context.Context, communityID string) ([]domain.BoardRow, error) {
	participants, err := b.scores.Participants(ctx, communityID)
	if err != nil {
		return nil, err
	}

	rows := make([]domain.BoardRow, 0, len(participants))
	for _, id := range participants {
		history, err := b.scores.History(ctx, communityID, id)
		if err != nil {
			return nil, err
		}
		if len(history) == 0 {
			continue
		}
		var sum float64
		for _, entry := range history {
			sum += entry.Accuracy()
		}
		rows = append(rows, domain.BoardRow{
			ParticipantID: id,
			Accuracy:      sum / float64(len(history)),
			Sessions:      len(history),
			LastPlayedAt:  history[0].RecordedAt,
		})
	}

	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Accuracy != rows[j].Accuracy {
			return rows[i].Accuracy > rows[j].Accuracy
		}
		if !rows[i].LastPlayedAt.Equal(rows[j].LastPlayedAt) {
			return rows[i].LastPlayedAt.After(rows[j].LastPlayedAt)
		}
		return rows[i].ParticipantID < rows[j].ParticipantID
	})
	return rows, nil
}
