package app

import (
	"context"

	"brevitybot/internal/domain"
)

// CatalogStore persists the active term set plus one backup generation.
type CatalogStore interface {
	// Replace swaps the active set in one step, keeping the previous set
	// as the backup generation.
	Replace(ctx context.Context, terms []domain.Term) error
	All(ctx context.Context) ([]domain.Term, error)
	Backup(ctx context.Context) ([]domain.Term, error)
}

// CommunityConfigStore holds one posting config per community.
type CommunityConfigStore interface {
	Put(ctx context.Context, cfg domain.CommunityConfig) error
	Get(ctx context.Context, communityID string) (domain.CommunityConfig, error)
	List(ctx context.Context) ([]domain.CommunityConfig, error)
	Delete(ctx context.Context, communityID string) error
}

// UsedSetStore tracks which term keys a community has already seen.
type UsedSetStore interface {
	Add(ctx context.Context, communityID, key string) error
	Members(ctx context.Context, communityID string) (map[string]struct{}, error)
	Clear(ctx context.Context, communityID string) error
}

// VoteStore records one vote per (session, question, participant),
// last write wins. Tally is only read after a session closes.
type VoteStore interface {
	Record(ctx context.Context, sessionID string, question int, participantID string, option int) error
	Tally(ctx context.Context, sessionID string, question int) (map[string]int, error)
	Purge(ctx context.Context, sessionID string, questions int) error
}

// ScoreHistoryStore keeps the bounded per-participant outcome history.
type ScoreHistoryStore interface {
	// Append pushes the newest entry to the front and trims the history
	// to the retention limit.
	Append(ctx context.Context, communityID, participantID string, entry domain.ScoreEntry) error
	History(ctx context.Context, communityID, participantID string) ([]domain.ScoreEntry, error)
	Participants(ctx context.Context, communityID string) ([]string, error)
}

// HistoryLimit is the number of score entries retained per participant.
const HistoryLimit = 10

// TermSource is the content-ingestion collaborator.
type TermSource interface {
	FetchTerms(ctx context.Context) ([]domain.Term, error)
}

// ImageSource is the best-effort decorative image collaborator. An empty
// URL with nil error means no image was available.
type ImageSource interface {
	FetchImageURL(ctx context.Context) (string, error)
}

// Messenger is the narrow capability the core needs from the chat platform.
type Messenger interface {
	SendMessage(ctx context.Context, channelID, text string) error
	SendEmbed(ctx context.Context, channelID string, embed domain.Embed) error
	// PresentChoice posts a prompt with selectable options and returns a
	// handle for later edits.
	PresentChoice(ctx context.Context, channelID, prompt string, options []string) (string, error)
}
