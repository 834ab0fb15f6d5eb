package domain

import (
	"strings"
	"time"
)

// Term is one catalog entry: a canonical brevity term and its definition.
// Keys are unique case-insensitively; Key preserves the original casing.
type Term struct {
	Key  string `json:"key"`
	Text string `json:"text"`
}

// NormalizeKey folds a term key for case-insensitive comparison.
func NormalizeKey(key string) string {
	return strings.ToLower(strings.TrimSpace(key))
}

// CommunityConfig is the per-community posting configuration.
type CommunityConfig struct {
	CommunityID  string        `json:"communityId"`
	ChannelID    string        `json:"channelId"`
	PostInterval time.Duration `json:"postInterval"`
	LastPostedAt time.Time     `json:"lastPostedAt"`
	Enabled      bool          `json:"enabled"`
}

// PromptKind selects the direction of a quiz question.
type PromptKind int

const (
	// KindTermToDefinition shows the term and asks for its definition.
	KindTermToDefinition PromptKind = iota
	// KindDefinitionToTerm shows the definition and asks for the term.
	KindDefinitionToTerm
)

// QuizMode distinguishes the sequential solo flow from the broadcast timed flow.
type QuizMode int

const (
	ModePrivate QuizMode = iota
	ModePublic
)

// OptionCount is the fixed number of choices per question.
const OptionCount = 4

// Question is a single multiple-choice question. Options holds the display
// text of the four choices in shuffled order; OptionKeys holds the term key
// behind each choice; Correct indexes the right one.
type Question struct {
	Kind       PromptKind          `json:"kind"`
	Prompt     string              `json:"prompt"`
	Options    [OptionCount]string `json:"options"`
	OptionKeys [OptionCount]string `json:"optionKeys"`
	Correct    int                 `json:"correct"`
}

// ScoreEntry is one quiz outcome for a participant.
type ScoreEntry struct {
	Correct    int       `json:"correct"`
	Total      int       `json:"total"`
	RecordedAt time.Time `json:"recordedAt"`
}

// Accuracy returns the fraction of correct answers, 0 for an empty entry.
func (e ScoreEntry) Accuracy() float64 {
	if e.Total == 0 {
		return 0
	}
	return float64(e.Correct) / float64(e.Total)
}

// Standing is one leaderboard row for a single quiz session.
type Standing struct {
	ParticipantID string `json:"participantId"`
	Correct       int    `json:"correct"`
	Total         int    `json:"total"`
}

// BoardRow is one greenie board row: running accuracy over a participant's
// stored history.
type BoardRow struct {
	ParticipantID string    `json:"participantId"`
	Accuracy      float64   `json:"accuracy"`
	Sessions      int       `json:"sessions"`
	LastPlayedAt  time.Time `json:"lastPlayedAt"`
}

// QuestionStat summarizes voting on one question after a session closes.
type QuestionStat struct {
	Voters          int     `json:"voters"`
	CorrectFraction float64 `json:"correctFraction"`
}

// Summary is the final result of a quiz session.
type Summary struct {
	SessionID   string         `json:"sessionId"`
	CommunityID string         `json:"communityId"`
	Questions   []QuestionStat `json:"questions"`
	Standings   []Standing     `json:"standings"`
	Board       []BoardRow     `json:"board"`
	ClosedAt    time.Time      `json:"closedAt"`
}

// Embed is the rich message shape the messaging collaborator understands.
type Embed struct {
	Title    string `json:"title"`
	URL      string `json:"url,omitempty"`
	Body     string `json:"body"`
	ImageURL string `json:"imageUrl,omitempty"`
	Footer   string `json:"footer,omitempty"`
}
