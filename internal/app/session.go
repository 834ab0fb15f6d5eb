package app

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

type sessionState int

const (
	stateBuilding sessionState = iota
	stateAnnounced
	stateCollecting
	stateClosed
	stateSummarized
)

// Event types published to session subscribers.
const (
	EventAnnounced = "announced"
	EventQuestion  = "question"
	EventReveal    = "reveal"
	EventClosed    = "closed"
	EventSummary   = "summary"
)

// Event is one session lifecycle notification.
type Event struct {
	Type    string `json:"type"`
	Session string `json:"session"`
	Payload any    `json:"payload,omitempty"`
}

// QuestionPayload carries a question to participants without its answer.
type QuestionPayload struct {
	Index   int                        `json:"index"`
	Total   int                        `json:"total"`
	Prompt  string                     `json:"prompt"`
	Options [domain.OptionCount]string `json:"options"`
}

// RevealPayload carries the private-mode per-question result.
type RevealPayload struct {
	Question int    `json:"question"`
	Correct  bool   `json:"correct"`
	Answer   string `json:"answer"`
}

// Session is one running quiz. It is never rescheduled; a new invocation
// makes a new session with a new id.
type Session struct {
	ID          string
	CommunityID string
	ChannelID   string
	InitiatorID string
	Mode        domain.QuizMode
	Questions   []domain.Question
	Duration    time.Duration
	CreatedAt   time.Time

	stateMu sync.RWMutex
	state   sessionState
	current int
	expiry  *time.Timer
	answer  *time.Timer

	subMu       sync.Mutex
	subscribers map[chan Event]struct{}
}

func (s *Session) announce() {
	s.stateMu.Lock()
	s.state = stateAnnounced
	s.stateMu.Unlock()

	views := make([]QuestionPayload, len(s.Questions))
	for i, q := range s.Questions {
		views[i] = QuestionPayload{Index: i, Total: len(s.Questions), Prompt: q.Prompt, Options: q.Options}
	}
	s.publish(Event{Type: EventAnnounced, Session: s.ID, Payload: views})
}

func (s *Session) open() {
	s.stateMu.Lock()
	s.state = stateCollecting
	s.stateMu.Unlock()
}

// close moves the session to Closed exactly once. The write lock waits out
// any in-flight vote writes, so nothing lands in the store after closure.
func (s *Session) close() bool {
	s.stateMu.Lock()
	defer s.stateMu.Unlock()
	if s.state >= stateClosed {
		return false
	}
	s.state = stateClosed
	if s.expiry != nil {
		s.expiry.Stop()
	}
	if s.answer != nil {
		s.answer.Stop()
	}
	return true
}

func (s *Session) markSummarized() {
	s.stateMu.Lock()
	s.state = stateSummarized
	s.stateMu.Unlock()
}

func (s *Session) subscribe() (<-chan Event, func()) {
	ch := make(chan Event, 16)
	s.subMu.Lock()
	s.subscribers[ch] = struct{}{}
	s.subMu.Unlock()

	cancel := func() {
		s.subMu.Lock()
		if _, ok := s.subscribers[ch]; ok {
			delete(s.subscribers, ch)
			close(ch)
		}
		s.subMu.Unlock()
	}
	return ch, cancel
}

func (s *Session) publish(event Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for ch := range s.subscribers {
		select {
		case ch <- event:
		default:
			// Drop the oldest event rather than block the session on a
			// slow subscriber.
			select {
			case <-ch:
			default:
			}
			ch <- event
		}
	}
}

// finish closes the session, tallies every question, persists outcomes, and
// publishes the summary. Safe to call from the expiry timer, the answer
// timeout, and the last private answer; only the first caller does the work.
func (q *QuizService) finish(ctx context.Context, session *Session) {
	if !session.close() {
		return
	}
	session.publish(Event{Type: EventClosed, Session: session.ID})

	summary, err := q.summarize(ctx, session)
	if err != nil {
		q.log.Error("summarize quiz", zap.String("session", session.ID), zap.Error(err))
		q.dropSession(session.ID)
		return
	}
	session.markSummarized()
	session.publish(Event{Type: EventSummary, Session: session.ID, Payload: summary})

	if err := q.messenger.SendEmbed(ctx, session.ChannelID, summaryEmbed(summary)); err != nil {
		q.log.Warn("post quiz summary", zap.String("session", session.ID), zap.Error(err))
	}
	if err := q.votes.Purge(ctx, session.ID, len(session.Questions)); err != nil {
		q.log.Warn("purge quiz votes", zap.String("session", session.ID), zap.Error(err))
	}
	q.dropSession(session.ID)
	q.log.Info("quiz summarized",
		zap.String("session", session.ID),
		zap.Int("participants", len(summary.Standings)))
}

// summarize runs after closure, so the tallies have no concurrent writers.
func (q *QuizService) summarize(ctx context.Context, session *Session) (domain.Summary, error) {
	total := len(session.Questions)
	stats := make([]domain.QuestionStat, total)
	correctByUser := make(map[string]int)
	voted := make(map[string]struct{})

	for i, question := range session.Questions {
		tally, err := q.votes.Tally(ctx, session.ID, i)
		if err != nil {
			return domain.Summary{}, fmt.Errorf("tally question %d: %w", i, err)
		}
		right := 0
		for participant, option := range tally {
			voted[participant] = struct{}{}
			if option == question.Correct {
				right++
				correctByUser[participant]++
			}
		}
		stat := domain.QuestionStat{Voters: len(tally)}
		if stat.Voters > 0 {
			stat.CorrectFraction = float64(right) / float64(stat.Voters)
		}
		stats[i] = stat
	}

	closedAt := q.clock()
	standings := make([]domain.Standing, 0, len(voted))
	for participant := range voted {
		standings = append(standings, domain.Standing{
			ParticipantID: participant,
			Correct:       correctByUser[participant],
			Total:         total,
		})
	}
	sort.Slice(standings, func(i, j int) bool {
		if standings[i].Correct != standings[j].Correct {
			return standings[i].Correct > standings[j].Correct
		}
		return standings[i].ParticipantID < standings[j].ParticipantID
	})

	for _, standing := range standings {
		entry := domain.ScoreEntry{Correct: standing.Correct, Total: standing.Total, RecordedAt: closedAt}
		if err := q.board.Append(ctx, session.CommunityID, standing.ParticipantID, entry); err != nil {
			return domain.Summary{}, fmt.Errorf("append score for %s: %w", standing.ParticipantID, err)
		}
	}

	board, err := q.board.Rows(ctx, session.CommunityID)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("board rows: %w", err)
	}

	return domain.Summary{
		SessionID:   session.ID,
		CommunityID: session.CommunityID,
		Questions:   stats,
		Standings:   standings,
		Board:       board,
		ClosedAt:    closedAt,
	}, nil
}

func summaryEmbed(summary domain.Summary) domain.Embed {
	var b strings.Builder
	if len(summary.Standings) == 0 {
		b.WriteString("No votes were cast.")
	} else {
		b.WriteString("Results:\n")
		for i, standing := range summary.Standings {
			fmt.Fprintf(&b, "%d. %s — %d/%d\n", i+1, standing.ParticipantID, standing.Correct, standing.Total)
		}
	}
	if len(summary.Board) > 0 {
		b.WriteString("\nGreenie Board:\n")
		for _, row := range summary.Board {
			fmt.Fprintf(&b, "%s — %.0f%% over %d quizzes\n", row.ParticipantID, row.Accuracy*100, row.Sessions)
		}
	}
	return domain.Embed{Title: "Quiz complete", Body: b.String()}
}
