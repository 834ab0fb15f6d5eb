package app

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"brevitybot/internal/domain"
	"brevitybot/internal/util"
	"go.uber.org/zap"
)

// QuizService creates quiz sessions and routes votes into them.
type QuizService struct {
	catalog       *Catalog
	votes         VoteStore
	board         *Board
	messenger     Messenger
	answerTimeout time.Duration
	clock         func() time.Time
	log           *zap.Logger

	mu       sync.RWMutex
	sessions map[string]*Session

	rndMu sync.Mutex
	rnd   *rand.Rand
}

func NewQuizService(catalog *Catalog, votes VoteStore, board *Board, messenger Messenger, answerTimeout time.Duration, log *zap.Logger) *QuizService {
	return &QuizService{
		catalog:       catalog,
		votes:         votes,
		board:         board,
		messenger:     messenger,
		answerTimeout: answerTimeout,
		clock:         time.Now,
		log:           log,
		sessions:      make(map[string]*Session),
		rnd:           rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetClock is test-only for deterministic timestamps.
func (q *QuizService) SetClock(now func() time.Time) {
	q.clock = now
}

// StartPublic builds a session, announces every question at once, then opens
// voting for the full duration. The expiry timer is the session's only exit.
func (q *QuizService) StartPublic(ctx context.Context, communityID, channelID, initiatorID string, questionCount int, duration time.Duration) (*Session, error) {
	session, err := q.newSession(ctx, communityID, channelID, initiatorID, domain.ModePublic, questionCount, duration)
	if err != nil {
		return nil, err
	}

	// Announce all questions before the clock starts so every participant
	// sees the same window.
	for i, question := range session.Questions {
		prompt := fmt.Sprintf("Q%d. %s", i+1, question.Prompt)
		if _, err := q.messenger.PresentChoice(ctx, channelID, prompt, question.Options[:]); err != nil {
			q.dropSession(session.ID)
			return nil, fmt.Errorf("%w: %v", domain.ErrDestinationUnavailable, err)
		}
	}
	session.announce()

	session.open()
	session.expiry = time.AfterFunc(duration, func() {
		q.finish(context.Background(), session)
	})
	q.log.Info("public quiz started",
		zap.String("session", session.ID),
		zap.String("community", communityID),
		zap.Int("questions", questionCount),
		zap.Duration("duration", duration))
	return session, nil
}

// StartPrivate builds a session for the initiator alone. Questions go out one
// at a time; each answer reveals correctness and advances the cursor, and a
// silent question aborts the whole session.
func (q *QuizService) StartPrivate(ctx context.Context, communityID, channelID, initiatorID string, questionCount int) (*Session, error) {
	session, err := q.newSession(ctx, communityID, channelID, initiatorID, domain.ModePrivate, questionCount, 0)
	if err != nil {
		return nil, err
	}
	session.announce()
	session.open()

	if err := q.presentCurrent(ctx, session); err != nil {
		q.dropSession(session.ID)
		return nil, err
	}
	q.armAnswerTimeout(session)
	q.log.Info("private quiz started",
		zap.String("session", session.ID),
		zap.String("community", communityID),
		zap.String("initiator", initiatorID),
		zap.Int("questions", questionCount))
	return session, nil
}

// Vote records a public-mode vote, overwriting the participant's earlier
// choice for the question. Votes after closure are rejected.
func (q *QuizService) Vote(ctx context.Context, sessionID string, question int, participantID string, option int) error {
	session, ok := q.session(sessionID)
	if !ok {
		return domain.ErrSessionNotFound
	}
	if session.Mode != domain.ModePublic {
		return domain.ErrNotParticipant
	}
	if question < 0 || question >= len(session.Questions) {
		return domain.ErrInvalidQuestion
	}
	if option < 0 || option >= domain.OptionCount {
		return domain.ErrInvalidOption
	}

	// The state read-lock is held across the store write: voters proceed in
	// parallel, but none can slip a write past the closing transition.
	session.stateMu.RLock()
	defer session.stateMu.RUnlock()
	if session.state != stateCollecting {
		q.log.Debug("late vote dropped",
			zap.String("session", sessionID),
			zap.String("participant", participantID),
			zap.Int("question", question))
		return domain.ErrSessionClosed
	}
	return q.votes.Record(ctx, sessionID, question, participantID, option)
}

// Answer handles the private-mode flow: reveal correctness, advance, and
// summarize after the last question.
func (q *QuizService) Answer(ctx context.Context, sessionID, participantID string, option int) (correct bool, done bool, err error) {
	session, ok := q.session(sessionID)
	if !ok {
		return false, false, domain.ErrSessionNotFound
	}
	if session.Mode != domain.ModePrivate {
		return false, false, domain.ErrNotParticipant
	}
	if participantID != session.InitiatorID {
		return false, false, domain.ErrNotParticipant
	}
	if option < 0 || option >= domain.OptionCount {
		return false, false, domain.ErrInvalidOption
	}

	session.stateMu.Lock()
	if session.state != stateCollecting {
		session.stateMu.Unlock()
		return false, false, domain.ErrSessionClosed
	}
	current := session.current
	question := session.Questions[current]
	correct = option == question.Correct
	session.current++
	done = session.current >= len(session.Questions)
	if session.answer != nil {
		session.answer.Stop()
	}
	session.stateMu.Unlock()

	if err := q.votes.Record(ctx, sessionID, current, participantID, option); err != nil {
		return false, false, err
	}
	session.publish(Event{Type: EventReveal, Session: sessionID, Payload: RevealPayload{
		Question: current,
		Correct:  correct,
		Answer:   question.Options[question.Correct],
	}})

	if done {
		q.finish(ctx, session)
		return correct, true, nil
	}
	if err := q.presentCurrent(ctx, session); err != nil {
		return correct, false, err
	}
	q.armAnswerTimeout(session)
	return correct, false, nil
}

// Get returns a running session by id.
func (q *QuizService) Get(sessionID string) (*Session, bool) {
	return q.session(sessionID)
}

// Subscribe returns a channel of session events. The caller must invoke the
// returned cancel function to avoid leaks.
func (q *QuizService) Subscribe(sessionID string) (<-chan Event, func(), error) {
	session, ok := q.session(sessionID)
	if !ok {
		return nil, nil, domain.ErrSessionNotFound
	}
	ch, cancel := session.subscribe()
	return ch, cancel, nil
}

func (q *QuizService) newSession(ctx context.Context, communityID, channelID, initiatorID string, mode domain.QuizMode, questionCount int, duration time.Duration) (*Session, error) {
	questions, err := q.buildQuestions(ctx, questionCount)
	if err != nil {
		return nil, err
	}

	createdAt := q.clock()
	session := &Session{
		ID:          communityID + "-" + initiatorID + "-" + util.NewULID(createdAt),
		CommunityID: communityID,
		ChannelID:   channelID,
		InitiatorID: initiatorID,
		Mode:        mode,
		Questions:   questions,
		Duration:    duration,
		CreatedAt:   createdAt,
		state:       stateBuilding,
		subscribers: make(map[chan Event]struct{}),
	}

	q.mu.Lock()
	q.sessions[session.ID] = session
	q.mu.Unlock()
	return session, nil
}

// buildQuestions samples one correct term per question plus three distinct
// distractors, picks a prompt direction at random, and shuffles the options.
func (q *QuizService) buildQuestions(ctx context.Context, count int) ([]domain.Question, error) {
	if count < 1 {
		return nil, domain.ErrQuestionCount
	}
	terms, err := q.catalog.All(ctx)
	if err != nil {
		return nil, err
	}
	if len(terms) < domain.OptionCount {
		return nil, domain.ErrInsufficientContent
	}
	if count > len(terms) {
		return nil, domain.ErrQuestionCount
	}

	deck := make([]domain.Term, len(terms))
	copy(deck, terms)
	q.shuffleTerms(deck)

	questions := make([]domain.Question, 0, count)
	for i := 0; i < count; i++ {
		// Correct answers come off the front of the shuffled deck, so no
		// two questions share a correct term.
		correct := deck[i]
		distractors := q.sampleDistractors(deck, correct, domain.OptionCount-1)
		questions = append(questions, q.assemble(correct, distractors))
	}
	return questions, nil
}

func (q *QuizService) sampleDistractors(deck []domain.Term, correct domain.Term, n int) []domain.Term {
	pool := make([]domain.Term, 0, len(deck)-1)
	for _, t := range deck {
		if domain.NormalizeKey(t.Key) != domain.NormalizeKey(correct.Key) {
			pool = append(pool, t)
		}
	}
	q.shuffleTerms(pool)
	return pool[:n]
}

func (q *QuizService) assemble(correct domain.Term, distractors []domain.Term) domain.Question {
	kind := domain.KindTermToDefinition
	if q.intn(2) == 1 {
		kind = domain.KindDefinitionToTerm
	}

	choices := append([]domain.Term{correct}, distractors...)
	q.shuffleTerms(choices)

	question := domain.Question{Kind: kind}
	for i, t := range choices {
		question.OptionKeys[i] = t.Key
		if kind == domain.KindTermToDefinition {
			question.Options[i] = t.Text
		} else {
			question.Options[i] = t.Key
		}
		if domain.NormalizeKey(t.Key) == domain.NormalizeKey(correct.Key) {
			question.Correct = i
		}
	}
	if kind == domain.KindTermToDefinition {
		question.Prompt = fmt.Sprintf("Which is the definition of %q?", correct.Key)
	} else {
		question.Prompt = fmt.Sprintf("Which term means: %s", correct.Text)
	}
	return question
}

func (q *QuizService) presentCurrent(ctx context.Context, session *Session) error {
	session.stateMu.RLock()
	current := session.current
	question := session.Questions[current]
	session.stateMu.RUnlock()

	prompt := fmt.Sprintf("Q%d/%d. %s", current+1, len(session.Questions), question.Prompt)
	if _, err := q.messenger.PresentChoice(ctx, session.ChannelID, prompt, question.Options[:]); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrDestinationUnavailable, err)
	}
	session.publish(Event{Type: EventQuestion, Session: session.ID, Payload: QuestionPayload{
		Index:   current,
		Total:   len(session.Questions),
		Prompt:  question.Prompt,
		Options: question.Options,
	}})
	return nil
}

func (q *QuizService) armAnswerTimeout(session *Session) {
	if q.answerTimeout <= 0 {
		return
	}
	session.stateMu.Lock()
	defer session.stateMu.Unlock()
	if session.answer != nil {
		session.answer.Stop()
	}
	asked := session.current
	session.answer = time.AfterFunc(q.answerTimeout, func() {
		session.stateMu.RLock()
		stale := session.current != asked || session.state != stateCollecting
		session.stateMu.RUnlock()
		if stale {
			return
		}
		q.log.Info("private quiz timed out", zap.String("session", session.ID), zap.Int("question", asked))
		q.finish(context.Background(), session)
	})
}

func (q *QuizService) session(id string) (*Session, bool) {
	q.mu.RLock()
	defer q.mu.RUnlock()
	session, ok := q.sessions[id]
	return session, ok
}

func (q *QuizService) dropSession(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.sessions, id)
}

func (q *QuizService) shuffleTerms(terms []domain.Term) {
	q.rndMu.Lock()
	defer q.rndMu.Unlock()
	q.rnd.Shuffle(len(terms), func(i, j int) {
		terms[i], terms[j] = terms[j], terms[i]
	})
}

func (q *QuizService) intn(n int) int {
	q.rndMu.Lock()
	defer q.rndMu.Unlock()
	return q.rnd.Intn(n)
}
