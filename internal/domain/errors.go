package domain

import "errors"

var (
	// ErrNoContent is returned when the term catalog is empty.
	ErrNoContent = errors.New("no terms available")
	// ErrInsufficientContent is returned when the catalog holds fewer
	// distinct terms than a single question needs.
	ErrInsufficientContent = errors.New("not enough terms to build a question")
	// ErrQuestionCount is returned when a quiz requests more questions than
	// there are terms to be correct answers.
	ErrQuestionCount = errors.New("question count exceeds available terms")
	// ErrContentFetch wraps ingestion failures; the catalog is left untouched.
	ErrContentFetch = errors.New("term fetch failed")
	// ErrDestinationUnavailable marks a delivery target that no longer exists;
	// the community config is pruned instead of retried.
	ErrDestinationUnavailable = errors.New("delivery destination unavailable")
	// ErrSessionClosed rejects votes arriving after a session closed.
	ErrSessionClosed = errors.New("quiz session closed")
	// ErrSessionNotFound is returned when a session id is unknown.
	ErrSessionNotFound = errors.New("quiz session not found")
	// ErrCommunityNotFound is returned when a community has no config.
	ErrCommunityNotFound = errors.New("community not configured")
	// ErrNotParticipant rejects private-mode answers from anyone but the initiator.
	ErrNotParticipant = errors.New("not a participant of this session")
	// ErrInvalidOption rejects votes outside the A-D range.
	ErrInvalidOption = errors.New("option index out of range")
	// ErrInvalidQuestion rejects votes for a question index the session does not have.
	ErrInvalidQuestion = errors.New("question index out of range")
)
