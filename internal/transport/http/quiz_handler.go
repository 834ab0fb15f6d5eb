package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	"go.uber.org/zap"
)

// QuizHandler is the command surface: start quizzes, trigger a manual term
// post, read the greenie board.
type QuizHandler struct {
	quiz      *app.QuizService
	scheduler *app.Scheduler
	board     *app.Board
	configs   app.CommunityConfigStore

	defaultQuestions int
	defaultDuration  time.Duration
	log              *zap.Logger
}

func NewQuizHandler(quiz *app.QuizService, scheduler *app.Scheduler, board *app.Board, configs app.CommunityConfigStore, defaultQuestions int, defaultDuration time.Duration, log *zap.Logger) *QuizHandler {
	return &QuizHandler{
		quiz:             quiz,
		scheduler:        scheduler,
		board:            board,
		configs:          configs,
		defaultQuestions: defaultQuestions,
		defaultDuration:  defaultDuration,
		log:              log,
	}
}

type startQuizRequest struct {
	CommunityID     string `json:"communityId"`
	ChannelID       string `json:"channelId"`
	InitiatorID     string `json:"initiatorId"`
	Mode            string `json:"mode"`
	Questions       int    `json:"questions"`
	DurationSeconds int    `json:"durationSeconds"`
}

type startQuizResponse struct {
	SessionID string `json:"sessionId"`
	Questions int    `json:"questions"`
	Mode      string `json:"mode"`
}

// StartQuiz handles POST /quiz.
func (h *QuizHandler) StartQuiz(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req startQuizRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.CommunityID == "" || req.ChannelID == "" || req.InitiatorID == "" {
		http.Error(w, "missing communityId, channelId, or initiatorId", http.StatusBadRequest)
		return
	}
	if req.Questions <= 0 {
		req.Questions = h.defaultQuestions
	}
	duration := time.Duration(req.DurationSeconds) * time.Second
	if duration <= 0 {
		duration = h.defaultDuration
	}

	var (
		session *app.Session
		err     error
	)
	switch req.Mode {
	case "private":
		session, err = h.quiz.StartPrivate(r.Context(), req.CommunityID, req.ChannelID, req.InitiatorID, req.Questions)
	case "", "public":
		session, err = h.quiz.StartPublic(r.Context(), req.CommunityID, req.ChannelID, req.InitiatorID, req.Questions, duration)
	default:
		http.Error(w, "mode must be public or private", http.StatusBadRequest)
		return
	}
	if err != nil {
		h.writeError(w, err)
		return
	}

	mode := "public"
	if session.Mode == domain.ModePrivate {
		mode = "private"
	}
	writeJSON(w, http.StatusCreated, startQuizResponse{
		SessionID: session.ID,
		Questions: len(session.Questions),
		Mode:      mode,
	})
}

// PostTerm handles POST /post: an immediate term post for one community.
func (h *QuizHandler) PostTerm(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		CommunityID string `json:"communityId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.CommunityID == "" {
		http.Error(w, "missing communityId", http.StatusBadRequest)
		return
	}

	cfg, err := h.configs.Get(r.Context(), req.CommunityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.scheduler.PostNow(r.Context(), cfg); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Board handles GET /board?communityId=...
func (h *QuizHandler) Board(w http.ResponseWriter, r *http.Request) {
	communityID := r.URL.Query().Get("communityId")
	if communityID == "" {
		http.Error(w, "missing communityId", http.StatusBadRequest)
		return
	}
	rows, err := h.board.Rows(r.Context(), communityID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

// writeError maps domain errors to status codes without leaking internals.
func (h *QuizHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrNoContent),
		errors.Is(err, domain.ErrInsufficientContent),
		errors.Is(err, domain.ErrQuestionCount):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
	case errors.Is(err, domain.ErrCommunityNotFound),
		errors.Is(err, domain.ErrSessionNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, domain.ErrDestinationUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
