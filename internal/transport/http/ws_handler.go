package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"brevitybot/internal/app"
	"brevitybot/internal/domain"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler exposes running quiz sessions over websockets: subscribers get
// lifecycle events, and votes/answers come back in.
type WSHandler struct {
	quiz     *app.QuizService
	upgrader websocket.Upgrader
	log      *zap.Logger
}

func NewWSHandler(quiz *app.QuizService, log *zap.Logger) *WSHandler {
	return &WSHandler{
		quiz: quiz,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		log: log,
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type votePayload struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

type answerPayload struct {
	Option int `json:"option"`
}

type outboundMessage struct {
	Type    string `json:"type"`
	Payload any    `json:"payload,omitempty"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type ackPayload struct {
	Question int `json:"question"`
	Option   int `json:"option"`
}

// ServeWS attaches a participant to a running session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	userID := r.URL.Query().Get("userId")
	if sessionID == "" || userID == "" {
		http.Error(w, "missing sessionId or userId", http.StatusBadRequest)
		return
	}

	session, ok := h.quiz.Get(sessionID)
	if !ok {
		http.Error(w, "session not found", http.StatusNotFound)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	events, cancel, err := h.quiz.Subscribe(sessionID)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	defer cancel()

	send := make(chan outboundMessage, 16)
	closeSignals := make(chan struct{})
	writerDone := make(chan struct{})
	eventsDone := make(chan struct{})

	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	go func() {
		defer close(eventsDone)
		for {
			select {
			case event, ok := <-events:
				if !ok {
					return
				}
				select {
				case send <- outboundMessage{Type: event.Type, Payload: event.Payload}:
				case <-closeSignals:
					return
				}
			case <-closeSignals:
				return
			}
		}
	}()

	send <- outboundMessage{Type: "joined", Payload: map[string]any{
		"sessionId": sessionID,
		"questions": len(session.Questions),
		"mode":      session.Mode,
	}}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "vote":
			var payload votePayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid vote payload"}}
				continue
			}
			if err := h.quiz.Vote(r.Context(), sessionID, payload.Question, userID, payload.Option); err != nil {
				send <- outboundMessage{Type: h.rejectType(err), Payload: errorPayload{Message: err.Error()}}
				continue
			}
			send <- outboundMessage{Type: "voteAck", Payload: ackPayload{Question: payload.Question, Option: payload.Option}}
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}}
				continue
			}
			// The reveal itself arrives through the event stream.
			if _, _, err := h.quiz.Answer(r.Context(), sessionID, userID, payload.Option); err != nil {
				send <- outboundMessage{Type: h.rejectType(err), Payload: errorPayload{Message: err.Error()}}
			}
		default:
			send <- outboundMessage{Type: "error", Payload: errorPayload{Message: "unsupported message type"}}
		}
	}

	close(closeSignals)
	<-eventsDone
	close(send)
	<-writerDone
}

func (h *WSHandler) rejectType(err error) string {
	if errors.Is(err, domain.ErrSessionClosed) {
		return "rejected"
	}
	return "error"
}
