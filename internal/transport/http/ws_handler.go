package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"assessment-service/internal/app"
	"assessment-service/internal/domain"
	"assessment-service/internal/lifecycle"
	"assessment-service/internal/logging"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// WSHandler runs one attempt per websocket connection. The server owns the
// countdown and pushes a tick every interval until the attempt finishes.
type WSHandler struct {
	service  *app.AttemptService
	upgrader websocket.Upgrader
	interval time.Duration
	log      *zap.Logger
}

func NewWSHandler(service *app.AttemptService, logger *zap.Logger) *WSHandler {
	return &WSHandler{
		service: service,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		interval: time.Second,
		log:      logging.OrNop(logger),
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionCode string `json:"questionCode"`
	Response     string `json:"response"`
}

type navigatePayload struct {
	Index int `json:"index"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
}

type tickPayload struct {
	RemainingSeconds int `json:"remainingSeconds"`
}

// startedPayload carries what a student needs to render the attempt.
// Answer keys never leave the server.
type startedPayload struct {
	Session   lifecycle.View   `json:"session"`
	Title     string           `json:"title"`
	Questions []questionPrompt `json:"questions"`
}

type questionPrompt struct {
	Code    string              `json:"code"`
	Kind    domain.QuestionKind `json:"kind"`
	Prompt  string              `json:"prompt"`
	Points  int                 `json:"points"`
	Options []optionPrompt      `json:"options,omitempty"`
}

type optionPrompt struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ServeWS upgrades HTTP requests to websockets and drives an attempt session.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	studentID := r.URL.Query().Get("studentId")
	if quizID == "" || studentID == "" {
		http.Error(w, "missing quizId or studentId", http.StatusBadRequest)
		return
	}
	preview, _ := strconv.ParseBool(r.URL.Query().Get("preview"))

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	session, err := h.service.Start(ctx, quizID, studentID, preview)
	if err != nil {
		_ = conn.WriteJSON(outboundMessage[errorPayload]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return
	}
	sessionID := session.ID()
	defer h.service.Abandon(sessionID)

	send := make(chan outboundMessage[any], 16)
	closeSignals := make(chan struct{})
	finished := make(chan struct{})
	writerDone := make(chan struct{})
	tickerDone := make(chan struct{})

	// single writer keeps websocket writes serialized
	go func() {
		defer close(writerDone)
		for msg := range send {
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Debug("ws write error", zap.Error(err))
				return
			}
		}
	}()

	emit := func(msg outboundMessage[any]) {
		select {
		case send <- msg:
		case <-closeSignals:
		}
	}

	send <- outboundMessage[any]{Type: "started", Payload: newStartedPayload(session)}

	go func() {
		defer close(tickerDone)
		ticker := time.NewTicker(h.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				view, attempt, err := h.service.Tick(context.Background(), sessionID)
				if err != nil {
					if !errors.Is(err, domain.ErrSessionNotFound) {
						h.log.Error("countdown tick failed", zap.String("session", sessionID), zap.Error(err))
						emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
					}
					return
				}
				if attempt != nil {
					emit(outboundMessage[any]{Type: "finished", Payload: *attempt})
					close(finished)
					return
				}
				emit(outboundMessage[any]{Type: "tick", Payload: tickPayload{RemainingSeconds: view.RemainingSeconds}})
			case <-closeSignals:
				return
			}
		}
	}()

	reads := make(chan inboundMessage)
	go func() {
		defer close(reads)
		for {
			var inbound inboundMessage
			if err := conn.ReadJSON(&inbound); err != nil {
				return
			}
			select {
			case reads <- inbound:
			case <-closeSignals:
				return
			}
		}
	}()

loop:
	for {
		select {
		case <-finished:
			break loop
		case inbound, ok := <-reads:
			if !ok {
				break loop
			}
			if done := h.dispatch(ctx, sessionID, inbound, emit); done {
				break loop
			}
		}
	}

	close(closeSignals)
	<-tickerDone
	close(send)
	<-writerDone
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
}

// dispatch handles one client message and reports whether the attempt finished.
func (h *WSHandler) dispatch(ctx context.Context, sessionID string, inbound inboundMessage, emit func(outboundMessage[any])) bool {
	var (
		view lifecycle.View
		err  error
	)
	switch inbound.Type {
	case "answer":
		var payload answerPayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload"}})
			return false
		}
		view, err = h.service.Answer(sessionID, payload.QuestionCode, payload.Response)
	case "navigate":
		var payload navigatePayload
		if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid navigate payload"}})
			return false
		}
		view, err = h.service.Navigate(sessionID, payload.Index)
	case "finish":
		view, err = h.service.RequestFinish(sessionID)
	case "cancel":
		view, err = h.service.CancelFinish(sessionID)
	case "confirm":
		attempt, err := h.service.Confirm(ctx, sessionID)
		if err != nil {
			emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
			return false
		}
		emit(outboundMessage[any]{Type: "finished", Payload: attempt})
		return true
	default:
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type"}})
		return false
	}
	if err != nil {
		emit(outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error()}})
		return false
	}
	emit(outboundMessage[any]{Type: "state", Payload: view})
	return false
}

func newStartedPayload(session *lifecycle.Session) startedPayload {
	quiz := session.Quiz()
	prompts := make([]questionPrompt, 0, len(quiz.Items))
	for _, q := range session.Questions() {
		item, _ := quiz.Item(q.Code)
		prompt := questionPrompt{Code: q.Code, Kind: q.Kind, Prompt: q.Prompt, Points: item.Points}
		if alts, ok := q.Key.(domain.Alternatives); ok {
			for _, opt := range alts.Options {
				prompt.Options = append(prompt.Options, optionPrompt{ID: opt.ID, Text: opt.Text})
			}
		}
		prompts = append(prompts, prompt)
	}
	return startedPayload{Session: session.Snapshot(), Title: quiz.Title, Questions: prompts}
}
