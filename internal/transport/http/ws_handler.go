package http

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/gorilla/websocket"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/logger"
)

// WSHandler lets a client answer a quiz over a websocket: the server sends the quiz,
// the client streams answers, then submits and asks for the evaluation.
type WSHandler struct {
	service  *app.QuizService
	log      *logger.Logger
	upgrader websocket.Upgrader
}

func NewWSHandler(service *app.QuizService, log *logger.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		service: service,
		log:     log,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

type inboundMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type answerPayload struct {
	QuestionID string `json:"questionId"`
	Choice     string `json:"choice"`
}

type answerAccepted struct {
	QuestionID string           `json:"questionId"`
	Choice     domain.ChoiceKey `json:"choice"`
	Answered   int              `json:"answered"`
	Total      int              `json:"total"`
}

type submitted struct {
	QuizID   string `json:"quizId"`
	Answered int    `json:"answered"`
	Total    int    `json:"total"`
}

type outboundMessage[T any] struct {
	Type    string `json:"type"`
	Payload T      `json:"payload"`
}

type errorPayload struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}

// ServeWS upgrades HTTP requests to websockets and wires them into the quiz use cases.
func (h *WSHandler) ServeWS(w http.ResponseWriter, r *http.Request) {
	quizID := r.URL.Query().Get("quizId")
	if quizID == "" {
		http.Error(w, "missing quizId", http.StatusBadRequest)
		return
	}
	quiz, err := h.service.GetQuiz(r.Context(), quizID)
	if err != nil {
		http.Error(w, err.Error(), statusFor(err))
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("ws upgrade failed", "error", err.Error())
		return
	}
	defer conn.Close()

	send := make(chan outboundMessage[any], 16)
	writerDone := make(chan struct{})

	// Only this goroutine writes to conn. After a write error it keeps draining so
	// the read loop never blocks on send.
	go func() {
		defer close(writerDone)
		failed := false
		for msg := range send {
			if failed {
				continue
			}
			if err := conn.WriteJSON(msg); err != nil {
				h.log.Warn("ws write error", "quiz_id", quizID, "error", err.Error())
				failed = true
			}
		}
	}()

	sendError := func(err error) {
		send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: err.Error(), Status: statusFor(err)}}
	}

	known := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}
	answers := make(map[string]string, len(quiz.Questions))

	send <- outboundMessage[any]{Type: "quiz", Payload: newQuizResponse(quiz.ForAnswering())}

	for {
		var inbound inboundMessage
		if err := conn.ReadJSON(&inbound); err != nil {
			break
		}
		switch inbound.Type {
		case "answer":
			var payload answerPayload
			if err := json.Unmarshal(inbound.Payload, &payload); err != nil {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "invalid answer payload", Status: http.StatusBadRequest}}
				continue
			}
			choice := domain.ChoiceKey(strings.ToUpper(strings.TrimSpace(payload.Choice)))
			if _, ok := known[payload.QuestionID]; !ok || !choice.Valid() {
				send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unknown question or choice", Status: http.StatusBadRequest}}
				continue
			}
			answers[payload.QuestionID] = string(choice)
			send <- outboundMessage[any]{Type: "answerAccepted", Payload: answerAccepted{
				QuestionID: payload.QuestionID,
				Choice:     choice,
				Answered:   len(answers),
				Total:      len(quiz.Questions),
			}}
		case "submit":
			if err := h.service.SubmitAnswers(r.Context(), quizID, answers); err != nil {
				sendError(err)
				continue
			}
			send <- outboundMessage[any]{Type: "submitted", Payload: submitted{QuizID: quizID, Answered: len(answers), Total: len(quiz.Questions)}}
		case "evaluate":
			eval, err := h.service.Evaluate(r.Context(), quizID)
			if err != nil {
				sendError(err)
				continue
			}
			send <- outboundMessage[any]{Type: "evaluation", Payload: eval}
		default:
			send <- outboundMessage[any]{Type: "error", Payload: errorPayload{Message: "unsupported message type", Status: http.StatusBadRequest}}
		}
	}

	close(send)
	<-writerDone
}

// originChecker accepts requests without an Origin header and, when an allowlist is
// configured, only origins on it.
func originChecker(allowed []string) func(r *http.Request) bool {
	if len(allowed) == 0 {
		return func(r *http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}
