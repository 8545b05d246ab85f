package domain

import "time"

// EventType is also the routing key on the event exchange.
type EventType string

const (
	EventQuizCreated      EventType = "quiz.created"
	EventAnswersSubmitted EventType = "quiz.answers_submitted"
	EventQuizEvaluated    EventType = "quiz.evaluated"
)

// QuizEvent notifies other services of a quiz lifecycle change.
type QuizEvent struct {
	Type       EventType      `json:"type"`
	QuizID     string         `json:"quizId"`
	OccurredAt time.Time      `json:"occurredAt"`
	Data       map[string]any `json:"data,omitempty"`
}
