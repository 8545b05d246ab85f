package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Difficulty is the nominal level requested for a quiz.
type Difficulty string

const (
	Beginner     Difficulty = "beginner"
	Intermediate Difficulty = "intermediate"
	Advanced     Difficulty = "advanced"
	Expert       Difficulty = "expert"
)

// Difficulties lists the accepted levels in ascending order.
var Difficulties = []Difficulty{Beginner, Intermediate, Advanced, Expert}

// Valid reports whether d is one of the known levels.
func (d Difficulty) Valid() bool {
	for _, known := range Difficulties {
		if d == known {
			return true
		}
	}
	return false
}

// ChoiceKey labels one of the four options of a question.
type ChoiceKey string

const (
	ChoiceA ChoiceKey = "A"
	ChoiceB ChoiceKey = "B"
	ChoiceC ChoiceKey = "C"
	ChoiceD ChoiceKey = "D"

	// Unanswered marks a question the user skipped.
	Unanswered ChoiceKey = ""
)

// ChoiceKeys is the fixed key set, in display order.
var ChoiceKeys = []ChoiceKey{ChoiceA, ChoiceB, ChoiceC, ChoiceD}

// Valid reports whether k is one of A, B, C, D.
func (k ChoiceKey) Valid() bool {
	switch k {
	case ChoiceA, ChoiceB, ChoiceC, ChoiceD:
		return true
	}
	return false
}

const (
	MinQuestionCount = 1
	MaxQuestionCount = 20
)

// QuizConfig is the generation input. It is never persisted on its own.
type QuizConfig struct {
	Topic         string     `json:"topic" validate:"required"`
	Difficulty    Difficulty `json:"difficulty" validate:"oneof=beginner intermediate advanced expert"`
	QuestionCount int        `json:"questionCount" validate:"min=1,max=20"`
}

var validate = validator.New()

// Validate trims the topic and rejects configs the generator cannot honor.
func (c *QuizConfig) Validate() error {
	c.Topic = strings.TrimSpace(c.Topic)
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// Question is a single multiple-choice item with exactly four options.
type Question struct {
	ID            string               `json:"id"`
	QuestionText  string               `json:"questionText"`
	Choices       map[ChoiceKey]string `json:"choices"`
	CorrectChoice ChoiceKey            `json:"correctChoice"`
	Explanation   string               `json:"explanation,omitempty"`
}

// AnswerMap maps question IDs to the submitted choice. It may be partial.
type AnswerMap map[string]ChoiceKey

// Quiz is created once by the generator. Only UserAnswers and SubmittedAt change
// afterwards, and only through the store.
type Quiz struct {
	ID          string     `json:"id"`
	Topic       string     `json:"topic"`
	Difficulty  Difficulty `json:"difficulty"`
	Questions   []Question `json:"questions"`
	UserAnswers AnswerMap  `json:"userAnswers,omitempty"`
	SubmittedAt *time.Time `json:"submittedAt,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// ForAnswering returns a copy without correct choices, explanations or stored answers.
func (q Quiz) ForAnswering() Quiz {
	out := q
	out.UserAnswers = nil
	out.SubmittedAt = nil
	out.Questions = make([]Question, len(q.Questions))
	for i, question := range q.Questions {
		question.CorrectChoice = Unanswered
		question.Explanation = ""
		out.Questions[i] = question
	}
	return out
}

// QuestionResult compares one submitted answer against the stored correct choice.
type QuestionResult struct {
	QuestionID        string    `json:"questionId"`
	QuestionText      string    `json:"questionText"`
	UserChoice        ChoiceKey `json:"userChoice"`
	UserChoiceText    string    `json:"userChoiceText"`
	CorrectChoice     ChoiceKey `json:"correctChoice"`
	CorrectChoiceText string    `json:"correctChoiceText"`
	IsCorrect         bool      `json:"isCorrect"`
	Explanation       string    `json:"explanation,omitempty"`
}

// Answered reports whether the user picked any choice for the question.
func (r QuestionResult) Answered() bool {
	return r.UserChoice != Unanswered
}

// QuizEvaluation is the scored outcome of one evaluation request.
type QuizEvaluation struct {
	QuizID     string           `json:"quizId"`
	Score      int              `json:"score"`
	Total      int              `json:"total"`
	Percentage int              `json:"percentage"`
	Results    []QuestionResult `json:"results"`
	Feedback   string           `json:"feedback"`
}
