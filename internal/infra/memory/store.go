package memory

import (
	"context"
	"sync"
	"time"

	"quizgen-service/internal/domain"
)

// Store is an in-memory implementation of app.QuizStore.
type Store struct {
	mu      sync.RWMutex
	quizzes map[string]domain.Quiz
}

func NewStore() *Store {
	return &Store{
		quizzes: make(map[string]domain.Quiz),
	}
}

func (s *Store) Save(_ context.Context, quiz domain.Quiz) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quizzes[quiz.ID] = clone(quiz)
	return nil
}

func (s *Store) Fetch(_ context.Context, quizID string) (domain.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	return clone(quiz), nil
}

func (s *Store) RecordAnswers(_ context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	quiz, ok := s.quizzes[quizID]
	if !ok {
		return domain.ErrQuizNotFound
	}
	quiz.UserAnswers = cloneAnswers(answers)
	quiz.SubmittedAt = &submittedAt
	s.quizzes[quizID] = quiz
	return nil
}

// clone copies the mutable parts so callers cannot reach into the map.
func clone(q domain.Quiz) domain.Quiz {
	out := q
	out.Questions = make([]domain.Question, len(q.Questions))
	for i, question := range q.Questions {
		choices := make(map[domain.ChoiceKey]string, len(question.Choices))
		for k, v := range question.Choices {
			choices[k] = v
		}
		question.Choices = choices
		out.Questions[i] = question
	}
	out.UserAnswers = cloneAnswers(q.UserAnswers)
	if q.SubmittedAt != nil {
		at := *q.SubmittedAt
		out.SubmittedAt = &at
	}
	return out
}

func cloneAnswers(a domain.AnswerMap) domain.AnswerMap {
	if a == nil {
		return nil
	}
	out := make(domain.AnswerMap, len(a))
	for k, v := range a {
		out[k] = v
	}
	return out
}
