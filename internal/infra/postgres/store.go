package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizgen-service/internal/domain"
)

// Store keeps quizzes in the quizzes table; questions and answers are JSONB.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Save(ctx context.Context, quiz domain.Quiz) error {
	questions, err := json.Marshal(quiz.Questions)
	if err != nil {
		return fmt.Errorf("marshal questions: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO quizzes (id, topic, difficulty, questions, created_at)
		VALUES ($1, $2, $3, $4::jsonb, $5)
		ON CONFLICT (id) DO UPDATE
		SET topic = EXCLUDED.topic,
		    difficulty = EXCLUDED.difficulty,
		    questions = EXCLUDED.questions`,
		quiz.ID, quiz.Topic, string(quiz.Difficulty), string(questions), quiz.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("save quiz: %w", err)
	}
	return nil
}

func (s *Store) Fetch(ctx context.Context, quizID string) (domain.Quiz, error) {
	var (
		quiz        domain.Quiz
		difficulty  string
		questions   []byte
		answers     []byte
		submittedAt *time.Time
	)
	err := s.pool.QueryRow(ctx, `
		SELECT id, topic, difficulty, questions, user_answers, submitted_at, created_at
		FROM quizzes WHERE id = $1`, quizID,
	).Scan(&quiz.ID, &quiz.Topic, &difficulty, &questions, &answers, &submittedAt, &quiz.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("load quiz: %w", err)
	}

	quiz.Difficulty = domain.Difficulty(difficulty)
	if err := json.Unmarshal(questions, &quiz.Questions); err != nil {
		return domain.Quiz{}, fmt.Errorf("unmarshal questions: %w", err)
	}
	if len(answers) > 0 {
		if err := json.Unmarshal(answers, &quiz.UserAnswers); err != nil {
			return domain.Quiz{}, fmt.Errorf("unmarshal answers: %w", err)
		}
	}
	if submittedAt != nil {
		at := submittedAt.UTC()
		quiz.SubmittedAt = &at
	}
	quiz.CreatedAt = quiz.CreatedAt.UTC()
	return quiz, nil
}

// RecordAnswers only updates existing rows, so a submission never creates a quiz.
func (s *Store) RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error {
	if answers == nil {
		answers = domain.AnswerMap{}
	}
	data, err := json.Marshal(answers)
	if err != nil {
		return fmt.Errorf("marshal answers: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE quizzes SET user_answers = $2::jsonb, submitted_at = $3
		WHERE id = $1`,
		quizID, string(data), submittedAt,
	)
	if err != nil {
		return fmt.Errorf("record answers: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrQuizNotFound
	}
	return nil
}
