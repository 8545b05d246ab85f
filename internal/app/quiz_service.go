package app

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"time"

	"quizgen-service/internal/domain"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

// QuizStore persists quizzes and their submitted answers (memory, Redis, Postgres, Mongo).
type QuizStore interface {
	Save(ctx context.Context, quiz domain.Quiz) error
	// Fetch returns domain.ErrQuizNotFound for unknown ids.
	Fetch(ctx context.Context, quizID string) (domain.Quiz, error)
	// RecordAnswers replaces the stored answers. It never creates a quiz and returns
	// domain.ErrQuizNotFound when quizID does not exist.
	RecordAnswers(ctx context.Context, quizID string, answers domain.AnswerMap, submittedAt time.Time) error
}

// DocumentArchive keeps the original bytes of uploaded documents.
type DocumentArchive interface {
	Put(ctx context.Context, key string, data []byte, contentType string) error
}

// EventPublisher announces quiz lifecycle changes.
type EventPublisher interface {
	Publish(ctx context.Context, event domain.QuizEvent) error
}

// Deps bundles the collaborators of QuizService. Archive and Events are optional.
type Deps struct {
	Generator *Generator
	Narrator  *Narrator
	Store     QuizStore
	Archive   DocumentArchive
	Events    EventPublisher
	Log       *logger.Logger
	Metrics   *metrics.Metrics
}

// QuizService contains the quiz use cases: create, upload, submit, fetch and evaluate.
type QuizService struct {
	generator *Generator
	narrator  *Narrator
	store     QuizStore
	archive   DocumentArchive
	events    EventPublisher
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewQuizService(deps Deps) *QuizService {
	log := deps.Log
	if log == nil {
		log = logger.NewNop()
	}
	return &QuizService{
		generator: deps.Generator,
		narrator:  deps.Narrator,
		store:     deps.Store,
		archive:   deps.Archive,
		events:    deps.Events,
		log:       log,
		metrics:   deps.Metrics,
		now:       time.Now,
	}
}

// CreateQuiz generates a topic quiz and stores it.
func (s *QuizService) CreateQuiz(ctx context.Context, cfg domain.QuizConfig) (domain.Quiz, error) {
	quiz, err := s.generator.FromTopic(ctx, cfg)
	if err != nil {
		return domain.Quiz{}, err
	}
	if err := s.store.Save(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "mode", modeTopic, "questions", len(quiz.Questions))
	s.publish(ctx, domain.EventQuizCreated, quiz.ID, map[string]any{
		"mode":          modeTopic,
		"topic":         quiz.Topic,
		"difficulty":    quiz.Difficulty,
		"questionCount": len(quiz.Questions),
	})
	return quiz, nil
}

// UploadQuiz generates a quiz from a document, archives the original and stores the quiz.
// The archive write happens first so a stored quiz always has its source document.
func (s *QuizService) UploadQuiz(ctx context.Context, data []byte, cfg domain.QuizConfig) (domain.Quiz, error) {
	quiz, err := s.generator.FromDocument(ctx, data, cfg)
	if err != nil {
		return domain.Quiz{}, err
	}
	key, contentType := ArchiveKey(quiz.ID, data)
	if s.archive != nil {
		if err := s.archive.Put(ctx, key, data, contentType); err != nil {
			return domain.Quiz{}, fmt.Errorf("archive document: %w", err)
		}
	}
	if err := s.store.Save(ctx, quiz); err != nil {
		return domain.Quiz{}, fmt.Errorf("save quiz: %w", err)
	}
	s.log.Info("quiz created", "quiz_id", quiz.ID, "mode", modeDocument, "questions", len(quiz.Questions), "document_bytes", len(data))
	s.publish(ctx, domain.EventQuizCreated, quiz.ID, map[string]any{
		"mode":          modeDocument,
		"topic":         quiz.Topic,
		"difficulty":    quiz.Difficulty,
		"questionCount": len(quiz.Questions),
		"document":      key,
	})
	return quiz, nil
}

// SubmitAnswers validates and records the answer map of a quiz. Keys must be question
// ids of the quiz and values one of A-D. An empty map is a valid (blank) submission.
func (s *QuizService) SubmitAnswers(ctx context.Context, quizID string, answers map[string]string) error {
	quizID = strings.TrimSpace(quizID)
	if quizID == "" {
		return fmt.Errorf("%w: quizId is required", domain.ErrInvalidInput)
	}
	quiz, err := s.store.Fetch(ctx, quizID)
	if err != nil {
		return err
	}
	known := make(map[string]struct{}, len(quiz.Questions))
	for _, q := range quiz.Questions {
		known[q.ID] = struct{}{}
	}

	normalized := make(domain.AnswerMap, len(answers))
	for questionID, raw := range answers {
		if _, ok := known[questionID]; !ok {
			return fmt.Errorf("%w: unknown question %q", domain.ErrInvalidInput, questionID)
		}
		choice := domain.ChoiceKey(strings.ToUpper(strings.TrimSpace(raw)))
		if !choice.Valid() {
			return fmt.Errorf("%w: choice for %s must be one of A, B, C, D", domain.ErrInvalidInput, questionID)
		}
		normalized[questionID] = choice
	}

	if err := s.store.RecordAnswers(ctx, quizID, normalized, s.now().UTC()); err != nil {
		return err
	}
	s.log.Info("answers submitted", "quiz_id", quizID, "answered", len(normalized), "total", len(quiz.Questions))
	s.publish(ctx, domain.EventAnswersSubmitted, quizID, map[string]any{
		"answered": len(normalized),
		"total":    len(quiz.Questions),
	})
	return nil
}

func (s *QuizService) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Quiz{}, fmt.Errorf("%w: quizId is required", domain.ErrInvalidInput)
	}
	return s.store.Fetch(ctx, quizID)
}

// Evaluate scores the stored answers and attaches model-written feedback.
// It fails with domain.ErrNoAnswers until a submission with at least one answer
// is stored; the model is not called in that case.
func (s *QuizService) Evaluate(ctx context.Context, quizID string) (domain.QuizEvaluation, error) {
	eval, err := s.evaluate(ctx, quizID)
	s.metrics.ObserveEvaluation(eval.Percentage, err)
	return eval, err
}

func (s *QuizService) evaluate(ctx context.Context, quizID string) (domain.QuizEvaluation, error) {
	quiz, err := s.GetQuiz(ctx, quizID)
	if err != nil {
		return domain.QuizEvaluation{}, err
	}
	if len(quiz.UserAnswers) == 0 {
		return domain.QuizEvaluation{}, domain.ErrNoAnswers
	}

	eval := Score(quiz.ID, quiz.Questions, quiz.UserAnswers)
	feedback, err := s.narrator.Narrate(ctx, quiz.Topic, eval)
	if err != nil {
		return domain.QuizEvaluation{}, err
	}
	eval.Feedback = feedback

	s.log.Info("quiz evaluated", "quiz_id", quiz.ID, "score", eval.Score, "total", eval.Total, "percentage", eval.Percentage)
	s.publish(ctx, domain.EventQuizEvaluated, quiz.ID, map[string]any{
		"score":      eval.Score,
		"total":      eval.Total,
		"percentage": eval.Percentage,
	})
	return eval, nil
}

// publish is best effort; a broker outage must not fail the request.
func (s *QuizService) publish(ctx context.Context, typ domain.EventType, quizID string, data map[string]any) {
	if s.events == nil {
		return
	}
	event := domain.QuizEvent{Type: typ, QuizID: quizID, OccurredAt: s.now().UTC(), Data: data}
	if err := s.events.Publish(ctx, event); err != nil {
		s.log.Warn("publish event failed", "type", string(typ), "quiz_id", quizID, "error", err.Error())
	}
}

// ArchiveKey names the stored copy of an uploaded document.
func ArchiveKey(quizID string, data []byte) (key, contentType string) {
	if bytes.HasPrefix(data, []byte("%PDF-")) {
		return "uploads/" + quizID + ".pdf", "application/pdf"
	}
	return "uploads/" + quizID + ".txt", "text/plain; charset=utf-8"
}
