package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"

	"quizgen-service/internal/domain"
	"quizgen-service/internal/extract"
	"quizgen-service/internal/llmjson"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
	"quizgen-service/internal/model"
	"quizgen-service/internal/prompt"
)

const (
	modeTopic    = "topic"
	modeDocument = "document"
)

// Generator turns a QuizConfig, optionally grounded on a document, into a Quiz.
// Every call performs at most one model invocation and never retries.
type Generator struct {
	model     model.Client
	extractor *extract.Extractor
	log       *logger.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func NewGenerator(client model.Client, extractor *extract.Extractor, log *logger.Logger, m *metrics.Metrics) *Generator {
	if extractor == nil {
		extractor = extract.New(0)
	}
	return &Generator{
		model:     client,
		extractor: extractor,
		log:       log,
		metrics:   m,
		now:       time.Now,
	}
}

// FromTopic generates a quiz from general knowledge about cfg.Topic.
func (g *Generator) FromTopic(ctx context.Context, cfg domain.QuizConfig) (domain.Quiz, error) {
	if err := cfg.Validate(); err != nil {
		g.metrics.ObserveGeneration(modeTopic, errorKind(err))
		return domain.Quiz{}, err
	}
	quiz, err := g.generate(ctx, modeTopic, cfg, prompt.Topic(cfg))
	g.metrics.ObserveGeneration(modeTopic, errorKind(err))
	return quiz, err
}

// FromDocument generates a quiz grounded only on the text of data. cfg.Topic is kept
// as a label. Extraction failures return before the model is called.
func (g *Generator) FromDocument(ctx context.Context, data []byte, cfg domain.QuizConfig) (domain.Quiz, error) {
	quiz, err := g.fromDocument(ctx, data, cfg)
	g.metrics.ObserveGeneration(modeDocument, errorKind(err))
	return quiz, err
}

func (g *Generator) fromDocument(ctx context.Context, data []byte, cfg domain.QuizConfig) (domain.Quiz, error) {
	if err := cfg.Validate(); err != nil {
		return domain.Quiz{}, err
	}
	doc, err := g.extractor.Extract(data)
	if err != nil {
		return domain.Quiz{}, err
	}
	if doc.Truncated {
		g.metrics.ObserveTruncation()
		g.log.Warn("document truncated to context budget",
			"original_chars", doc.OriginalChars,
			"kept_chars", g.extractor.MaxChars,
		)
	}
	return g.generate(ctx, modeDocument, cfg, prompt.Document(cfg, doc.Text))
}

func (g *Generator) generate(ctx context.Context, mode string, cfg domain.QuizConfig, p string) (domain.Quiz, error) {
	label := mode + " generation"

	raw, err := g.model.Invoke(ctx, p)
	if err != nil {
		return domain.Quiz{}, invocationError(err)
	}
	parsed, err := llmjson.Parse(raw, label)
	if err != nil {
		return domain.Quiz{}, err
	}
	questions, err := llmjson.Questions(parsed, label)
	if err != nil {
		return domain.Quiz{}, err
	}

	switch n := len(questions); {
	case n < cfg.QuestionCount:
		return domain.Quiz{}, &llmjson.OutputError{
			Kind:  domain.ErrUnexpectedResponseShape,
			Label: label,
			Raw:   raw,
			Err:   fmt.Errorf("got %d questions, want %d", n, cfg.QuestionCount),
		}
	case n > cfg.QuestionCount:
		g.log.Warn("model returned extra questions, trimming", "mode", mode, "got", n, "want", cfg.QuestionCount)
		questions = questions[:cfg.QuestionCount]
	}

	// Ids are positional; whatever the model emitted is discarded.
	for i := range questions {
		questions[i].ID = prompt.QuestionID(i + 1)
	}
	g.checkDistribution(mode, questions)

	id, err := uuid.NewV7()
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("mint quiz id: %w", err)
	}
	return domain.Quiz{
		ID:         id.String(),
		Topic:      cfg.Topic,
		Difficulty: cfg.Difficulty,
		Questions:  questions,
		CreatedAt:  g.now().UTC(),
	}, nil
}

// checkDistribution logs batches where one key holds more than half of the correct
// answers. The prompt asks for a uniform spread; a skewed batch is still accepted.
func (g *Generator) checkDistribution(mode string, questions []domain.Question) {
	if len(questions) < len(domain.ChoiceKeys) {
		return
	}
	byKey := lo.GroupBy(questions, func(q domain.Question) domain.ChoiceKey { return q.CorrectChoice })
	for key, group := range byKey {
		if 2*len(group) > len(questions) {
			g.log.Warn("correct choices skewed", "mode", mode, "key", string(key), "count", len(group), "total", len(questions))
		}
	}
}

// invocationError classifies a model failure unless the client already did.
func invocationError(err error) error {
	if errors.Is(err, domain.ErrModelInvocation) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrModelInvocation, err)
}

func errorKind(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, domain.ErrEmptyDocument):
		return "empty_document"
	case errors.Is(err, domain.ErrExtractionFailed):
		return "extraction_failed"
	case errors.Is(err, domain.ErrModelInvocation):
		return "model_invocation"
	case errors.Is(err, domain.ErrMalformedModelOutput):
		return "malformed_output"
	case errors.Is(err, domain.ErrUnexpectedResponseShape):
		return "unexpected_shape"
	default:
		return "error"
	}
}
