package app_test

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/extract"
	"quizgen-service/internal/infra/memory"
	"quizgen-service/internal/logger"
)

// scriptedModel replays canned responses in order and records every prompt.
type scriptedModel struct {
	mu        sync.Mutex
	responses []string
	err       error
	prompts   []string
}

func (m *scriptedModel) Invoke(_ context.Context, prompt string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prompts = append(m.prompts, prompt)
	if m.err != nil {
		return "", m.err
	}
	if len(m.responses) == 0 {
		return "", fmt.Errorf("no scripted response left")
	}
	out := m.responses[0]
	m.responses = m.responses[1:]
	return out, nil
}

func (m *scriptedModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.prompts)
}

// quizJSON renders n well-formed questions whose correct choices cycle A..D.
func quizJSON(n int) string {
	keys := []string{"A", "B", "C", "D"}
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": "Q%02d", "questionText": "Question %d?", "choices": {"A": "a%d", "B": "b%d", "C": "c%d", "D": "d%d"}, "correctChoice": %q, "explanation": "because %d"}`,
			i, i, i, i, i, i, keys[(i-1)%4], i,
		))
	}
	return `{"questions": [` + strings.Join(items, ", ") + `]}`
}

type recordingArchive struct {
	keys  []string
	types []string
	err   error
}

func (a *recordingArchive) Put(_ context.Context, key string, _ []byte, contentType string) error {
	if a.err != nil {
		return a.err
	}
	a.keys = append(a.keys, key)
	a.types = append(a.types, contentType)
	return nil
}

type recordingEvents struct {
	mu     sync.Mutex
	events []domain.QuizEvent
}

func (p *recordingEvents) Publish(_ context.Context, event domain.QuizEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingEvents) types() []domain.EventType {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.EventType, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type testService struct {
	*app.QuizService
	model   *scriptedModel
	store   *memory.Store
	archive *recordingArchive
	events  *recordingEvents
}

func newTestService(responses ...string) testService {
	model := &scriptedModel{responses: responses}
	store := memory.NewStore()
	archive := &recordingArchive{}
	events := &recordingEvents{}
	log := logger.NewNop()
	svc := app.NewQuizService(app.Deps{
		Generator: app.NewGenerator(model, extract.New(0), log, nil),
		Narrator:  app.NewNarrator(model),
		Store:     store,
		Archive:   archive,
		Events:    events,
		Log:       log,
	})
	return testService{QuizService: svc, model: model, store: store, archive: archive, events: events}
}
