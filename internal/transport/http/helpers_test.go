package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"quizgen-service/internal/app"
	"quizgen-service/internal/extract"
	"quizgen-service/internal/infra/memory"
	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// funcModel answers generation prompts with quizJSON(20) unless overridden,
// and feedback prompts with a fixed sentence.
type funcModel func(prompt string) (string, error)

func (f funcModel) Invoke(_ context.Context, prompt string) (string, error) { return f(prompt) }

func defaultModel(prompt string) (string, error) {
	if strings.Contains(prompt, "scored") {
		return "  Solid effort. Review question two.  ", nil
	}
	return quizJSON(20), nil
}

func quizJSON(n int) string {
	keys := []string{"A", "B", "C", "D"}
	items := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		items = append(items, fmt.Sprintf(
			`{"id": "Q%02d", "questionText": "Question %d?", "choices": {"A": "a%d", "B": "b%d", "C": "c%d", "D": "d%d"}, "correctChoice": %q}`,
			i, i, i, i, i, i, keys[(i-1)%4],
		))
	}
	return `{"questions": [` + strings.Join(items, ", ") + `]}`
}

type testEnv struct {
	router  *gin.Engine
	store   *memory.Store
	service *app.QuizService
}

func newTestEnv(t *testing.T, model funcModel, origins []string, maxUpload int) testEnv {
	t.Helper()
	if model == nil {
		model = defaultModel
	}
	log := logger.NewNop()
	m := metrics.New()
	store := memory.NewStore()
	service := app.NewQuizService(app.Deps{
		Generator: app.NewGenerator(model, extract.New(0), log, m),
		Narrator:  app.NewNarrator(model),
		Store:     store,
		Log:       log,
		Metrics:   m,
	})
	router := NewRouter(RouterConfig{
		Service:        service,
		Metrics:        m,
		Log:            log,
		AllowedOrigins: origins,
		MaxUploadBytes: maxUpload,
	})
	return testEnv{router: router, store: store, service: service}
}

func (e testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
