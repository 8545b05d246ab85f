package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveModelAndGeneration(t *testing.T) {
	m := New()
	m.ObserveModel("openai", time.Second, nil)
	m.ObserveModel("openai", time.Second, errors.New("boom"))
	m.ObserveGeneration("topic", "ok")
	m.ObserveTruncation()

	if got := testutil.ToFloat64(m.ModelInvocations.WithLabelValues("openai", "error")); got != 1 {
		t.Fatalf("expected one failed invocation, got %v", got)
	}
	if got := testutil.ToFloat64(m.Generations.WithLabelValues("topic", "ok")); got != 1 {
		t.Fatalf("expected one generation, got %v", got)
	}
	if got := testutil.ToFloat64(m.DocumentTruncated); got != 1 {
		t.Fatalf("expected one truncation, got %v", got)
	}
}

func TestHandlerExposesMetrics(t *testing.T) {
	m := New()
	m.ObserveEvaluation(75, nil)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "quizgen_evaluations_total") {
		t.Fatalf("expected evaluation counter in scrape output")
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.ObserveModel("x", 0, nil)
	m.ObserveGeneration("topic", "ok")
	m.ObserveTruncation()
	m.ObserveEvaluation(10, nil)
}
