package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics groups the service collectors on a private registry.
type Metrics struct {
	registry *prometheus.Registry

	ModelInvocations  *prometheus.CounterVec
	ModelLatency      *prometheus.HistogramVec
	Generations       *prometheus.CounterVec
	DocumentTruncated prometheus.Counter
	Evaluations       *prometheus.CounterVec
	ScorePercentage   prometheus.Histogram
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,
		ModelInvocations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_model_invocations_total",
				Help: "Model invocations by provider and outcome",
			},
			[]string{"provider", "outcome"},
		),
		ModelLatency: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "quizgen_model_invocation_duration_seconds",
				Help:    "Time spent waiting on the model",
				Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 80},
			},
			[]string{"provider"},
		),
		Generations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_generations_total",
				Help: "Quiz generations by mode and outcome",
			},
			[]string{"mode", "outcome"},
		),
		DocumentTruncated: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "quizgen_document_truncations_total",
				Help: "Uploaded documents cut to the context budget",
			},
		),
		Evaluations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "quizgen_evaluations_total",
				Help: "Quiz evaluations by outcome",
			},
			[]string{"outcome"},
		),
		ScorePercentage: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "quizgen_score_percentage",
				Help:    "Distribution of evaluated score percentages",
				Buckets: prometheus.LinearBuckets(0, 10, 11),
			},
		),
	}
}

// ObserveModel records one model call.
func (m *Metrics) ObserveModel(provider string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.ModelInvocations.WithLabelValues(provider, outcome(err)).Inc()
	m.ModelLatency.WithLabelValues(provider).Observe(took.Seconds())
}

// ObserveGeneration records the result of one generation request. kind is a short
// error class ("ok", "malformed_output", ...).
func (m *Metrics) ObserveGeneration(mode, kind string) {
	if m == nil {
		return
	}
	m.Generations.WithLabelValues(mode, kind).Inc()
}

func (m *Metrics) ObserveTruncation() {
	if m == nil {
		return
	}
	m.DocumentTruncated.Inc()
}

func (m *Metrics) ObserveEvaluation(percentage int, err error) {
	if m == nil {
		return
	}
	m.Evaluations.WithLabelValues(outcome(err)).Inc()
	if err == nil {
		m.ScorePercentage.Observe(float64(percentage))
	}
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
