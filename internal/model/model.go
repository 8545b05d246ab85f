// Package model adapts LLM backends to a single prompt-in, text-out call.
package model

import (
	"context"
	"fmt"
	"time"

	"quizgen-service/internal/logger"
	"quizgen-service/internal/metrics"
)

// Client invokes the model once with a complete prompt and returns its raw text.
type Client interface {
	Invoke(ctx context.Context, prompt string) (string, error)
}

// Config selects and tunes a provider.
type Config struct {
	Provider    string // openai | gemini | ollama
	APIKey      string
	BaseURL     string
	Name        string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// New builds the configured provider. Providers holding connections also implement io.Closer.
func New(ctx context.Context, cfg Config) (Client, error) {
	switch cfg.Provider {
	case "", "openai":
		return NewOpenAI(cfg)
	case "gemini":
		return NewGemini(ctx, cfg)
	case "ollama":
		return NewOllama(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider %q", cfg.Provider)
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

// Instrumented records latency and outcome of every call.
type Instrumented struct {
	next     Client
	provider string
	metrics  *metrics.Metrics
	log      *logger.Logger
}

func Instrument(next Client, provider string, m *metrics.Metrics, log *logger.Logger) *Instrumented {
	return &Instrumented{next: next, provider: provider, metrics: m, log: log}
}

func (c *Instrumented) Invoke(ctx context.Context, prompt string) (string, error) {
	start := time.Now()
	out, err := c.next.Invoke(ctx, prompt)
	took := time.Since(start)
	c.metrics.ObserveModel(c.provider, took, err)
	if err != nil {
		c.log.Warn("model invocation failed", "provider", c.provider, "took", took.String(), "error", err.Error())
		return "", err
	}
	c.log.Debug("model invocation", "provider", c.provider, "prompt_chars", len(prompt), "output_chars", len(out), "took", took.String())
	return out, nil
}
