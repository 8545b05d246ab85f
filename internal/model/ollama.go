package model

import (
	"context"
	"fmt"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
)

// Ollama runs prompts against a local Ollama server through langchaingo.
type Ollama struct {
	llm         llms.Model
	temperature float32
	maxTokens   int
	timeout     time.Duration
}

func NewOllama(cfg Config) (*Ollama, error) {
	name := cfg.Name
	if name == "" {
		name = "llama3.1"
	}
	opts := []ollama.Option{ollama.WithModel(name)}
	if cfg.BaseURL != "" {
		opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama client: %w", err)
	}
	return &Ollama{llm: llm, temperature: cfg.Temperature, maxTokens: cfg.MaxTokens, timeout: cfg.Timeout}, nil
}

func (o *Ollama) Invoke(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := withTimeout(ctx, o.timeout)
	defer cancel()

	var opts []llms.CallOption
	if o.temperature > 0 {
		opts = append(opts, llms.WithTemperature(float64(o.temperature)))
	}
	if o.maxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(o.maxTokens))
	}
	out, err := llms.GenerateFromSinglePrompt(ctx, o.llm, prompt, opts...)
	if err != nil {
		return "", fmt.Errorf("ollama generate: %w", err)
	}
	return out, nil
}
