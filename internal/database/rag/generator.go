package rag

import (
	"context"
	"fmt"
	"strings"

	"graphbridge/internal/config"
)

// Generator turns a prompt into model output.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// NewGenerator builds the generator selected by cfg.Provider. Callers should
// close the result when it implements io.Closer.
func NewGenerator(ctx context.Context, cfg config.LLMConfig) (Generator, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", config.ProviderOpenAI:
		return NewOpenAIGenerator(cfg.OpenAIKey, cfg.Model, cfg.Temperature)
	case config.ProviderGemini:
		return NewGeminiGenerator(ctx, cfg.GeminiKey, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown LLM provider %q", cfg.Provider)
	}
}

// cleanCypherQuery extracts the query from model output that may be wrapped
// in a markdown fence or surrounded by prose.
func cleanCypherQuery(query string) string {
	query = strings.TrimSpace(query)
	if start := strings.Index(query, "```"); start >= 0 {
		body := query[start+3:]
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		// Drop the fence language tag.
		if nl := strings.IndexByte(body, '\n'); nl >= 0 && !strings.ContainsAny(body[:nl], "()[]") {
			body = body[nl+1:]
		}
		query = body
	}
	return strings.TrimSpace(query)
}
