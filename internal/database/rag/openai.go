package rag

import (
	"context"
	"errors"
	"fmt"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// DefaultOpenAIModel is used when no model is configured.
const DefaultOpenAIModel = "gpt-4"

// OpenAIGenerator generates text with an OpenAI chat model through langchaingo.
type OpenAIGenerator struct {
	llm         llms.Model
	temperature float64
}

// NewOpenAIGenerator creates a generator for the given key and model.
func NewOpenAIGenerator(apiKey, model string, temperature float64) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key is required")
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	return NewOpenAIGeneratorFromModel(llm, temperature), nil
}

// NewOpenAIGeneratorFromModel wraps an existing langchaingo model.
func NewOpenAIGeneratorFromModel(llm llms.Model, temperature float64) *OpenAIGenerator {
	return &OpenAIGenerator{llm: llm, temperature: temperature}
}

// Generate sends prompt as a single human message.
func (g *OpenAIGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	out, err := llms.GenerateFromSinglePrompt(ctx, g.llm, prompt, llms.WithTemperature(g.temperature))
	if err != nil {
		return "", fmt.Errorf("openai generate: %w", err)
	}
	return out, nil
}
