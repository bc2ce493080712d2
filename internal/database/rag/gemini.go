package rag

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ModelConfig defines configuration for a Gemini model.
type ModelConfig struct {
	Name        string
	Temperature float32
	TopP        float32
	TopK        int32
}

// AvailableModels maps short model keys to Gemini models.
var AvailableModels = map[string]ModelConfig{
	"flash": {
		Name:        "gemini-flash-latest",
		Temperature: 0.2,
		TopP:        0.95,
		TopK:        40,
	},
	"pro": {
		Name:        "gemini-pro-latest",
		Temperature: 0.2,
		TopP:        0.95,
		TopK:        40,
	},
	"flash-2": {
		Name:        "gemini-2.0-flash",
		Temperature: 0.2,
		TopP:        0.95,
		TopK:        40,
	},
	"experimental": {
		Name:        "gemini-2.0-flash-exp",
		Temperature: 0.2,
		TopP:        0.95,
		TopK:        40,
	},
}

// GeminiGenerator generates text with a Gemini model.
type GeminiGenerator struct {
	client *genai.Client
	config ModelConfig
}

// NewGeminiGenerator connects to Gemini. model is either a key of
// AvailableModels or a literal model name; empty selects "pro".
func NewGeminiGenerator(ctx context.Context, apiKey, model string, temperature float64) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiGenerator{client: client, config: resolveModel(model, temperature)}, nil
}

func resolveModel(model string, temperature float64) ModelConfig {
	if model == "" {
		model = "pro"
	}
	cfg, ok := AvailableModels[model]
	if !ok {
		cfg = AvailableModels["pro"]
		cfg.Name = model
	}
	cfg.Temperature = float32(temperature)
	return cfg
}

// getModel returns a configured GenerativeModel instance.
func (g *GeminiGenerator) getModel() *genai.GenerativeModel {
	model := g.client.GenerativeModel(g.config.Name)
	model.SetTemperature(g.config.Temperature)
	model.SetTopP(g.config.TopP)
	model.SetTopK(g.config.TopK)
	return model
}

// Generate sends prompt to the model and returns the first candidate.
func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := g.getModel().GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	return responseText(resp)
}

// Close releases the client connection.
func (g *GeminiGenerator) Close() error {
	return g.client.Close()
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", errors.New("no response from Gemini")
	}
	var b strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			b.WriteString(string(text))
		}
	}
	if b.Len() == 0 {
		return "", errors.New("no text in Gemini response")
	}
	return b.String(), nil
}
