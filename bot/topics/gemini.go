package topics

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// DefaultModel is used when no model name is configured.
const DefaultModel = "gemini-2.5-flash"

// GeminiCompleter generates text through the Gemini API.
type GeminiCompleter struct {
	client *genai.Client
	model  string
}

// NewGeminiCompleter creates a Gemini API client authenticated with apiKey.
func NewGeminiCompleter(ctx context.Context, apiKey, model string) (*GeminiCompleter, error) {
	if apiKey == "" {
		return nil, ErrNotConfigured
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Gemini client: %w", err)
	}
	return &GeminiCompleter{client: client, model: model}, nil
}

// generateConfig limits the visible answer to maxTokens. Thinking is switched off
// because 2.5 models count thought tokens against MaxOutputTokens.
func generateConfig(maxTokens int) *genai.GenerateContentConfig {
	budget := int32(0)
	return &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		ThinkingConfig:  &genai.ThinkingConfig{ThinkingBudget: &budget},
	}
}

// Complete implements Completer.
func (g *GeminiCompleter) Complete(ctx context.Context, prompt string, maxTokens int) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), generateConfig(maxTokens))
	if err != nil {
		return "", fmt.Errorf("gemini generate content: %w", err)
	}
	text := resp.Text()
	if text == "" {
		if len(resp.Candidates) > 0 && resp.Candidates[0].FinishReason != "" {
			return "", fmt.Errorf("gemini returned empty text (finish reason %s)", resp.Candidates[0].FinishReason)
		}
		return "", errors.New("gemini returned empty text")
	}
	return text, nil
}
