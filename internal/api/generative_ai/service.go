package generativeAI

import (
	"context"
	"fmt"

	"google.golang.org/genai"
)

// AIClient wraps the generative text provider. The provider must be treated
// as unreliable: callers own all parsing and fallback behavior.
type AIClient struct {
	client *genai.Client
	model  string
}

// NewAIClient builds the provider client. A missing API key yields a
// disabled client whose calls error, which the pipeline absorbs through its
// normal fallback tiers, the same way the other providers degrade.
func NewAIClient(ctx context.Context, apiKey, model string) (*AIClient, error) {
	if apiKey == "" {
		return &AIClient{model: model}, nil
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	return &AIClient{
		client: client,
		model:  model,
	}, nil
}

// GenerateContent sends a single prompt and returns the raw provider
// response, including any structured function-call parts.
func (ai *AIClient) GenerateContent(ctx context.Context, prompt string, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	if ai.client == nil {
		return nil, fmt.Errorf("generative provider is not configured")
	}
	result, err := ai.client.Models.GenerateContent(ctx, ai.model, genai.Text(prompt), config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	return result, nil
}
