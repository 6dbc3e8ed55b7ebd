package ai

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

// GeminiClient is the Gemini persona backend
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient creates the genai client once at startup
func NewGeminiClient(ctx context.Context, apiKey, model string) (*GeminiClient, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, err
	}
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &GeminiClient{client: client, model: model}, nil
}

var _ Backend = (*GeminiClient)(nil)

// Complete sends the system instruction as SystemInstruction and the message as user content
func (g *GeminiClient) Complete(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	config := &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(systemInstruction, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(userMessage), config)
	if err != nil {
		return "", fmt.Errorf("gemini 호출 실패: %w", err)
	}

	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", ErrEmptyCompletion
	}

	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil {
			sb.WriteString(part.Text)
		}
	}
	text := strings.TrimSpace(sb.String())
	if text == "" {
		return "", ErrEmptyCompletion
	}
	return text, nil
}

// ListModels requests a single page of models
func (g *GeminiClient) ListModels(ctx context.Context) ([]string, error) {
	page, err := g.client.Models.List(ctx, &genai.ListModelsConfig{PageSize: 5})
	if err != nil {
		return nil, fmt.Errorf("gemini 모델 목록 조회 실패: %w", err)
	}
	names := make([]string, 0, len(page.Items))
	for _, m := range page.Items {
		if m != nil {
			names = append(names, m.Name)
		}
	}
	return names, nil
}
