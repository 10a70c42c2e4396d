package brain

import (
	"context"
	"fmt"

	"github.com/abelbrown/nexus/internal/gemini"
	"github.com/abelbrown/nexus/internal/logging"
)

// DefaultGeminiModel is the generation model used for translation.
const DefaultGeminiModel = "gemini-3-flash-preview"

// GeminiProvider implements the Provider interface for Google's Gemini models
type GeminiProvider struct {
	client *gemini.Client
	model  string
}

// NewGeminiProvider creates a new Gemini provider
func NewGeminiProvider(client *gemini.Client, model string) *GeminiProvider {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiProvider{client: client, model: model}
}

func (g *GeminiProvider) Name() string {
	return "gemini"
}

func (g *GeminiProvider) Available() bool {
	return g.client != nil && g.client.Available()
}

func (g *GeminiProvider) Generate(ctx context.Context, req Request) (Response, error) {
	if !g.Available() {
		logging.Warn("Gemini provider not configured")
		return Response{}, fmt.Errorf("gemini: %w", ErrNotConfigured)
	}

	maxTokens := req.MaxTokens
	if maxTokens == 0 {
		maxTokens = 4096
	}

	logging.Debug("Gemini API request starting", "model", g.model, "max_tokens", maxTokens, "schema", req.Schema != nil)

	resp, err := g.client.GenerateContent(ctx, g.model, gemini.GenerateRequest{
		SystemPrompt:   req.SystemPrompt,
		UserPrompt:     req.UserPrompt,
		MaxTokens:      maxTokens,
		ResponseSchema: req.Schema,
	})
	if err != nil {
		logging.Error("Gemini API error", "model", g.model, "error", err)
		return Response{}, err
	}

	if resp.FinishReason == "MAX_TOKENS" {
		logging.Warn("Gemini response truncated due to max tokens",
			"model", resp.Model,
			"max_tokens", maxTokens,
			"content_length", len(resp.Text))
	}

	logging.Debug("Gemini API response",
		"model", resp.Model,
		"content_length", len(resp.Text),
		"finish_reason", resp.FinishReason)

	return Response{Content: resp.Text, Model: resp.Model, FinishReason: resp.FinishReason}, nil
}
