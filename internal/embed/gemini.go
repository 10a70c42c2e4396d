package embed

import (
	"context"

	"github.com/abelbrown/nexus/internal/gemini"
)

// DefaultGeminiModel is the embedding model used when none is configured.
const DefaultGeminiModel = "text-embedding-004"

// GeminiEmbedder generates embeddings via the Gemini embedContent API.
type GeminiEmbedder struct {
	client *gemini.Client
	model  string
}

// NewGeminiEmbedder creates a GeminiEmbedder on client.
func NewGeminiEmbedder(client *gemini.Client, model string) *GeminiEmbedder {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &GeminiEmbedder{client: client, model: model}
}

// Available returns true if the client has credentials.
func (e *GeminiEmbedder) Available() bool {
	return e.client != nil && e.client.Available()
}

// Embed embeds a document.
func (e *GeminiEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return e.client.EmbedContent(ctx, e.model, text, gemini.TaskRetrievalDocument)
}

// EmbedQuery embeds a search query.
func (e *GeminiEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	return e.client.EmbedContent(ctx, e.model, text, gemini.TaskRetrievalQuery)
}
