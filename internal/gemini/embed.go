package gemini

import (
	"context"
	"fmt"
)

// Task types understood by embedContent.
const (
	TaskRetrievalQuery    = "RETRIEVAL_QUERY"
	TaskRetrievalDocument = "RETRIEVAL_DOCUMENT"
)

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type embedRequest struct {
	Model    string  `json:"model"`
	Content  content `json:"content"`
	TaskType string  `json:"taskType,omitempty"`
}

type embedResponse struct {
	Embedding struct {
		Values []float32 `json:"values"`
	} `json:"embedding"`
}

// EmbedContent returns the embedding of text.
func (c *Client) EmbedContent(ctx context.Context, model, text, taskType string) ([]float32, error) {
	req := embedRequest{
		Model:    "models/" + model,
		Content:  content{Parts: []part{{Text: text}}},
		TaskType: taskType,
	}
	var resp embedResponse
	if err := c.post(ctx, model, "embedContent", req, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embedding.Values) == 0 {
		return nil, fmt.Errorf("gemini: no embedding returned")
	}
	return resp.Embedding.Values, nil
}
