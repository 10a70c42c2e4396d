package gemini

import (
	"context"
	"fmt"
)

// Schema is the subset of the OpenAPI schema object used for structured output.
type Schema struct {
	Type       string             `json:"type"`
	Items      *Schema            `json:"items,omitempty"`
	Properties map[string]*Schema `json:"properties,omitempty"`
	Required   []string           `json:"required,omitempty"`
}

// GenerateRequest is one non-streaming generateContent call.
type GenerateRequest struct {
	SystemPrompt   string
	UserPrompt     string
	MaxTokens      int
	ResponseSchema *Schema // JSON output when set
}

// GenerateResponse is the first candidate's text.
type GenerateResponse struct {
	Text         string
	Model        string
	FinishReason string
}

type generationConfig struct {
	MaxOutputTokens  int     `json:"maxOutputTokens,omitempty"`
	ResponseMimeType string  `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema `json:"responseSchema,omitempty"`
}

type generateBody struct {
	Contents          []content        `json:"contents"`
	SystemInstruction *content         `json:"systemInstruction,omitempty"`
	GenerationConfig  generationConfig `json:"generationConfig"`
}

type generateResult struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	ModelVersion string `json:"modelVersion"`
}

// GenerateContent runs a single-turn generation.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateRequest) (GenerateResponse, error) {
	body := generateBody{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.UserPrompt}}}},
		GenerationConfig: generationConfig{
			MaxOutputTokens: req.MaxTokens,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	if req.ResponseSchema != nil {
		body.GenerationConfig.ResponseMimeType = "application/json"
		body.GenerationConfig.ResponseSchema = req.ResponseSchema
	}

	var result generateResult
	if err := c.post(ctx, model, "generateContent", body, &result); err != nil {
		return GenerateResponse{}, err
	}
	if len(result.Candidates) == 0 {
		return GenerateResponse{}, fmt.Errorf("gemini: no candidates returned")
	}

	cand := result.Candidates[0]
	text := ""
	for _, p := range cand.Content.Parts {
		text += p.Text
	}
	name := model
	if result.ModelVersion != "" {
		name = result.ModelVersion
	}
	return GenerateResponse{Text: text, Model: name, FinishReason: cand.FinishReason}, nil
}
