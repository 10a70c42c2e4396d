// Package brain holds the LLM providers and the batch translator built on them.
package brain

import (
	"context"
	"errors"

	"github.com/abelbrown/nexus/internal/gemini"
)

// ErrNotConfigured is returned when no provider is available.
var ErrNotConfigured = errors.New("brain: no provider configured")

// Provider is the interface for AI providers
type Provider interface {
	// Name returns the provider name (e.g., "gemini", "ollama")
	Name() string

	// Available returns true if the provider is configured and ready
	Available() bool

	// Generate sends a prompt and returns the response
	Generate(ctx context.Context, req Request) (Response, error)
}

// Request is a prompt request to an AI provider
type Request struct {
	SystemPrompt string
	UserPrompt   string
	MaxTokens    int
	// Schema requests JSON output matching it. Providers without schema
	// support fall back to plain JSON mode.
	Schema *gemini.Schema
}

// Response is the AI provider's response
type Response struct {
	Content      string
	Model        string
	FinishReason string
}

// ProviderManager manages multiple AI providers with fallback
type ProviderManager struct {
	providers []Provider
	preferred string // Preferred provider name
}

// NewProviderManager creates a new provider manager
func NewProviderManager(providers ...Provider) *ProviderManager {
	return &ProviderManager{providers: providers}
}

// AddProvider adds a provider to the manager
func (pm *ProviderManager) AddProvider(p Provider) {
	pm.providers = append(pm.providers, p)
}

// SetPreferred sets the preferred provider by name
func (pm *ProviderManager) SetPreferred(name string) {
	pm.preferred = name
}

// GetAvailable returns the first available provider, preferring the preferred one
func (pm *ProviderManager) GetAvailable() Provider {
	if pm.preferred != "" {
		for _, p := range pm.providers {
			if p.Name() == pm.preferred && p.Available() {
				return p
			}
		}
	}

	for _, p := range pm.providers {
		if p.Available() {
			return p
		}
	}
	return nil
}

// ListAvailable returns names of all available providers
func (pm *ProviderManager) ListAvailable() []string {
	var names []string
	for _, p := range pm.providers {
		if p.Available() {
			names = append(names, p.Name())
		}
	}
	return names
}
