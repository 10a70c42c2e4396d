package main

import (
	"fmt"
	"os"

	"github.com/abelbrown/nexus/internal/brain"
	"github.com/abelbrown/nexus/internal/config"
	"github.com/abelbrown/nexus/internal/embed"
	"github.com/abelbrown/nexus/internal/feeds"
	"github.com/abelbrown/nexus/internal/fetch"
	"github.com/abelbrown/nexus/internal/gemini"
	"github.com/abelbrown/nexus/internal/logging"
	"github.com/abelbrown/nexus/internal/session"
	"github.com/abelbrown/nexus/internal/store"
	"github.com/abelbrown/nexus/internal/translate"
)

// env is everything a command needs, wired from the config file.
type env struct {
	cfg     *config.Config
	store   *store.Store
	session *session.Session
}

// Close stops background work and releases the database.
func (e *env) Close() {
	e.session.Close()
	if err := e.store.Close(); err != nil {
		logging.Warn("failed to close store", "error", err)
	}
	logging.Close()
}

// setup loads the config, starts logging via initLog and wires the
// pipeline. onUpdate may be nil.
func setup(initLog func(dataDir string) error, onUpdate func()) (*env, error) {
	path := configPath
	if path == "" {
		path = config.DefaultPath()
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data directory: %w", err)
	}
	if err := initLog(cfg.DataDir); err != nil {
		return nil, err
	}

	st, err := store.Open(cfg.DBPath())
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	sess := session.New(session.Deps{
		Aggregator: newAggregator(cfg),
		Sources:    cfg.Sources,
		Store:      st,
		Embedder:   newEmbedder(cfg),
		Translator: newTranslator(cfg),
	}, session.Options{
		DefaultLocale:      cfg.DefaultLocale,
		TranslateBatchSize: cfg.Translate.BatchSize,
		TranslateDebounce:  cfg.Translate.Debounce,
		OnUpdate:           onUpdate,
	})

	return &env{cfg: cfg, store: st, session: sess}, nil
}

func newAggregator(cfg *config.Config) *feeds.Aggregator {
	var t fetch.Transport
	switch cfg.Transport {
	case config.TransportDirect:
		t = fetch.NewDirectTransport(cfg.FetchTimeout)
	default:
		t = fetch.NewProxyTransport(cfg.ProxyURL, cfg.FetchTimeout)
	}
	return feeds.NewAggregator(t,
		feeds.WithTimeout(cfg.FetchTimeout),
		feeds.WithLimit(cfg.PerSourceLimit),
	)
}

// newEmbedder returns nil when semantic search is disabled; search then
// falls back to keyword matching.
func newEmbedder(cfg *config.Config) embed.Embedder {
	switch cfg.Embed.Provider {
	case config.EmbedGemini:
		if cfg.Embed.APIKey == "" {
			logging.Info("no API key, semantic search disabled")
			return nil
		}
		return embed.NewGeminiEmbedder(gemini.NewClient(cfg.Embed.APIKey), cfg.Embed.Model)
	case config.EmbedOllama:
		return embed.NewOllamaEmbedder(cfg.Embed.Endpoint, cfg.Embed.Model)
	}
	return nil
}

// newTranslator prefers Gemini and falls back to a local Ollama model
// when one is configured. It returns nil when neither is.
func newTranslator(cfg *config.Config) translate.Translator {
	pm := brain.NewProviderManager()
	configured := 0
	if cfg.Translate.APIKey != "" {
		pm.AddProvider(brain.NewGeminiProvider(gemini.NewClient(cfg.Translate.APIKey), cfg.Translate.Model))
		configured++
	}
	if cfg.Translate.OllamaEndpoint != "" {
		pm.AddProvider(brain.NewOllamaProvider(cfg.Translate.OllamaEndpoint, cfg.Translate.OllamaModel))
		configured++
	}
	if configured == 0 {
		logging.Info("no translation provider configured")
		return nil
	}
	return brain.NewTranslator(pm)
}
