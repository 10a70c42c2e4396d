package embed

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// fakeOllama serves /api/tags with models and /api/embed with embedFn.
type fakeOllama struct {
	mu      sync.Mutex
	models  []string
	tagsErr bool
	embedFn func(w http.ResponseWriter, req ollamaEmbedRequest)

	tagCalls atomic.Int32
}

// ready makes the tags endpoint list models.
func (f *fakeOllama) ready(models ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tagsErr = false
	f.models = models
}

func (f *fakeOllama) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/tags":
		f.tagCalls.Add(1)
		f.mu.Lock()
		tagsErr, models := f.tagsErr, f.models
		f.mu.Unlock()
		if tagsErr {
			http.Error(w, "loading", http.StatusServiceUnavailable)
			return
		}
		resp := ollamaTagsResponse{}
		for _, m := range models {
			resp.Models = append(resp.Models, ollamaModel{Name: m})
		}
		json.NewEncoder(w).Encode(resp)
	case "/api/embed":
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		f.embedFn(w, req)
	default:
		http.NotFound(w, r)
	}
}

func TestNewOllamaEmbedderDefaults(t *testing.T) {
	e := NewOllamaEmbedder("", "")
	if e.endpoint != DefaultOllamaEndpoint {
		t.Errorf("endpoint = %q, want %q", e.endpoint, DefaultOllamaEndpoint)
	}
	if e.model != DefaultOllamaModel {
		t.Errorf("model = %q, want %q", e.model, DefaultOllamaModel)
	}

	e = NewOllamaEmbedder("http://gpu:11434", "mxbai-embed-large")
	if e.endpoint != "http://gpu:11434" || e.model != "mxbai-embed-large" {
		t.Errorf("explicit config not kept: %q %q", e.endpoint, e.model)
	}
}

func TestOllamaAvailableMatchesModel(t *testing.T) {
	tests := []struct {
		name   string
		models []string
		want   bool
	}{
		{"exact name", []string{"llama3", DefaultOllamaModel}, true},
		{"latest tag", []string{DefaultOllamaModel + ":latest"}, true},
		{"other tag", []string{DefaultOllamaModel + ":v1.5"}, false},
		{"not pulled", []string{"llama3", "mistral"}, false},
		{"empty", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(&fakeOllama{models: tt.models})
			defer server.Close()

			if got := NewOllamaEmbedder(server.URL, "").Available(); got != tt.want {
				t.Errorf("Available() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestOllamaAvailableServerDown(t *testing.T) {
	server := httptest.NewServer(&fakeOllama{})
	url := server.URL
	server.Close()

	if NewOllamaEmbedder(url, "").Available() {
		t.Error("Available() = true with server down")
	}
}

func TestOllamaAvailableCached(t *testing.T) {
	fake := &fakeOllama{models: []string{DefaultOllamaModel + ":latest"}}
	server := httptest.NewServer(fake)
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "")
	for i := 0; i < 3; i++ {
		if !e.Available() {
			t.Fatal("Available() = false, want true")
		}
	}
	if n := fake.tagCalls.Load(); n != 1 {
		t.Errorf("tag calls = %d, want 1", n)
	}
}

func TestOllamaUnavailableCachedUntilTTL(t *testing.T) {
	fake := &fakeOllama{tagsErr: true}
	server := httptest.NewServer(fake)
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "")
	if e.Available() {
		t.Fatal("Available() = true while Ollama is loading")
	}

	// Ollama finishes loading, but the failed check is still cached.
	fake.ready(DefaultOllamaModel)
	if e.Available() {
		t.Error("Available() rechecked inside the TTL")
	}
	if n := fake.tagCalls.Load(); n != 1 {
		t.Errorf("tag calls = %d, want 1", n)
	}

	e.mu.Lock()
	e.checkedAt = time.Now().Add(-availabilityTTL - time.Second)
	e.mu.Unlock()

	if !e.Available() {
		t.Error("Available() = false after TTL expired and server recovered")
	}
	if n := fake.tagCalls.Load(); n != 2 {
		t.Errorf("tag calls = %d, want 2", n)
	}
}

func TestOllamaEmbedCandidateText(t *testing.T) {
	reqs := make(chan ollamaEmbedRequest, 2)
	server := httptest.NewServer(&fakeOllama{embedFn: func(w http.ResponseWriter, req ollamaEmbedRequest) {
		reqs <- req
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{0.6, 0.8}}})
	}})
	defer server.Close()

	e := NewOllamaEmbedder(server.URL, "")
	text := "Server components: how React renders on the server"
	vec, err := e.Embed(context.Background(), text)
	if err != nil {
		t.Fatalf("Embed() error = %v", err)
	}
	if got := <-reqs; got.Model != DefaultOllamaModel || got.Input != text {
		t.Errorf("request = %+v", got)
	}
	if len(vec) != 2 || vec[0] != 0.6 || vec[1] != 0.8 {
		t.Errorf("vector = %v", vec)
	}

	// Ollama has no query task type; Query goes through Embed.
	qvec, err := Query(context.Background(), e, "react")
	if err != nil || len(qvec) != 2 {
		t.Errorf("Query() = %v, %v", qvec, err)
	}
	if got := <-reqs; got.Input != "react" {
		t.Errorf("query input = %q", got.Input)
	}
}

func TestOllamaEmbedErrors(t *testing.T) {
	tests := []struct {
		name    string
		embedFn func(w http.ResponseWriter, req ollamaEmbedRequest)
		wantErr string
	}{
		{
			name: "model not found",
			embedFn: func(w http.ResponseWriter, req ollamaEmbedRequest) {
				http.Error(w, `{"error":"model not found"}`, http.StatusNotFound)
			},
			wantErr: "status 404",
		},
		{
			name: "no embeddings",
			embedFn: func(w http.ResponseWriter, req ollamaEmbedRequest) {
				json.NewEncoder(w).Encode(ollamaEmbedResponse{})
			},
			wantErr: "no embeddings",
		},
		{
			name: "malformed body",
			embedFn: func(w http.ResponseWriter, req ollamaEmbedRequest) {
				w.Write([]byte("{not json"))
			},
			wantErr: "parse response",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(&fakeOllama{embedFn: tt.embedFn})
			defer server.Close()

			_, err := NewOllamaEmbedder(server.URL, "").Embed(context.Background(), "Latency numbers: tail latency")
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Embed() error = %v, want containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestOllamaEmbedCancelled(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(&fakeOllama{embedFn: func(w http.ResponseWriter, req ollamaEmbedRequest) {
		<-release
	}})
	defer server.Close()
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := NewOllamaEmbedder(server.URL, "").Embed(ctx, "CSS grid: layout")
	if err == nil || !strings.Contains(err.Error(), "cancelled") {
		t.Errorf("Embed() error = %v, want cancelled", err)
	}
}
