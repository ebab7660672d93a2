package embeddings

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ziadkadry99/docchat/internal/apperr"
	"github.com/ziadkadry99/docchat/internal/config"
	"github.com/ziadkadry99/docchat/internal/resilience"
)

func TestGoogleEmbedderBatches(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if r.URL.Path != "/models/text-embedding-004:batchEmbedContents" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "key" {
			t.Errorf("missing api key header")
		}
		var req googleBatchRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		resp := googleBatchResponse{}
		for i := range req.Requests {
			resp.Embeddings = append(resp.Embeddings, struct {
				Values []float32 `json:"values"`
			}{Values: []float32{float32(i), 1}})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("key", "models/text-embedding-004", 2, srv.URL, srv.Client())
	texts := make([]string, 150)
	for i := range texts {
		texts[i] = "t"
	}
	vecs, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 150 {
		t.Fatalf("got %d vectors, want 150", len(vecs))
	}
	if calls != 2 {
		t.Errorf("expected 2 batch calls, got %d", calls)
	}
	if vecs[100][0] != 0 {
		t.Errorf("second batch should restart numbering, got %v", vecs[100])
	}
	if e.Name() != "google/text-embedding-004" || e.Dimensions() != 2 {
		t.Errorf("unexpected name/dims %s/%d", e.Name(), e.Dimensions())
	}
}

func TestGoogleEmbedderAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quota exceeded", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	e := NewGoogleEmbedder("key", "m", 0, srv.URL, srv.Client())
	if _, err := e.Embed(context.Background(), []string{"x"}); err == nil {
		t.Fatal("expected error")
	}
}

func TestOllamaEmbedder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req ollamaEmbedRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Model != "nomic-embed-text" {
			t.Errorf("model = %q", req.Model)
		}
		resp := ollamaEmbedResponse{}
		for range req.Input {
			resp.Embeddings = append(resp.Embeddings, []float32{0.5, 0.5})
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	e := NewOllamaEmbedder("nomic-embed-text", 2, srv.URL, nil)
	vecs, err := e.Embed(context.Background(), []string{"a", "b", "c"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if len(vecs) != 3 {
		t.Errorf("got %d vectors", len(vecs))
	}
}

func TestOpenAIEmbedderUsesIndexOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"object":"list","data":[
			{"object":"embedding","index":1,"embedding":[0,1]},
			{"object":"embedding","index":0,"embedding":[1,0]}
		],"model":"text-embedding-3-small"}`))
	}))
	defer srv.Close()

	e := NewOpenAIEmbedder("key", ModelTextEmbedding3Small, srv.URL+"/v1", srv.Client())
	vecs, err := e.Embed(context.Background(), []string{"first", "second"})
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if vecs[0][0] != 1 || vecs[1][1] != 1 {
		t.Errorf("vectors not reordered by index: %v", vecs)
	}
	if e.Dimensions() != 1536 {
		t.Errorf("Dimensions = %d", e.Dimensions())
	}
}

type failingEmbedder struct{ calls int }

func (f *failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	f.calls++
	return nil, errors.New("connection refused")
}
func (f *failingEmbedder) Dimensions() int { return 4 }
func (f *failingEmbedder) Name() string    { return "failing" }

func TestResilientWrapsFailures(t *testing.T) {
	inner := &failingEmbedder{}
	exec := resilience.NewExecutor(resilience.Policy{MaxAttempts: 2, InitialBackoff: time.Millisecond, MaxBackoff: time.Millisecond}, nil)
	e := Resilient(inner, exec)

	_, err := e.Embed(context.Background(), []string{"x"})
	if !apperr.IsKind(err, apperr.ErrEmbeddingUnavailable) {
		t.Fatalf("expected ErrEmbeddingUnavailable, got %v", err)
	}
	if inner.calls != 2 {
		t.Errorf("expected 2 attempts, got %d", inner.calls)
	}
	if e.Name() != "failing" || e.Dimensions() != 4 {
		t.Error("wrapper should delegate Name and Dimensions")
	}
}

func TestOllamaRejectsWrongDimensions(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embeddings: [][]float32{{1, 2, 3}}})
	}))
	defer srv.Close()

	if _, err := NewOllamaEmbedder("m", 3, srv.URL+"/", nil).Embed(context.Background(), []string{"hello"}); err != nil {
		t.Fatalf("matching dimensions: %v", err)
	}
	if _, err := NewOllamaEmbedder("m", 768, srv.URL, nil).Embed(context.Background(), []string{"hello"}); err == nil {
		t.Error("expected error for 3-dimensional vector against a 768 index")
	}
}

func TestNewRequiresAPIKey(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	_, err := New(config.EmbeddingConfig{Provider: config.ProviderGoogle, Model: "m"})
	if !apperr.IsKind(err, apperr.ErrInvalidConfig) {
		t.Fatalf("expected ErrInvalidConfig, got %v", err)
	}

	e, err := New(config.EmbeddingConfig{Provider: config.ProviderOllama, Model: "nomic-embed-text", Dimensions: 768})
	if err != nil {
		t.Fatalf("ollama needs no key: %v", err)
	}
	if e.Name() != "ollama/nomic-embed-text" {
		t.Errorf("Name = %q", e.Name())
	}

	if _, err := New(config.EmbeddingConfig{Provider: "cohere"}); !apperr.IsKind(err, apperr.ErrInvalidConfig) {
		t.Errorf("expected ErrInvalidConfig for unknown provider, got %v", err)
	}
}
