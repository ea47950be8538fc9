package embed

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/core/api"

	"ragstore/internal/log"
)

// mockProvider implements ai.Embedder for testing.
type mockProvider struct {
	delay      time.Duration // simulate processing delay
	embedErr   error         // error to return
	dims       int           // vector length to return
	dropLast   bool          // return one fewer embedding than inputs
	callCount  int           // track number of calls
	lastInputs []string      // track inputs for verification
}

func (m *mockProvider) Name() string { return "mock-provider" }

func (m *mockProvider) Register(r api.Registry) {}

func (m *mockProvider) Embed(ctx context.Context, req *ai.EmbedRequest) (*ai.EmbedResponse, error) {
	m.callCount++

	m.lastInputs = nil
	for _, doc := range req.Input {
		if len(doc.Content) > 0 {
			m.lastInputs = append(m.lastInputs, doc.Content[0].Text)
		}
	}

	if m.delay > 0 {
		select {
		case <-time.After(m.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if m.embedErr != nil {
		return nil, m.embedErr
	}

	dims := m.dims
	if dims == 0 {
		dims = 4
	}

	count := len(req.Input)
	if m.dropLast && count > 0 {
		count--
	}

	embeddings := make([]*ai.Embedding, count)
	for i := range embeddings {
		vec := make([]float32, dims)
		// Encode the input index so order preservation is checkable.
		vec[0] = float32(i)
		embeddings[i] = &ai.Embedding{Embedding: vec}
	}
	return &ai.EmbedResponse{Embeddings: embeddings}, nil
}

func newTestEmbedder(provider ai.Embedder, cfg Config) *Embedder {
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	if cfg.Dimensions == 0 {
		cfg.Dimensions = 4
	}
	return New(cfg, provider, log.NewNop())
}

func TestEmbedMissingCredential(t *testing.T) {
	provider := &mockProvider{}
	e := New(Config{Dimensions: 4}, provider, log.NewNop())

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("Embed() error = %v, want ErrMissingCredential", err)
	}
	if provider.callCount != 0 {
		t.Errorf("provider called %d times, want 0", provider.callCount)
	}
}

func TestEmbedEmptyBatch(t *testing.T) {
	provider := &mockProvider{}
	e := newTestEmbedder(provider, Config{})

	vectors, err := e.Embed(context.Background(), nil)
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vectors) != 0 {
		t.Errorf("got %d vectors, want 0", len(vectors))
	}
	if provider.callCount != 0 {
		t.Errorf("provider called %d times, want 0", provider.callCount)
	}
}

func TestEmbedPreservesOrderAndLength(t *testing.T) {
	provider := &mockProvider{}
	e := newTestEmbedder(provider, Config{})

	texts := []string{"first", "second", "third"}
	vectors, err := e.Embed(context.Background(), texts)
	if err != nil {
		t.Fatalf("Embed() error: %v", err)
	}
	if len(vectors) != len(texts) {
		t.Fatalf("got %d vectors, want %d", len(vectors), len(texts))
	}
	for i, vec := range vectors {
		if vec[0] != float32(i) {
			t.Errorf("vector %d out of order (marker %v)", i, vec[0])
		}
	}
	if provider.callCount != 1 {
		t.Errorf("provider called %d times, want 1 (single batch call)", provider.callCount)
	}
	for i, text := range texts {
		if provider.lastInputs[i] != text {
			t.Errorf("input %d = %q, want %q", i, provider.lastInputs[i], text)
		}
	}
}

func TestEmbedDimensionMismatch(t *testing.T) {
	provider := &mockProvider{dims: 8}
	e := newTestEmbedder(provider, Config{Dimensions: 4})

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Embed() error = %v, want ErrDimensionMismatch", err)
	}
}

func TestEmbedCountMismatch(t *testing.T) {
	provider := &mockProvider{dropLast: true}
	e := newTestEmbedder(provider, Config{})

	_, err := e.Embed(context.Background(), []string{"one", "two"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Embed() error = %v, want ErrProvider", err)
	}
}

func TestEmbedProviderError(t *testing.T) {
	providerErr := errors.New("rate limited")
	provider := &mockProvider{embedErr: providerErr}
	e := newTestEmbedder(provider, Config{})

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Embed() error = %v, want ErrProvider", err)
	}
	if !errors.Is(err, providerErr) {
		t.Errorf("Embed() error %v does not wrap the provider cause", err)
	}
}

func TestEmbedTimeout(t *testing.T) {
	provider := &mockProvider{delay: 200 * time.Millisecond}
	e := newTestEmbedder(provider, Config{Timeout: 10 * time.Millisecond})

	_, err := e.Embed(context.Background(), []string{"hello"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Embed() error = %v, want ErrProvider", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Embed() error %v does not wrap DeadlineExceeded", err)
	}
}

func TestEmbedSingle(t *testing.T) {
	provider := &mockProvider{}
	e := newTestEmbedder(provider, Config{})

	vec, err := e.EmbedSingle(context.Background(), "hello")
	if err != nil {
		t.Fatalf("EmbedSingle() error: %v", err)
	}
	if len(vec) != 4 {
		t.Errorf("got %d dimensions, want 4", len(vec))
	}
}

func TestCheckCredential(t *testing.T) {
	withKey := newTestEmbedder(&mockProvider{}, Config{})
	if err := withKey.CheckCredential(); err != nil {
		t.Errorf("CheckCredential() with key: %v", err)
	}

	withoutKey := New(Config{}, &mockProvider{}, log.NewNop())
	if err := withoutKey.CheckCredential(); !errors.Is(err, ErrMissingCredential) {
		t.Errorf("CheckCredential() without key = %v, want ErrMissingCredential", err)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	e := New(Config{APIKey: "k"}, &mockProvider{}, nil)
	if e.Model() != DefaultModel {
		t.Errorf("Model() = %q, want %q", e.Model(), DefaultModel)
	}
	if e.Dimensions() != DefaultDimensions {
		t.Errorf("Dimensions() = %d, want %d", e.Dimensions(), DefaultDimensions)
	}
}

func TestEmbedRateLimitPacesCalls(t *testing.T) {
	provider := &mockProvider{}
	e := newTestEmbedder(provider, Config{RequestsPerSecond: 100})

	// Burst is 1, so the second and third calls each wait for a ~10ms
	// token refill. A lower bound on elapsed time is stable in CI.
	start := time.Now()
	for i := 0; i < 3; i++ {
		if _, err := e.Embed(context.Background(), []string{"hello"}); err != nil {
			t.Fatalf("Embed() call %d error: %v", i, err)
		}
	}
	if elapsed := time.Since(start); elapsed < 15*time.Millisecond {
		t.Errorf("3 calls at 100 rps took %v, want at least 15ms of pacing", elapsed)
	}
	if provider.callCount != 3 {
		t.Errorf("provider called %d times, want 3", provider.callCount)
	}
}

func TestEmbedRateLimitDeadline(t *testing.T) {
	provider := &mockProvider{}
	// One call per 1000s: the first call takes the only token, the second
	// cannot get one within any reasonable deadline.
	e := newTestEmbedder(provider, Config{RequestsPerSecond: 0.001})

	if _, err := e.Embed(context.Background(), []string{"first"}); err != nil {
		t.Fatalf("Embed() first call error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err := e.Embed(ctx, []string{"second"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Embed() error = %v, want ErrProvider", err)
	}
	// The limiter rejected the call before the provider saw it.
	if provider.callCount != 1 {
		t.Errorf("provider called %d times, want 1", provider.callCount)
	}
}

func TestEmbedRateLimitCancelledContext(t *testing.T) {
	provider := &mockProvider{}
	e := newTestEmbedder(provider, Config{RequestsPerSecond: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := e.Embed(ctx, []string{"hello"})
	if !errors.Is(err, ErrProvider) {
		t.Fatalf("Embed() error = %v, want ErrProvider", err)
	}
	if provider.callCount != 0 {
		t.Errorf("provider called %d times, want 0", provider.callCount)
	}
}
