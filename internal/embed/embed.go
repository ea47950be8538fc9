// Package embed abstracts the remote embedding provider behind batch and
// single-item embedding with a declared model and vector dimensionality.
//
// The provider credential is an explicit configuration value, not ambient
// process state: every call checks it locally and fails with
// ErrMissingCredential before any network attempt.
package embed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/firebase/genkit/go/ai"
	"golang.org/x/time/rate"
)

var (
	// ErrMissingCredential indicates no provider credential is configured.
	// Surfaced before any I/O; client-actionable, not retried automatically.
	ErrMissingCredential = errors.New("embedding credential not configured")

	// ErrProvider indicates the embedding call failed (network, rate limit,
	// malformed response). Callers may retry with backoff; this package
	// does not retry internally.
	ErrProvider = errors.New("embedding provider error")

	// ErrDimensionMismatch indicates the provider returned a vector of the
	// wrong length. This is a fatal integration error, not recoverable.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
)

// Defaults for embedding configuration.
const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 1536
	DefaultTimeout    = 30 * time.Second
)

// Config configures an Embedder.
type Config struct {
	// APIKey is the provider credential. Empty means every embed call
	// fails fast with ErrMissingCredential.
	APIKey string

	// Model is the embedding model identifier.
	Model string

	// Dimensions is the expected vector length of every embedding.
	Dimensions int

	// Timeout bounds each provider call. Default: DefaultTimeout.
	Timeout time.Duration

	// RequestsPerSecond paces outbound provider calls. 0 disables pacing.
	RequestsPerSecond float64
}

// Embedder converts text into fixed-dimension vectors via a remote model.
//
// Embedder is stateless apart from its rate limiter and is safe for
// concurrent use.
type Embedder struct {
	embedder ai.Embedder
	cfg      Config
	limiter  *rate.Limiter
	logger   *slog.Logger
}

// New creates an Embedder over the given ai.Embedder.
// The credential check happens per call, so construction always succeeds;
// this keeps missing-credential behavior trivially injectable in tests.
func New(cfg Config, embedder ai.Embedder, logger *slog.Logger) *Embedder {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}

	return &Embedder{
		embedder: embedder,
		cfg:      cfg,
		limiter:  limiter,
		logger:   logger,
	}
}

// Model returns the configured model identifier.
func (e *Embedder) Model() string { return e.cfg.Model }

// Dimensions returns the configured vector length.
func (e *Embedder) Dimensions() int { return e.cfg.Dimensions }

// CheckCredential reports whether a provider credential is configured.
// Callers use this to fail fast before doing any other work.
func (e *Embedder) CheckCredential() error {
	if e.cfg.APIKey == "" {
		return fmt.Errorf("%w: set GEMINI_API_KEY or api_key in config", ErrMissingCredential)
	}
	return nil
}

// Embed converts a batch of texts into vectors with one provider call.
// The result is length- and order-preserving: result[i] embeds texts[i].
// An empty batch returns an empty result without a network call.
func (e *Embedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := e.CheckCredential(); err != nil {
		return nil, err
	}
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: rate limiter: %w", ErrProvider, err)
		}
	}

	callCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	// One request describes the whole batch; batching beyond that is the
	// provider's concern.
	input := make([]*ai.Document, len(texts))
	for i, text := range texts {
		input[i] = ai.DocumentFromText(text, nil)
	}

	resp, err := e.embedder.Embed(callCtx, &ai.EmbedRequest{Input: input})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: timeout after %s: %w", ErrProvider, e.cfg.Timeout, err)
		}
		return nil, fmt.Errorf("%w: %w", ErrProvider, err)
	}

	if len(resp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("%w: provider returned %d embeddings for %d inputs",
			ErrProvider, len(resp.Embeddings), len(texts))
	}

	vectors := make([][]float32, len(texts))
	for i, emb := range resp.Embeddings {
		if len(emb.Embedding) != e.cfg.Dimensions {
			return nil, fmt.Errorf("%w: provider returned %d dimensions, want %d (model %s)",
				ErrDimensionMismatch, len(emb.Embedding), e.cfg.Dimensions, e.cfg.Model)
		}
		vectors[i] = emb.Embedding
	}

	e.logger.Debug("embedded batch", "model", e.cfg.Model, "texts", len(texts))
	return vectors, nil
}

// EmbedSingle converts one text into a vector.
func (e *Embedder) EmbedSingle(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.Embed(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}
