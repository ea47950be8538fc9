package embed

import (
	"context"
	"log/slog"

	"github.com/firebase/genkit/go/genkit"
	"github.com/firebase/genkit/go/plugins/googlegenai"
)

// NewGoogleAI creates an Embedder backed by the Google AI embedding API.
//
// A missing credential is not a construction error: the plugin is simply
// not initialized and every embedding call fails with ErrMissingCredential.
// Commands that never embed can therefore run without an API key.
func NewGoogleAI(ctx context.Context, cfg Config, logger *slog.Logger) (*Embedder, error) {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.APIKey == "" {
		return New(cfg, nil, logger), nil
	}

	g := genkit.Init(ctx, genkit.WithPlugins(&googlegenai.GoogleAI{APIKey: cfg.APIKey}))
	embedder := googlegenai.GoogleAIEmbedder(g, cfg.Model)

	return New(cfg, embedder, logger), nil
}
