// Package app wires configuration, the database pool, the embedder and the
// retrieval system into a ready-to-use application instance.
//
// Construction is fail-fast: a bad configuration or an unreachable database
// surfaces at New, not on first use. The only deferred check is the
// embedding credential, which is validated per call so commands that never
// embed work without an API key.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"ragstore/internal/chunk"
	"ragstore/internal/config"
	"ragstore/internal/embed"
	"ragstore/internal/log"
	"ragstore/internal/rag"
	"ragstore/internal/store"
)

// App holds the assembled application components.
type App struct {
	Config *config.Config
	Pool   *pgxpool.Pool
	System *rag.System
	Logger log.Logger
}

// New loads configuration and assembles the application.
// The returned cleanup function closes the database pool; callers must
// invoke it on shutdown.
func New(ctx context.Context, logger log.Logger) (*App, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("loading configuration: %w", err)
	}

	pool, cleanup, err := providePool(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	embedder, err := provideEmbedder(ctx, cfg, logger)
	if err != nil {
		cleanup()
		return nil, nil, err
	}

	chunkStore := store.New(pool, cfg.EmbedDims, logger)
	system := rag.New(embedder, chunkStore, logger)

	return &App{
		Config: cfg,
		Pool:   pool,
		System: system,
		Logger: logger,
	}, cleanup, nil
}

// ChunkOptions returns the configured chunking options for the given source
// label.
func (a *App) ChunkOptions(source string) chunk.Options {
	return chunk.Options{
		Size:    a.Config.ChunkSize,
		Overlap: a.Config.ChunkOverlap,
		Source:  source,
	}
}

// provideEmbedder builds the Gemini-backed embedder from configuration.
// The credential may be absent; embedding calls will reject it then.
func provideEmbedder(ctx context.Context, cfg *config.Config, logger log.Logger) (*embed.Embedder, error) {
	return embed.NewGoogleAI(ctx, embed.Config{
		APIKey:            cfg.GeminiAPIKey,
		Model:             cfg.EmbedderModel,
		Dimensions:        cfg.EmbedDims,
		RequestsPerSecond: cfg.EmbedRPS,
	}, logger)
}
