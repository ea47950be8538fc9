// Package rag composes the chunker, embedder and vector store into the
// retrieval pipeline: index documents as embedded chunks, answer free-text
// queries with ranked results.
package rag

import (
	"context"
	"fmt"
	"log/slog"

	"ragstore/internal/chunk"
	"ragstore/internal/metadata"
	"ragstore/internal/store"
)

// DefaultTopK is the number of results returned when the caller does not
// ask for a specific k.
const DefaultTopK = 3

// Embedder is the embedding surface the system needs.
// *embed.Embedder satisfies it; tests provide mocks.
type Embedder interface {
	CheckCredential() error
	Embed(ctx context.Context, texts []string) ([][]float32, error)
	EmbedSingle(ctx context.Context, text string) ([]float32, error)
}

// VectorStore is the persistence surface the system needs.
// *store.Store satisfies it.
type VectorStore interface {
	UpsertChunks(ctx context.Context, rows []store.Row) error
	QuerySimilar(ctx context.Context, embedding []float32, k int) ([]store.SimilarChunk, error)
	DeleteDocChunks(ctx context.Context, docID string) error
	CountChunks(ctx context.Context) (int64, error)
}

// Result is a ranked retrieval hit. Score is cosine distance renamed for
// the caller-facing API: 0 means identical, larger means less similar,
// lower is better.
type Result struct {
	ID       string
	Content  string
	Score    float64
	Metadata metadata.Map
}

// System is the single entry point turning free-text queries into ranked
// chunks. It never mutates stored rows, only reads them; writes go through
// the indexing methods which own the chunk rows they create.
//
// System is stateless between calls and safe for concurrent use, with the
// caveat that concurrently re-indexing the same document is not safe
// against interleaving without external coordination.
type System struct {
	embedder Embedder
	store    VectorStore
	logger   *slog.Logger
}

// New creates a System over the given embedder and store.
func New(embedder Embedder, vectorStore VectorStore, logger *slog.Logger) *System {
	if logger == nil {
		logger = slog.Default()
	}
	return &System{
		embedder: embedder,
		store:    vectorStore,
		logger:   logger,
	}
}

// Query embeds the query text and returns the k most similar chunks,
// ordered most similar first. k <= 0 falls back to DefaultTopK.
//
// An empty result set is a valid outcome, not an error: it means the store
// holds nothing close enough, or nothing at all.
func (s *System) Query(ctx context.Context, query string, k int) ([]Result, error) {
	// Fail fast before any work when no credential is configured.
	if err := s.embedder.CheckCredential(); err != nil {
		return nil, err
	}

	if k <= 0 {
		k = DefaultTopK
	}

	embedding, err := s.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	similar, err := s.store.QuerySimilar(ctx, embedding, k)
	if err != nil {
		return nil, fmt.Errorf("searching chunks: %w", err)
	}

	results := make([]Result, len(similar))
	for i, c := range similar {
		results[i] = Result{
			ID:       c.ID,
			Content:  c.Content,
			Score:    c.Distance,
			Metadata: c.Metadata,
		}
	}

	s.logger.Debug("query answered", "k", k, "results", len(results))
	return results, nil
}

// IndexDocument chunks text, embeds all chunks in one batch, and upserts
// the rows under docID. Returns the number of chunks written.
//
// Upsert semantics make this idempotent per chunk id, but chunk ids are
// fresh per call; use ReindexDocument when the document may already be
// indexed, so stale rows are superseded rather than accumulated.
func (s *System) IndexDocument(ctx context.Context, docID, text string, opts chunk.Options) (int, error) {
	if err := s.embedder.CheckCredential(); err != nil {
		return 0, err
	}

	chunks, err := chunk.FixedSize(text, opts)
	if err != nil {
		return 0, fmt.Errorf("chunking document %q: %w", docID, err)
	}
	if len(chunks) == 0 {
		return 0, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}

	embeddings, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return 0, fmt.Errorf("embedding document %q: %w", docID, err)
	}

	rows := make([]store.Row, len(chunks))
	for i, c := range chunks {
		rows[i] = store.Row{
			ID:        c.ID,
			DocID:     docID,
			Content:   c.Content,
			Embedding: embeddings[i],
			Metadata:  c.Metadata,
		}
	}

	if err := s.store.UpsertChunks(ctx, rows); err != nil {
		return 0, fmt.Errorf("storing document %q: %w", docID, err)
	}

	s.logger.Info("indexed document", "doc_id", docID, "chunks", len(rows))
	return len(rows), nil
}

// ReindexDocument deletes all existing rows for docID and indexes text in
// their place, so re-indexing supersedes earlier chunks.
func (s *System) ReindexDocument(ctx context.Context, docID, text string, opts chunk.Options) (int, error) {
	if err := s.embedder.CheckCredential(); err != nil {
		return 0, err
	}

	if err := s.store.DeleteDocChunks(ctx, docID); err != nil {
		return 0, fmt.Errorf("superseding document %q: %w", docID, err)
	}
	return s.IndexDocument(ctx, docID, text, opts)
}

// RemoveDocument deletes all chunks for docID. Idempotent.
func (s *System) RemoveDocument(ctx context.Context, docID string) error {
	return s.store.DeleteDocChunks(ctx, docID)
}

// CountChunks returns the total number of stored chunks.
func (s *System) CountChunks(ctx context.Context) (int64, error) {
	return s.store.CountChunks(ctx)
}
