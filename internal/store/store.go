// Package store provides durable storage and nearest-neighbor retrieval of
// embedded chunks against PostgreSQL with the pgvector extension.
//
// The store exclusively owns persisted rows: readers (the query
// orchestrator) never mutate them. Every row carries a vector of identical
// length, enforced locally before any statement reaches the database.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pgvector/pgvector-go"

	"ragstore/internal/metadata"
)

var (
	// ErrStore indicates a failure from the relational store. Propagated
	// unchanged; a failed upsert is never reported as success.
	ErrStore = errors.New("vector store error")

	// ErrVectorLength indicates a vector whose length does not match the
	// store's configured dimensionality.
	ErrVectorLength = errors.New("vector length mismatch")
)

// statementTimeout bounds each statement so a slow vector scan cannot
// block callers indefinitely.
const statementTimeout = 10 * time.Second

// Row is the persisted, embedded form of a chunk.
type Row struct {
	ID        string
	DocID     string
	Content   string
	Embedding []float32
	Metadata  metadata.Map
}

// SimilarChunk is a query-time result. Distance is cosine distance:
// 0 means identical direction and larger means less similar, so lower
// is better.
type SimilarChunk struct {
	ID       string
	DocID    string
	Content  string
	Metadata metadata.Map
	Distance float64
}

// DB is the database surface the store needs. *pgxpool.Pool satisfies it;
// tests provide mocks.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults
}

// Store persists chunk rows and answers similarity queries.
// Safe for concurrent use; each call is a self-contained statement or a
// single batch, never a long-lived transaction.
type Store struct {
	db     DB
	dims   int
	logger *slog.Logger
}

// New creates a Store expecting vectors of the given dimensionality.
func New(db DB, dims int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		db:     db,
		dims:   dims,
		logger: logger,
	}
}

// Dimensions returns the configured vector length.
func (s *Store) Dimensions() int { return s.dims }

const upsertChunkSQL = `
INSERT INTO chunks (id, doc_id, content, embedding, metadata)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
    doc_id     = EXCLUDED.doc_id,
    content    = EXCLUDED.content,
    embedding  = EXCLUDED.embedding,
    metadata   = EXCLUDED.metadata,
    created_at = now()`

// UpsertChunks writes rows keyed on id, overwriting all non-key columns and
// refreshing created_at on conflict. Rows are queued into one batch and
// applied in the order given, so a later write to the same id within the
// call wins. Empty input is a no-op.
//
// The first failing row aborts the batch and is reported; partial success
// is never silent.
func (s *Store) UpsertChunks(ctx context.Context, rows []Row) error {
	if len(rows) == 0 {
		return nil
	}

	for _, row := range rows {
		if len(row.Embedding) != s.dims {
			return fmt.Errorf("%w: chunk %q has %d dimensions, store expects %d",
				ErrVectorLength, row.ID, len(row.Embedding), s.dims)
		}
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		metadataJSON, err := marshalMetadata(row.Metadata)
		if err != nil {
			return fmt.Errorf("%w: marshaling metadata for chunk %q: %w", ErrStore, row.ID, err)
		}
		vec := pgvector.NewVector(row.Embedding)
		batch.Queue(upsertChunkSQL, row.ID, row.DocID, row.Content, vec, metadataJSON)
	}

	batchCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	results := s.db.SendBatch(batchCtx, batch)
	for i := range rows {
		if _, err := results.Exec(); err != nil {
			_ = results.Close()
			return fmt.Errorf("%w: upserting chunk %q: %w", ErrStore, rows[i].ID, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("%w: closing upsert batch: %w", ErrStore, err)
	}

	s.logger.Debug("upserted chunks", "count", len(rows), "doc_id", rows[0].DocID)
	return nil
}

const querySimilarSQL = `
SELECT id, doc_id, content, metadata, embedding <=> $1 AS distance
FROM chunks
ORDER BY distance
LIMIT $2`

// QuerySimilar returns the k rows closest to embedding by cosine distance,
// most similar first. k is not clamped: callers supply a positive k.
func (s *Store) QuerySimilar(ctx context.Context, embedding []float32, k int) ([]SimilarChunk, error) {
	if len(embedding) != s.dims {
		return nil, fmt.Errorf("%w: query vector has %d dimensions, store expects %d",
			ErrVectorLength, len(embedding), s.dims)
	}

	queryCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	rows, err := s.db.Query(queryCtx, querySimilarSQL, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("%w: similarity query: %w", ErrStore, err)
	}
	defer rows.Close()

	var results []SimilarChunk
	for rows.Next() {
		var (
			chunk        SimilarChunk
			metadataJSON []byte
		)
		if err := rows.Scan(&chunk.ID, &chunk.DocID, &chunk.Content, &metadataJSON, &chunk.Distance); err != nil {
			return nil, fmt.Errorf("%w: scanning result row: %w", ErrStore, err)
		}
		chunk.Metadata = s.parseMetadata(chunk.ID, metadataJSON)
		results = append(results, chunk)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading result rows: %w", ErrStore, err)
	}

	return results, nil
}

// DeleteDocChunks removes all rows for the given document. Idempotent:
// deleting an unknown docID succeeds with zero effect.
func (s *Store) DeleteDocChunks(ctx context.Context, docID string) error {
	execCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	tag, err := s.db.Exec(execCtx, `DELETE FROM chunks WHERE doc_id = $1`, docID)
	if err != nil {
		return fmt.Errorf("%w: deleting chunks for document %q: %w", ErrStore, docID, err)
	}

	s.logger.Debug("deleted document chunks", "doc_id", docID, "rows", tag.RowsAffected())
	return nil
}

// CountChunks returns the total row count across all documents.
func (s *Store) CountChunks(ctx context.Context) (int64, error) {
	queryCtx, cancel := context.WithTimeout(ctx, statementTimeout)
	defer cancel()

	var count int64
	if err := s.db.QueryRow(queryCtx, `SELECT COUNT(*) FROM chunks`).Scan(&count); err != nil {
		return 0, fmt.Errorf("%w: counting chunks: %w", ErrStore, err)
	}
	return count, nil
}

// marshalMetadata serializes metadata for the json column; an empty map
// stores as NULL.
func marshalMetadata(m metadata.Map) ([]byte, error) {
	if m.Len() == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

// parseMetadata deserializes the json column, degrading to an empty map
// on malformed data rather than failing the whole query.
func (s *Store) parseMetadata(chunkID string, data []byte) metadata.Map {
	var m metadata.Map
	if len(data) == 0 {
		return m
	}
	if err := json.Unmarshal(data, &m); err != nil {
		s.logger.Warn("failed to parse chunk metadata", "chunk_id", chunkID, "error", err)
		return metadata.Map{}
	}
	return m
}
