package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"ragstore/internal/app"
	"ragstore/internal/chunk"
)

// runIndex chunks, embeds and stores one document. Re-indexing an existing
// doc-id replaces its chunks.
func runIndex(args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("usage: ragstore index <doc-id> <file>")
	}
	docID, path := args[0], args[1]

	text, err := loadDocument(path)
	if err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := app.New(ctx, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer cleanup()

	count, err := a.System.ReindexDocument(ctx, docID, text, a.ChunkOptions(filepath.Base(path)))
	if err != nil {
		return fmt.Errorf("indexing %q: %w", docID, err)
	}

	fmt.Printf("Indexed %q: %d chunks\n", docID, count)
	return nil
}

// loadDocument reads a document and converts markdown files to plain text,
// so heading markers and link targets do not pollute the embeddings.
func loadDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("reading document: %w", err)
	}

	text := string(data)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		text = chunk.MarkdownToText(text)
	}
	return text, nil
}
