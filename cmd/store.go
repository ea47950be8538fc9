package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"ragstore/db"
	"ragstore/internal/app"
	"ragstore/internal/config"
)

// runRemove deletes all chunks for one document.
func runRemove(args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("usage: ragstore remove <doc-id>")
	}
	docID := args[0]

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := app.New(ctx, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer cleanup()

	if err := a.System.RemoveDocument(ctx, docID); err != nil {
		return fmt.Errorf("removing %q: %w", docID, err)
	}

	fmt.Printf("Removed %q\n", docID)
	return nil
}

// runStats prints store totals.
func runStats() error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	a, cleanup, err := app.New(ctx, slog.Default())
	if err != nil {
		return fmt.Errorf("initializing application: %w", err)
	}
	defer cleanup()

	count, err := a.System.CountChunks(ctx)
	if err != nil {
		return fmt.Errorf("counting chunks: %w", err)
	}

	fmt.Printf("Chunks:     %d\n", count)
	fmt.Printf("Dimensions: %d\n", a.Config.EmbedDims)
	fmt.Printf("Model:      %s\n", a.Config.EmbedderModel)
	return nil
}

// runMigrate applies pending schema migrations without assembling the rest
// of the application.
func runMigrate() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	if err := db.Migrate(cfg.PostgresURL()); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	fmt.Println("Migrations applied.")
	return nil
}
