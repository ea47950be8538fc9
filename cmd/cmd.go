// Package cmd provides the ragstore CLI commands.
//
// Commands:
//   - index: chunk, embed and store a document
//   - query: retrieve the most similar chunks for a question
//   - remove: delete a document's chunks
//   - stats: show store totals
//   - migrate: apply pending schema migrations
//
// All database-touching commands handle SIGINT/SIGTERM via context
// cancellation.
package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"ragstore/internal/log"
)

// Execute is the main entry point for the ragstore CLI.
func Execute() error {
	// Initialize logger once at entry point
	level := slog.LevelInfo
	if os.Getenv("DEBUG") != "" {
		level = slog.LevelDebug
	}
	slog.SetDefault(log.New(log.Config{Level: level}))

	if len(os.Args) < 2 {
		runHelp()
		return nil
	}

	switch os.Args[1] {
	case "index":
		return runIndex(os.Args[2:])
	case "query":
		return runQuery(os.Args[2:])
	case "remove":
		return runRemove(os.Args[2:])
	case "stats":
		return runStats()
	case "migrate":
		return runMigrate()
	case "version", "--version", "-v":
		runVersion()
		return nil
	case "help", "--help", "-h":
		runHelp()
		return nil
	default:
		return fmt.Errorf("unknown command: %s", os.Args[1])
	}
}

// runHelp displays the help message.
func runHelp() {
	fmt.Println("ragstore - Document retrieval over PostgreSQL and pgvector")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  ragstore index <doc-id> <file>   Chunk, embed and store a document")
	fmt.Println("  ragstore query [-k N] <text>     Retrieve the most similar chunks")
	fmt.Println("  ragstore remove <doc-id>         Delete a document's chunks")
	fmt.Println("  ragstore stats                   Show store totals")
	fmt.Println("  ragstore migrate                 Apply pending schema migrations")
	fmt.Println("  ragstore --version               Show version information")
	fmt.Println("  ragstore --help                  Show this help")
	fmt.Println()
	fmt.Println("Environment Variables:")
	fmt.Println("  GEMINI_API_KEY     Required for index and query: Gemini API key")
	fmt.Println("  DATABASE_URL       Optional: overrides postgres_* config values")
	fmt.Println("  DEBUG              Optional: Enable debug logging")
}
