package cmd

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os/signal"
	"strings"
	"syscall"

	"ragstore/internal/app"
)

// parseQueryArgs parses the query command line: an optional -k flag and the
// query text from the remaining arguments.
func parseQueryArgs(args []string) (query string, k int, err error) {
	fs := flag.NewFlagSet("query", flag.ContinueOnError)
	kFlag := fs.Int("k", 0, "number of results (default from config)")
	if err := fs.Parse(args); err != nil {
		return "", 0, err
	}

	query = strings.TrimSpace(strings.Join(fs.Args(), " "))
	if query == "" {
		return "", 0, fmt.Errorf("usage: ragstore query [-k N] <text>")
	}
	return query, *kFlag, nil
}

// runQuery embeds the question and prints the most similar chunks.
func runQuery(args []string) error {
	query, k, err := parseQueryArgs(args)
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

	if k <= 0 {
		k = a.Config.TopK
	}

	results, err := a.System.Query(ctx, query, k)
	if err != nil {
		return fmt.Errorf("querying: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, r := range results {
		fmt.Printf("%d. [%.4f] %s\n", i+1, r.Score, r.ID)
		fmt.Println(indent(r.Content, "   "))
	}
	return nil
}

// indent prefixes every line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = prefix + line
	}
	return strings.Join(lines, "\n")
}
