// Package chunk provides deterministic, overlapping segmentation of text
// into bounded chunks, plus lightweight markup stripping.
//
// Chunking is pure and CPU-only: the same input and options always produce
// the same chunk boundaries and content. Chunk IDs are fresh UUIDv7 values
// on every call (time-ordered and lexicographically sortable), never derived
// from content.
package chunk

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"

	"ragstore/internal/metadata"
)

// ErrInvalidConfig indicates chunking options violate their preconditions.
// Checked with errors.Is(); never retried.
var ErrInvalidConfig = errors.New("invalid chunk configuration")

// Default chunking parameters.
const (
	DefaultSize    = 800
	DefaultOverlap = 200
)

// Options configures FixedSize chunking.
type Options struct {
	// Size is the window width in runes. Must be > 0.
	Size int

	// Overlap is the number of runes shared between consecutive windows.
	// Must satisfy 0 <= Overlap < Size.
	Overlap int

	// Source is an optional label for the originating document, recorded
	// in each chunk's metadata.
	Source string
}

// Chunk is a bounded, position-tagged segment of source text.
// Chunks are immutable after creation; re-chunking a changed document
// supersedes earlier chunks rather than updating them.
type Chunk struct {
	ID       string
	Content  string
	Metadata metadata.Map
}

// FixedSize segments text into overlapping chunks of at most opts.Size runes.
//
// The input is trimmed first; an empty input yields no chunks. A window of
// width Size walks the trimmed text with a step of Size-Overlap. Each
// window's slice is trimmed and, when non-empty, emitted with its zero-based
// order and the window's rune offset into the trimmed text.
//
// After advancing, the walk stops early when the untraversed remainder is
// shorter than Overlap: a final window there would contain almost nothing
// but re-covered text, so up to Overlap-1 trailing runes are dropped
// instead of emitting a near-duplicate tail chunk.
func FixedSize(text string, opts Options) ([]Chunk, error) {
	if opts.Size <= 0 {
		return nil, fmt.Errorf("%w: size must be positive, got %d", ErrInvalidConfig, opts.Size)
	}
	if opts.Overlap < 0 || opts.Overlap >= opts.Size {
		return nil, fmt.Errorf("%w: overlap must be in [0, size), got overlap=%d size=%d",
			ErrInvalidConfig, opts.Overlap, opts.Size)
	}

	trimmed := []rune(strings.TrimSpace(text))
	n := len(trimmed)
	if n == 0 {
		return nil, nil
	}

	step := opts.Size - opts.Overlap
	var chunks []Chunk
	order := 0

	for start := 0; start < n; start += step {
		end := start + opts.Size
		if end > n {
			end = n
		}

		content := strings.TrimSpace(string(trimmed[start:end]))
		if content != "" {
			var meta metadata.Map
			if opts.Source != "" {
				meta.Set("source", metadata.String(opts.Source))
			}
			meta.Set("order", metadata.Int(order))
			meta.Set("charOffset", metadata.Int(start))
			meta.Set("originalLength", metadata.Int(n))

			chunks = append(chunks, Chunk{
				ID:       uuid.Must(uuid.NewV7()).String(),
				Content:  content,
				Metadata: meta,
			})
			order++
		}

		// Early stop: the next window would add fewer than Overlap new runes.
		if n-(start+step) < opts.Overlap {
			break
		}
	}

	return chunks, nil
}

// blankLine matches one or more blank lines, including lines holding only
// whitespace.
var blankLine = regexp.MustCompile(`\n[ \t]*\n(?:[ \t]*\n)*`)

// SplitParagraphs splits text on blank-line boundaries, trims each piece,
// and drops empty pieces.
func SplitParagraphs(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")

	var paragraphs []string
	for _, piece := range blankLine.Split(normalized, -1) {
		piece = strings.TrimSpace(piece)
		if piece != "" {
			paragraphs = append(paragraphs, piece)
		}
	}
	return paragraphs
}
