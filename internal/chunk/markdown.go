package chunk

import (
	"regexp"
	"strings"
)

// Markdown stripping patterns. This is a textual transform for common
// well-formed markup, not a parser; nested or malformed constructs are
// handled best-effort.
var (
	fencedCodeMarker = regexp.MustCompile("(?m)^[ \t]*```[^\n]*$")
	inlineCode       = regexp.MustCompile("`([^`]*)`")
	headingMarker    = regexp.MustCompile(`(?m)^#{1,6}[ \t]+`)
	boldMarker       = regexp.MustCompile(`\*\*([^*]+)\*\*|__([^_]+)__`)
	italicMarker     = regexp.MustCompile(`\*([^*]+)\*|_([^_]+)_`)
	imageMarkup      = regexp.MustCompile(`!\[([^\]]*)\]\([^)]*\)`)
	linkMarkup       = regexp.MustCompile(`\[([^\]]*)\]\([^)]*\)`)
	blockquoteMarker = regexp.MustCompile(`(?m)^[ \t]*>[ \t]?`)
	horizontalRule   = regexp.MustCompile(`(?m)^[ \t]*(-{3,}|\*{3,}|_{3,})[ \t]*$`)
	listMarker       = regexp.MustCompile(`(?m)^[ \t]*([-*+]|\d+\.)[ \t]+`)
	excessBlankLines = regexp.MustCompile(`\n{3,}`)
)

// MarkdownToText strips common markdown syntax, keeping the readable text.
// Code block contents survive with their fence markers removed; link and
// image markup collapses to the link text or alt text.
func MarkdownToText(md string) string {
	text := strings.ReplaceAll(md, "\r\n", "\n")

	text = fencedCodeMarker.ReplaceAllString(text, "")
	text = imageMarkup.ReplaceAllString(text, "$1")
	text = linkMarkup.ReplaceAllString(text, "$1")
	text = horizontalRule.ReplaceAllString(text, "")
	text = headingMarker.ReplaceAllString(text, "")
	text = blockquoteMarker.ReplaceAllString(text, "")
	text = listMarker.ReplaceAllString(text, "")
	text = boldMarker.ReplaceAllString(text, "$1$2")
	text = italicMarker.ReplaceAllString(text, "$1$2")
	text = inlineCode.ReplaceAllString(text, "$1")

	// Collapse runs of 3+ newlines to exactly one blank line.
	text = excessBlankLines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
