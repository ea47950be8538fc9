package cmd

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// captureStdout runs fn and returns what it printed.
func captureStdout(t *testing.T, fn func()) string {
	t.Helper()

	oldStdout := os.Stdout
	r, w, err := os.Pipe()
	if err != nil {
		t.Fatalf("creating pipe: %v", err)
	}
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = oldStdout

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

func TestRunHelp(t *testing.T) {
	output := captureStdout(t, runHelp)

	expected := []string{
		"ragstore index",
		"ragstore query",
		"ragstore remove",
		"ragstore stats",
		"ragstore migrate",
		"GEMINI_API_KEY",
		"DATABASE_URL",
	}
	for _, want := range expected {
		if !strings.Contains(output, want) {
			t.Errorf("help output missing %q", want)
		}
	}
}

func TestRunVersion(t *testing.T) {
	output := captureStdout(t, runVersion)

	for _, want := range []string{"ragstore", "Build Time:", "Git Commit:"} {
		if !strings.Contains(output, want) {
			t.Errorf("version output missing %q\nGot: %s", want, output)
		}
	}
}

func TestParseQueryArgs(t *testing.T) {
	tests := []struct {
		name      string
		args      []string
		wantQuery string
		wantK     int
		wantErr   bool
	}{
		{
			name:      "plain query",
			args:      []string{"what", "is", "pgvector"},
			wantQuery: "what is pgvector",
			wantK:     0,
		},
		{
			name:      "with k flag",
			args:      []string{"-k", "5", "how", "to", "index"},
			wantQuery: "how to index",
			wantK:     5,
		},
		{
			name:    "empty query",
			args:    []string{},
			wantErr: true,
		},
		{
			name:    "flag only",
			args:    []string{"-k", "3"},
			wantErr: true,
		},
		{
			name:    "bad flag value",
			args:    []string{"-k", "three", "query"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, k, err := parseQueryArgs(tt.args)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("parseQueryArgs(%v) succeeded, want error", tt.args)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseQueryArgs(%v) error: %v", tt.args, err)
			}
			if query != tt.wantQuery || k != tt.wantK {
				t.Errorf("parseQueryArgs(%v) = (%q, %d), want (%q, %d)",
					tt.args, query, k, tt.wantQuery, tt.wantK)
			}
		})
	}
}

func TestLoadDocument(t *testing.T) {
	dir := t.TempDir()

	txtPath := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(txtPath, []byte("# not a heading in txt"), 0o600); err != nil {
		t.Fatal(err)
	}
	mdPath := filepath.Join(dir, "notes.md")
	if err := os.WriteFile(mdPath, []byte("# Heading\n\nSome **bold** text."), 0o600); err != nil {
		t.Fatal(err)
	}

	text, err := loadDocument(txtPath)
	if err != nil {
		t.Fatalf("loadDocument(txt) error: %v", err)
	}
	// Plain text passes through untouched.
	if text != "# not a heading in txt" {
		t.Errorf("txt content altered: %q", text)
	}

	text, err = loadDocument(mdPath)
	if err != nil {
		t.Fatalf("loadDocument(md) error: %v", err)
	}
	if strings.Contains(text, "#") || strings.Contains(text, "**") {
		t.Errorf("markdown markers survived conversion: %q", text)
	}
	if !strings.Contains(text, "Heading") || !strings.Contains(text, "bold") {
		t.Errorf("markdown content lost: %q", text)
	}
}

func TestLoadDocumentMissingFile(t *testing.T) {
	if _, err := loadDocument(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Fatal("loadDocument() succeeded on a missing file")
	}
}

func TestIndent(t *testing.T) {
	got := indent("a\nb", "  ")
	if got != "  a\n  b" {
		t.Errorf("indent() = %q", got)
	}
}
