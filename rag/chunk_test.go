package rag

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestChunkTextShortInput(t *testing.T) {
	chunks := ChunkText("hello world", 500, 50)
	if len(chunks) != 1 || chunks[0] != "hello world" {
		t.Fatalf("expected single chunk, got %v", chunks)
	}
}

func TestChunkTextOverlap(t *testing.T) {
	text := strings.Repeat("a", 80) + strings.Repeat("b", 80)
	chunks := ChunkText(text, 100, 20)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	// Second window starts at 80, so it re-covers the last 20 runes of
	// the first.
	if chunks[0][80:] != chunks[1][:20] {
		t.Errorf("second chunk should re-cover the first's tail, got %q...", chunks[1][:25])
	}
	if len(chunks[0]) != 100 || len(chunks[1]) != 80 {
		t.Errorf("chunk lengths = %d, %d; want 100, 80", len(chunks[0]), len(chunks[1]))
	}
}

func TestChunkTextTrimsAndSkipsEmpty(t *testing.T) {
	text := strings.Repeat(" ", 100) + "content"
	chunks := ChunkText(text, 100, 0)
	if len(chunks) != 1 || chunks[0] != "content" {
		t.Fatalf("expected whitespace window skipped, got %v", chunks)
	}
}

func TestChunkTextEmptyInput(t *testing.T) {
	if chunks := ChunkText("", 500, 50); chunks != nil {
		t.Errorf("expected nil for empty text, got %v", chunks)
	}
	if chunks := ChunkText("text", 0, 0); chunks != nil {
		t.Errorf("expected nil for zero size, got %v", chunks)
	}
}

func TestChunkTextOverlapBounds(t *testing.T) {
	// Overlap >= size would never advance; it degrades to no overlap.
	text := strings.Repeat("x", 30)
	chunks := ChunkText(text, 10, 10)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}
}

func TestChunkTextRuneBoundaries(t *testing.T) {
	// Windows count runes, not bytes; multibyte text must stay valid.
	text := strings.Repeat("日本語テキスト", 10)
	chunks := ChunkText(text, 25, 5)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks of 60 runes at size 25 step 20, got %d", len(chunks))
	}
	for i, c := range chunks {
		if !utf8.ValidString(c) {
			t.Errorf("chunk %d is not valid UTF-8: %q", i, c)
		}
	}
}
