package rag

import (
	"context"
	"testing"
)

// fakeEmbedder maps known texts to preset vectors. Unknown texts embed
// to the zero vector, which searches at maximum distance.
type fakeEmbedder struct {
	vecs map[string][]float32
	dim  int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vecs[text]; ok {
		return v, nil
	}
	return make([]float32, f.dim), nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		v, err := f.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func (f *fakeEmbedder) Dimension() int { return f.dim }

const (
	chunkBreathing = "box breathing calms the nervous system"
	chunkSleep     = "good sleep hygiene starts with a fixed routine"
	queryCalm      = "how do I calm down"
)

func wellnessEmbedder() *fakeEmbedder {
	return &fakeEmbedder{
		dim: 4,
		vecs: map[string][]float32{
			chunkBreathing: {1, 0, 0, 0},
			chunkSleep:     {0, 1, 0, 0},
			queryCalm:      {0.95, 0.05, 0, 0},
		},
	}
}

func openTestKB(t *testing.T) *Store {
	t.Helper()
	s, err := OpenStore("", wellnessEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestStoreAddAndSearch(t *testing.T) {
	kb := openTestKB(t)

	n, err := kb.AddChunks(context.Background(), "calm.txt", []string{chunkBreathing, chunkSleep})
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 {
		t.Fatalf("AddChunks = %d, want 2", n)
	}
	if kb.Len() != 2 {
		t.Fatalf("Len = %d, want 2", kb.Len())
	}

	hits, err := kb.Search(context.Background(), queryCalm, DefaultTopK)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit above threshold, got %d: %v", len(hits), hits)
	}
	if hits[0].Text != chunkBreathing {
		t.Errorf("hit text = %q, want breathing chunk", hits[0].Text)
	}
	if hits[0].Source != "calm.txt" {
		t.Errorf("hit source = %q, want calm.txt", hits[0].Source)
	}
	if hits[0].Score < SearchThreshold {
		t.Errorf("hit score = %f, below threshold", hits[0].Score)
	}
}

func TestStoreSearchFiltersLowScores(t *testing.T) {
	kb := openTestKB(t)
	if _, err := kb.AddChunks(context.Background(), "calm.txt", []string{chunkBreathing}); err != nil {
		t.Fatal(err)
	}

	// Unknown queries embed to the zero vector: nothing should clear
	// the similarity threshold.
	hits, err := kb.Search(context.Background(), "completely unrelated", DefaultTopK)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits, got %v", hits)
	}
}

func TestStoreReingestReplaces(t *testing.T) {
	kb := openTestKB(t)
	for range 2 {
		if _, err := kb.AddChunks(context.Background(), "calm.txt", []string{chunkBreathing, chunkSleep}); err != nil {
			t.Fatal(err)
		}
	}
	if kb.Len() != 2 {
		t.Errorf("re-ingesting the same source should replace, Len = %d, want 2", kb.Len())
	}
}

func TestStoreAddNothing(t *testing.T) {
	kb := openTestKB(t)
	n, err := kb.AddChunks(context.Background(), "empty.txt", nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || kb.Len() != 0 {
		t.Errorf("empty add stored something: n=%d len=%d", n, kb.Len())
	}
}

func TestStoreDrop(t *testing.T) {
	kb := openTestKB(t)
	if _, err := kb.AddChunks(context.Background(), "calm.txt", []string{chunkBreathing}); err != nil {
		t.Fatal(err)
	}
	if err := kb.Drop(); err != nil {
		t.Fatal(err)
	}
	if kb.Len() != 0 {
		t.Fatalf("Len after drop = %d, want 0", kb.Len())
	}
	hits, err := kb.Search(context.Background(), queryCalm, DefaultTopK)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("expected no hits after drop, got %v", hits)
	}
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()

	kb, err := OpenStore(dir, wellnessEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	if _, err := kb.AddChunks(context.Background(), "calm.txt", []string{chunkBreathing, chunkSleep}); err != nil {
		t.Fatal(err)
	}
	if err := kb.Close(); err != nil {
		t.Fatal(err)
	}

	kb, err = OpenStore(dir, wellnessEmbedder())
	if err != nil {
		t.Fatal(err)
	}
	defer kb.Close()

	if kb.Len() != 2 {
		t.Fatalf("Len after reopen = %d, want 2", kb.Len())
	}
	hits, err := kb.Search(context.Background(), queryCalm, DefaultTopK)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 1 || hits[0].Text != chunkBreathing {
		t.Errorf("search after reopen = %v, want breathing chunk", hits)
	}
}
