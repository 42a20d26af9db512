package rag

import "testing"

func TestIndexInsertAndSearch(t *testing.T) {
	idx := NewIndex()

	idx.Insert("a", []float32{1, 0, 0, 0})
	idx.Insert("b", []float32{0, 1, 0, 0})
	idx.Insert("c", []float32{0.9, 0.1, 0, 0})

	matches := idx.Search([]float32{1, 0, 0, 0}, 2)
	if len(matches) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matches))
	}
	if matches[0].ID != "a" {
		t.Errorf("top match = %q, want 'a'", matches[0].ID)
	}
	if matches[1].ID != "c" {
		t.Errorf("second match = %q, want 'c'", matches[1].ID)
	}
}

func TestIndexBatchInsert(t *testing.T) {
	idx := NewIndex()
	ids := []string{"a", "b", "c"}
	vecs := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0, 1},
	}
	if err := idx.BatchInsert(ids, vecs); err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Errorf("Len = %d, want 3", idx.Len())
	}
	matches := idx.Search([]float32{0, 0, 1}, 1)
	if len(matches) != 1 || matches[0].ID != "c" {
		t.Errorf("expected match 'c', got %v", matches)
	}
}

func TestIndexBatchInsertMismatch(t *testing.T) {
	idx := NewIndex()
	if err := idx.BatchInsert([]string{"a", "b"}, [][]float32{{1}}); err == nil {
		t.Fatal("expected error for mismatched lengths")
	}
}

func TestIndexInsertReplaces(t *testing.T) {
	idx := NewIndex()
	idx.Insert("a", []float32{1, 0})
	idx.Insert("a", []float32{0, 1})
	if idx.Len() != 1 {
		t.Fatalf("Len = %d, want 1", idx.Len())
	}
	matches := idx.Search([]float32{0, 1}, 1)
	if matches[0].Distance > 0.001 {
		t.Errorf("replaced vector should match exactly, distance = %f", matches[0].Distance)
	}
}

func TestIndexDelete(t *testing.T) {
	idx := NewIndex()
	idx.Insert("a", []float32{1, 0})
	idx.Delete("a")
	idx.Delete("nonexistent")
	if idx.Len() != 0 {
		t.Errorf("Len after delete = %d, want 0", idx.Len())
	}
}

func TestIndexSearchEmpty(t *testing.T) {
	idx := NewIndex()
	if matches := idx.Search([]float32{1, 0, 0}, 5); matches != nil {
		t.Errorf("expected nil for empty index, got %v", matches)
	}
}

func TestCosineDistance(t *testing.T) {
	tests := []struct {
		name string
		a, b []float32
		want float32
	}{
		{"identical", []float32{1, 0, 0}, []float32{1, 0, 0}, 0},
		{"orthogonal", []float32{1, 0, 0}, []float32{0, 1, 0}, 1},
		{"opposite", []float32{1, 0, 0}, []float32{-1, 0, 0}, 2},
		{"similar", []float32{1, 0.1, 0}, []float32{1, 0, 0}, 0.005},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := CosineDistance(tt.a, tt.b)
			if diff := got - tt.want; diff > 0.01 || diff < -0.01 {
				t.Errorf("CosineDistance = %f, want ~%f", got, tt.want)
			}
		})
	}
}

func TestCosineDistanceEdgeCases(t *testing.T) {
	if d := CosineDistance([]float32{1, 0}, []float32{1, 0, 0}); d != 2 {
		t.Errorf("dimension mismatch: got %f, want 2", d)
	}
	if d := CosineDistance([]float32{0, 0, 0}, []float32{1, 0, 0}); d != 2 {
		t.Errorf("zero vector: got %f, want 2", d)
	}
}
