package rag

import (
	"fmt"
	"math"
	"sort"
	"sync"
)

// Match is a single nearest-neighbor result.
type Match struct {
	ID       string
	Distance float32
}

// Index is an in-memory vector index using brute-force cosine distance.
// Fine for a few thousand chunks, which is what a local knowledge base
// holds. Safe for concurrent use.
type Index struct {
	mu      sync.RWMutex
	vectors map[string][]float32
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{vectors: make(map[string][]float32)}
}

// Insert adds or replaces a vector.
func (x *Index) Insert(id string, vector []float32) {
	cp := make([]float32, len(vector))
	copy(cp, vector)
	x.mu.Lock()
	x.vectors[id] = cp
	x.mu.Unlock()
}

// BatchInsert adds or replaces many vectors at once.
func (x *Index) BatchInsert(ids []string, vectors [][]float32) error {
	if len(ids) != len(vectors) {
		return fmt.Errorf("rag: BatchInsert length mismatch: %d ids, %d vectors", len(ids), len(vectors))
	}
	x.mu.Lock()
	defer x.mu.Unlock()
	for i, id := range ids {
		cp := make([]float32, len(vectors[i]))
		copy(cp, vectors[i])
		x.vectors[id] = cp
	}
	return nil
}

// Search returns up to topK matches ordered by ascending distance.
func (x *Index) Search(query []float32, topK int) []Match {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if len(x.vectors) == 0 || topK <= 0 {
		return nil
	}

	results := make([]Match, 0, len(x.vectors))
	for id, vec := range x.vectors {
		results = append(results, Match{ID: id, Distance: CosineDistance(query, vec)})
	}
	sort.Slice(results, func(i, j int) bool {
		return results[i].Distance < results[j].Distance
	})
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

// Delete removes a vector. Unknown ids are a no-op.
func (x *Index) Delete(id string) {
	x.mu.Lock()
	delete(x.vectors, id)
	x.mu.Unlock()
}

// Len returns the number of stored vectors.
func (x *Index) Len() int {
	x.mu.RLock()
	defer x.mu.RUnlock()
	return len(x.vectors)
}

// CosineDistance computes the cosine distance between two vectors:
// 0 for identical direction, 2 for opposite. Mismatched dimensions and
// zero-norm vectors report maximum distance.
func CosineDistance(a, b []float32) float32 {
	if len(a) != len(b) {
		return 2
	}
	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	similarity := dot / (math.Sqrt(normA) * math.Sqrt(normB))
	// Clamp against floating point drift.
	if similarity > 1 {
		similarity = 1
	}
	if similarity < -1 {
		similarity = -1
	}
	return float32(1 - similarity)
}
