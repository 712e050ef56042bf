// Package vectorstore implements the Vector Store concern of the Hybrid
// Retrieval Index (spec.md §4.4): a persistent collection keyed by chunk id
// storing a fixed-dimensional vector plus text and metadata.
//
// Grounded on the VectorStore interface shape in
// internal/persistence/databases/interfaces.go and the Qdrant-backed
// implementation in internal/persistence/databases/qdrant_vector.go.
package vectorstore

import "context"

// Result is one similarity-search hit.
type Result struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   map[string]any
	Distance   float64 // cosine distance, [0, 2]
}

// Similarity converts cosine distance to a similarity in [0, 1] (spec.md
// §4.4: "similarity = 1 - distance, clamped to [0,1]").
func (r Result) Similarity() float64 {
	s := 1 - r.Distance
	if s < 0 {
		return 0
	}
	if s > 1 {
		return 1
	}
	return s
}

// Record is one chunk's vector plus the payload returned on a hit.
type Record struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   map[string]any
	Vector     []float32
}

// Filter predicates restrict a query to chunks whose metadata passes.
type Filter func(metadata map[string]any) bool

// Store is the Vector Store interface (spec.md §4.4).
type Store interface {
	Add(ctx context.Context, records []Record) error
	Delete(ctx context.Context, chunkIDs []string) error
	Query(ctx context.Context, vector []float32, topK int, filter Filter) ([]Result, error)
	// Clear removes every record, used by Index.Compact to rebuild the
	// collection from the live chunk set instead of re-upserting on top
	// of whatever orphan postings remain (spec.md §4.4 "Optimization").
	Clear(ctx context.Context) error
}
