// Package retrieval implements the Hybrid Retrieval Index (spec.md §4.4):
// document/chunk storage, vector + keyword search fused into a single
// scored result set, versioning with rollback, and compaction.
package retrieval

import "time"

// SourceType is the closed set of document origins (spec.md §3).
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceText SourceType = "text"
	SourceURL  SourceType = "url"
)

// VersionSnapshot is one prior version's frozen content (spec.md §3
// "previous_versions").
type VersionSnapshot struct {
	Version   int
	Content   string
	Metadata  map[string]any
	Timestamp time.Time
}

// Document is ingested content (spec.md §3).
type Document struct {
	ID                string
	SourceType        SourceType
	SourceName        string
	Content           string
	Metadata          map[string]any
	Version           int
	PreviousVersions  []VersionSnapshot
	ChunkIDs          []string
}

// Chunk is a substring of a Document's content (spec.md §3).
type Chunk struct {
	ID         string
	DocumentID string
	Content    string
	Metadata   map[string]any // includes chunk_index, chunk_count
}

// SearchType tags which retrieval path(s) produced a result (spec.md §4.4
// step 4: "Mark search_type=hybrid on chunks present in both sets").
type SearchType string

const (
	SearchSemantic SearchType = "semantic"
	SearchKeyword  SearchType = "keyword"
	SearchHybrid   SearchType = "hybrid"
)

// SearchResult is one ranked hit from search() (spec.md §4.4 step 5).
type SearchResult struct {
	ChunkID    string
	DocumentID string
	Content    string
	Metadata   map[string]any
	Score      float64
	SearchType SearchType
}
