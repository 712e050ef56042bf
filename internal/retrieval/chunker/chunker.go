// Package chunker splits document content into overlapping, deterministic
// chunks (spec.md §4.4 "Document Processor").
//
// Grounded on the fixed-window strategy of
// internal/rag/chunker/chunker.go's fixedChunk, adapted to operate directly
// in characters (spec.md's chunk_size/chunk_overlap are character counts,
// not the token-heuristic the teacher's rag pipeline used).
package chunker

import "strings"

// Chunk is one produced span of a document's content.
type Chunk struct {
	Index int
	Text  string
}

// Split partitions text into chunks of approximately size characters with
// overlap characters shared between adjacent chunks, preferring to cut at a
// whitespace boundary within the back half of the window so words are not
// split mid-token (spec.md §4.4: "prefers paragraph and sentence boundaries
// ... otherwise cuts at the character boundary").
func Split(text string, size, overlap int) []Chunk {
	if size < 1 {
		size = 1000
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size - 1
	}

	var out []Chunk
	start := 0
	idx := 0
	for start < len(text) {
		end := start + size
		if end > len(text) {
			end = len(text)
		} else if cut := preferredBoundary(text, start, end, size); cut > start {
			end = cut
		}

		s := strings.TrimSpace(text[start:end])
		if s != "" {
			out = append(out, Chunk{Index: idx, Text: s})
			idx++
		}
		if end >= len(text) {
			break
		}

		next := end - overlap
		if next <= start {
			next = end
		}
		start = next
	}
	return out
}

// preferredBoundary looks for the last paragraph break, then sentence-ending
// punctuation, then whitespace within the back half of [start,end). Returns
// start if none is found close enough to be worth preferring.
func preferredBoundary(text string, start, end, size int) int {
	window := text[start:end]
	tolerance := size / 2

	if i := strings.LastIndex(window, "\n\n"); i > tolerance {
		return start + i + 2
	}
	for _, sep := range []string{". ", "! ", "? "} {
		if i := strings.LastIndex(window, sep); i > tolerance {
			return start + i + len(sep)
		}
	}
	if i := strings.LastIndex(window, " "); i > tolerance {
		return start + i
	}
	return start
}
