package retrieval

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"

	"execteam/internal/coreerr"
	"execteam/internal/retrieval/chunker"
	"execteam/internal/retrieval/embedcache"
	"execteam/internal/retrieval/keywordindex"
	"execteam/internal/retrieval/vectorstore"
)

// Embedder is the subset of embedclient.Client the Index depends on.
type Embedder interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// KeywordStore is the keyword-index backend contract: either the in-process
// keywordindex.Index (via memoryKeywordAdapter) or keywordindex.Postgres.
type KeywordStore interface {
	Add(ctx context.Context, chunkID, text string) error
	Remove(ctx context.Context, chunkID string) error
	Query(ctx context.Context, tokens []string) ([]keywordindex.Hit, error)
	// Clear removes every posting, used by Index.Compact to rebuild from
	// the live chunk set instead of re-upserting over stale entries.
	Clear(ctx context.Context) error
}

// memoryKeywordAdapter adapts the synchronous keywordindex.Index to
// KeywordStore.
type memoryKeywordAdapter struct{ idx *keywordindex.Index }

// NewMemoryKeywordStore wraps an in-process inverted index as a KeywordStore.
func NewMemoryKeywordStore(idx *keywordindex.Index) KeywordStore {
	return memoryKeywordAdapter{idx: idx}
}

func (a memoryKeywordAdapter) Add(ctx context.Context, chunkID, text string) error {
	a.idx.Add(chunkID, text)
	return nil
}

func (a memoryKeywordAdapter) Remove(ctx context.Context, chunkID string) error {
	a.idx.Remove(chunkID)
	return nil
}

func (a memoryKeywordAdapter) Query(ctx context.Context, tokens []string) ([]keywordindex.Hit, error) {
	return a.idx.Query(tokens), nil
}

func (a memoryKeywordAdapter) Clear(ctx context.Context) error {
	a.idx.Clear()
	return nil
}

// Index is the Hybrid Retrieval Index (spec.md §4.4). Document/chunk
// bookkeeping is guarded by mu (read-many/write-one, spec.md §5); version
// persistence is additionally serialized by versionMu (single-writer).
type Index struct {
	mu        sync.RWMutex
	documents map[string]*Document
	chunks    map[string]Chunk   // chunk_id -> chunk, the live chunk set
	chunkIDs  map[string][]string // document_id -> ordered chunk ids

	vecStore vectorstore.Store
	kwStore  KeywordStore
	cache    *embedcache.Cache
	embedder Embedder

	chunkSize, chunkOverlap int

	versionMu  sync.Mutex
	persistDir string
}

// New constructs a Hybrid Retrieval Index. persistDir == "" disables
// version-log persistence.
func New(vecStore vectorstore.Store, kwStore KeywordStore, cache *embedcache.Cache, embedder Embedder, chunkSize, chunkOverlap int, persistDir string) *Index {
	return &Index{
		documents:     make(map[string]*Document),
		chunks:        make(map[string]Chunk),
		chunkIDs:      make(map[string][]string),
		vecStore:      vecStore,
		kwStore:       kwStore,
		cache:         cache,
		embedder:      embedder,
		chunkSize:     chunkSize,
		chunkOverlap:  chunkOverlap,
		persistDir:    persistDir,
	}
}

// AddDocumentInput bundles add_document's parameters.
type AddDocumentInput struct {
	SourceType SourceType
	SourceName string
	Content    string
	Metadata   map[string]any
}

// AddDocument chunks, embeds, and indexes content, storing a new Document at
// version 1.
func (idx *Index) AddDocument(ctx context.Context, in AddDocumentInput) (*Document, error) {
	doc := &Document{
		ID:         uuid.NewString(),
		SourceType: in.SourceType,
		SourceName: in.SourceName,
		Content:    in.Content,
		Metadata:   in.Metadata,
		Version:    1,
	}

	chunks, err := idx.chunkAndIndex(ctx, doc)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	idx.documents[doc.ID] = doc
	doc.ChunkIDs = chunkIDsOf(chunks)
	idx.chunkIDs[doc.ID] = doc.ChunkIDs
	for _, c := range chunks {
		idx.chunks[c.ID] = c
	}
	idx.mu.Unlock()

	if err := idx.persistVersionSnapshot(doc); err != nil {
		return nil, err
	}
	return idx.cloneDoc(doc), nil
}

// chunkAndIndex splits doc.Content, embeds each chunk (cache-aware), and
// adds the results to both the vector store and the keyword index. It does
// not mutate idx's document bookkeeping.
func (idx *Index) chunkAndIndex(ctx context.Context, doc *Document) ([]Chunk, error) {
	spans := chunker.Split(doc.Content, idx.chunkSize, idx.chunkOverlap)
	if len(spans) == 0 {
		return nil, nil
	}

	chunks := make([]Chunk, len(spans))
	texts := make([]string, len(spans))
	for i, span := range spans {
		metadata := map[string]any{"chunk_index": span.Index, "chunk_count": len(spans)}
		chunks[i] = Chunk{ID: uuid.NewString(), DocumentID: doc.ID, Content: span.Text, Metadata: metadata}
		texts[i] = span.Text
	}

	vectors, err := idx.embedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{ChunkID: c.ID, DocumentID: c.DocumentID, Content: c.Content, Metadata: c.Metadata, Vector: vectors[i]}
	}
	if err := idx.vecStore.Add(ctx, records); err != nil {
		return nil, err
	}
	for _, c := range chunks {
		if err := idx.kwStore.Add(ctx, c.ID, c.Content); err != nil {
			return nil, err
		}
	}
	return chunks, nil
}

// embedBatch resolves each text's vector from the cache, falling back to the
// configured embedding backend on miss.
func (idx *Index) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missTexts []string
	var missIdx []int
	for i, t := range texts {
		if idx.cache != nil {
			if v, ok := idx.cache.Get(ctx, t); ok {
				out[i] = v
				continue
			}
		}
		missTexts = append(missTexts, t)
		missIdx = append(missIdx, i)
	}
	if len(missTexts) == 0 {
		return out, nil
	}

	vectors, err := idx.embedder.Embed(ctx, missTexts)
	if err != nil {
		return nil, err
	}
	for j, i := range missIdx {
		out[i] = vectors[j]
		if idx.cache != nil {
			idx.cache.Put(ctx, missTexts[j], vectors[j])
		}
	}
	return out, nil
}

// removeDocumentChunksLocked deletes doc's chunks from both indices and from the
// live chunk set. Caller must hold idx.mu for writing.
func (idx *Index) removeDocumentChunksLocked(ctx context.Context, documentID string) error {
	ids := idx.chunkIDs[documentID]
	if len(ids) == 0 {
		return nil
	}
	if err := idx.vecStore.Delete(ctx, ids); err != nil {
		return err
	}
	for _, id := range ids {
		if err := idx.kwStore.Remove(ctx, id); err != nil {
			return err
		}
		delete(idx.chunks, id)
	}
	delete(idx.chunkIDs, documentID)
	return nil
}

// UpdateDocument creates a new Document version, snapshotting the old
// content/metadata into previous_versions, and re-chunks+re-indexes the new
// content (spec.md §4.4 "Document updates").
func (idx *Index) UpdateDocument(ctx context.Context, documentID, newContent string, newMetadata map[string]any) (*Document, error) {
	idx.mu.Lock()
	doc, ok := idx.documents[documentID]
	if !ok {
		idx.mu.Unlock()
		return nil, coreerr.NotFound("document not found: "+documentID, nil)
	}
	snapshot := VersionSnapshot{Version: doc.Version, Content: doc.Content, Metadata: doc.Metadata, Timestamp: time.Now()}
	if err := idx.removeDocumentChunksLocked(ctx, documentID); err != nil {
		idx.mu.Unlock()
		return nil, err
	}
	doc.PreviousVersions = append(doc.PreviousVersions, snapshot)
	doc.Content = newContent
	doc.Metadata = newMetadata
	doc.Version++
	idx.mu.Unlock()

	chunks, err := idx.chunkAndIndex(ctx, doc)
	if err != nil {
		return nil, err
	}

	idx.mu.Lock()
	doc.ChunkIDs = chunkIDsOf(chunks)
	idx.chunkIDs[doc.ID] = doc.ChunkIDs
	for _, c := range chunks {
		idx.chunks[c.ID] = c
	}
	idx.mu.Unlock()

	if err := idx.persistVersionSnapshot(doc); err != nil {
		return nil, err
	}
	return idx.cloneDoc(doc), nil
}

// Rollback restores the content+metadata of a prior version, creating a new
// current version with that content (spec.md §8 scenario 4: "rollback(A, 1)
// ... creates current_version = 3 with content equal to version 1").
func (idx *Index) Rollback(ctx context.Context, documentID string, toVersion int) (*Document, error) {
	idx.mu.RLock()
	doc, ok := idx.documents[documentID]
	idx.mu.RUnlock()
	if !ok {
		return nil, coreerr.NotFound("document not found: "+documentID, nil)
	}

	var target *VersionSnapshot
	for i := range doc.PreviousVersions {
		if doc.PreviousVersions[i].Version == toVersion {
			target = &doc.PreviousVersions[i]
			break
		}
	}
	if target == nil {
		return nil, coreerr.NotFound("no snapshot for version "+strconv.Itoa(toVersion), nil)
	}
	return idx.UpdateDocument(ctx, documentID, target.Content, target.Metadata)
}

// DeleteDocument removes a document and its chunks from both indices.
func (idx *Index) DeleteDocument(ctx context.Context, documentID string) error {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	if _, ok := idx.documents[documentID]; !ok {
		return coreerr.NotFound("document not found: "+documentID, nil)
	}
	if err := idx.removeDocumentChunksLocked(ctx, documentID); err != nil {
		return err
	}
	delete(idx.documents, documentID)
	return nil
}

// GetDocument returns a defensive copy of the document, or NotFound.
func (idx *Index) GetDocument(documentID string) (*Document, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	doc, ok := idx.documents[documentID]
	if !ok {
		return nil, coreerr.NotFound("document not found: "+documentID, nil)
	}
	return idx.cloneDoc(doc), nil
}

func (idx *Index) cloneDoc(doc *Document) *Document {
	cp := *doc
	cp.ChunkIDs = append([]string(nil), doc.ChunkIDs...)
	cp.PreviousVersions = append([]VersionSnapshot(nil), doc.PreviousVersions...)
	return &cp
}

func chunkIDsOf(chunks []Chunk) []string {
	ids := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
	}
	return ids
}

// Filter restricts search to chunks whose metadata passes.
type Filter func(metadata map[string]any) bool

// Search implements the hybrid query operation (spec.md §4.4 steps 1-5).
func (idx *Index) Search(ctx context.Context, queryText string, k int, semanticWeight, keywordWeight float64, filter Filter) ([]SearchResult, error) {
	if queryText == "" {
		return nil, nil
	}
	if k <= 0 {
		k = 10
	}

	ws, wk := normalizeWeights(semanticWeight, keywordWeight)

	var vecFilter vectorstore.Filter
	if filter != nil {
		vecFilter = vectorstore.Filter(filter)
	}

	switch {
	case ws == 1:
		hits, err := idx.semanticQuery(ctx, queryText, k, vecFilter)
		if err != nil {
			return nil, err
		}
		return sortTruncate(toSlice(hits), k), nil
	case wk == 1:
		hits, err := idx.keywordQuery(ctx, queryText, filter)
		if err != nil {
			return nil, err
		}
		return sortTruncate(toSlice(hits), k), nil
	default:
		// Fetch 2k from the semantic side before merging (SPEC_FULL.md
		// open-question decision #1); the keyword side returns every
		// matching chunk, so a keyword-strong chunk outside the semantic
		// top-k still survives the hybrid merge.
		semHits, err := idx.semanticQuery(ctx, queryText, 2*k, vecFilter)
		if err != nil {
			return nil, err
		}
		kwHits, err := idx.keywordQuery(ctx, queryText, filter)
		if err != nil {
			return nil, err
		}
		return sortTruncate(combine(semHits, kwHits, ws, wk), k), nil
	}
}

func toSlice(m map[string]SearchResult) []SearchResult {
	out := make([]SearchResult, 0, len(m))
	for _, r := range m {
		out = append(out, r)
	}
	return out
}

func normalizeWeights(ws, wk float64) (float64, float64) {
	if ws < 0 {
		ws = 0
	}
	if ws > 1 {
		ws = 1
	}
	if wk < 0 {
		wk = 0
	}
	if wk > 1 {
		wk = 1
	}
	if ws == 0 && wk == 0 {
		return 1, 0
	}
	total := ws + wk
	return ws / total, wk / total
}

func (idx *Index) semanticQuery(ctx context.Context, queryText string, k int, filter vectorstore.Filter) (map[string]SearchResult, error) {
	vectors, err := idx.embedBatch(ctx, []string{queryText})
	if err != nil {
		return nil, err
	}
	results, err := idx.vecStore.Query(ctx, vectors[0], k, filter)
	if err != nil {
		return nil, err
	}
	out := make(map[string]SearchResult, len(results))
	for _, r := range results {
		out[r.ChunkID] = SearchResult{
			ChunkID: r.ChunkID, DocumentID: r.DocumentID, Content: r.Content, Metadata: r.Metadata,
			Score: r.Similarity(), SearchType: SearchSemantic,
		}
	}
	return out, nil
}

func (idx *Index) keywordQuery(ctx context.Context, queryText string, filter Filter) (map[string]SearchResult, error) {
	tokens := keywordindex.Tokenize(queryText)
	if len(tokens) == 0 {
		return nil, nil
	}
	hits, err := idx.kwStore.Query(ctx, tokens)
	if err != nil {
		return nil, err
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	out := make(map[string]SearchResult, len(hits))
	for _, h := range hits {
		c, ok := idx.chunks[h.ChunkID]
		if !ok {
			continue
		}
		if filter != nil && !filter(c.Metadata) {
			continue
		}
		score := float64(h.Count) / float64(len(tokens))
		if score > 1 {
			score = 1
		}
		out[h.ChunkID] = SearchResult{
			ChunkID: c.ID, DocumentID: c.DocumentID, Content: c.Content, Metadata: c.Metadata,
			Score: score, SearchType: SearchKeyword,
		}
	}
	return out, nil
}

func combine(sem, kw map[string]SearchResult, ws, wk float64) []SearchResult {
	ids := make(map[string]bool, len(sem)+len(kw))
	for id := range sem {
		ids[id] = true
	}
	for id := range kw {
		ids[id] = true
	}

	out := make([]SearchResult, 0, len(ids))
	for id := range ids {
		s, inSem := sem[id]
		kv, inKw := kw[id]
		var semScore, kwScore float64
		var base SearchResult
		if inSem {
			semScore = s.Score
			base = s
		}
		if inKw {
			kwScore = kv.Score
			if !inSem {
				base = kv
			}
		}
		base.Score = ws*semScore + wk*kwScore
		if inSem && inKw {
			base.SearchType = SearchHybrid
		} else if inSem {
			base.SearchType = SearchSemantic
		} else {
			base.SearchType = SearchKeyword
		}
		out = append(out, base)
	}
	return out
}

func sortTruncate(out []SearchResult, k int) []SearchResult {
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].ChunkID < out[j].ChunkID
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out
}

// Compact rewrites the live chunk set to a fresh vector collection and
// rebuilds the keyword index, removing any orphan postings (spec.md §4.4
// "Optimization").
func (idx *Index) Compact(ctx context.Context) error {
	idx.mu.RLock()
	chunks := make([]Chunk, 0, len(idx.chunks))
	for _, c := range idx.chunks {
		chunks = append(chunks, c)
	}
	idx.mu.RUnlock()

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := idx.embedBatch(ctx, texts)
	if err != nil {
		return err
	}

	records := make([]vectorstore.Record, len(chunks))
	for i, c := range chunks {
		records[i] = vectorstore.Record{ChunkID: c.ID, DocumentID: c.DocumentID, Content: c.Content, Metadata: c.Metadata, Vector: vectors[i]}
	}

	if err := idx.vecStore.Clear(ctx); err != nil {
		return err
	}
	if err := idx.vecStore.Add(ctx, records); err != nil {
		return err
	}

	if err := idx.kwStore.Clear(ctx); err != nil {
		return err
	}
	for _, c := range chunks {
		if err := idx.kwStore.Add(ctx, c.ID, c.Content); err != nil {
			return err
		}
	}
	return nil
}

// persistVersionSnapshot writes doc's version log to persistDir, serialized
// (spec.md §5: "the version index is single-writer"). No-op if persistDir is
// empty.
func (idx *Index) persistVersionSnapshot(doc *Document) error {
	if idx.persistDir == "" {
		return nil
	}
	idx.versionMu.Lock()
	defer idx.versionMu.Unlock()

	versionsDir := filepath.Join(idx.persistDir, "kb", "versions")
	if err := os.MkdirAll(versionsDir, 0o755); err != nil {
		return err
	}
	snapPath := filepath.Join(versionsDir, doc.ID+"_v"+strconv.Itoa(doc.Version)+".json")
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	if err := os.WriteFile(snapPath, data, 0o644); err != nil {
		return err
	}

	indexPath := filepath.Join(idx.persistDir, "kb", "version_index.json")
	versionIndex := map[string]any{}
	if existing, err := os.ReadFile(indexPath); err == nil {
		_ = json.Unmarshal(existing, &versionIndex)
	}
	versionIndex[doc.ID] = map[string]any{
		"current_version": doc.Version,
		"last_updated":     time.Now(),
	}
	data, err = json.Marshal(versionIndex)
	if err != nil {
		return err
	}
	return os.WriteFile(indexPath, data, 0o644)
}
