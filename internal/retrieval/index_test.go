package retrieval

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"execteam/internal/retrieval/keywordindex"
	"execteam/internal/retrieval/vectorstore"
)

// fakeEmbedder produces a deterministic vector per text so semantic search
// is exercisable without a real embedding backend: each text maps to its
// bagOfWordsVector, so an identical chunk scores similarity 1.0.
type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	out := make([][]float32, len(inputs))
	for i, t := range inputs {
		out[i] = bagOfWordsVector(t)
	}
	return out, nil
}

// bagOfWordsVector maps text to a fixed-dimension vector over a small
// vocabulary, giving cosine similarity 1.0 for identical token sets and a
// graded similarity for overlapping ones — enough to exercise ranking
// without a real embedding model.
var vocab = []string{
	"sales", "strategy", "kubernetes", "cluster", "quarterly", "budget",
	"deployment", "pipeline", "staging", "production",
}

func bagOfWordsVector(text string) []float32 {
	lc := strings.ToLower(text)
	v := make([]float32, len(vocab))
	for i, w := range vocab {
		if strings.Contains(lc, w) {
			v[i] = 1
		}
	}
	return v
}

func newTestIndex(t *testing.T) *Index {
	t.Helper()
	vec := vectorstore.NewMemory()
	kw := NewMemoryKeywordStore(keywordindex.New())
	return New(vec, kw, nil, fakeEmbedder{}, 1000, 200, filepath.Join(t.TempDir(), "kb"))
}

func TestSearchPureSemanticTopResultHighScore(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "sales strategy for the new region"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "sales strategy for the new region", 5, 1, 0, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	require.GreaterOrEqual(t, results[0].Score, 0.99)
	require.Equal(t, SearchSemantic, results[0].SearchType)
}

func TestSearchScoresAreSortedAndBounded(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "sales strategy"})
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "kubernetes cluster deployment pipeline staging production"})
	require.NoError(t, err)
	_, err = idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "quarterly budget review"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "deployment pipeline", 5, 0.8, 0.2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for i, r := range results {
		require.GreaterOrEqual(t, r.Score, 0.0)
		require.LessOrEqual(t, r.Score, 1.0)
		if i > 0 {
			require.GreaterOrEqual(t, results[i-1].Score, r.Score)
		}
	}
	require.True(t, strings.Contains(results[0].Content, "kubernetes"))
}

func TestSearchEmptyQueryReturnsEmpty(t *testing.T) {
	idx := newTestIndex(t)
	results, err := idx.Search(context.Background(), "", 5, 0.5, 0.5, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestUpdateDocumentBumpsVersionAndReindexes(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "zzqalpha wwqalpha content"})
	require.NoError(t, err)
	require.Equal(t, 1, doc.Version)

	updated, err := idx.UpdateDocument(ctx, doc.ID, "yyqbeta xxqbeta content", nil)
	require.NoError(t, err)
	require.Equal(t, 2, updated.Version)
	require.Len(t, updated.PreviousVersions, 1)
	require.Equal(t, 1, updated.PreviousVersions[0].Version)

	results, err := idx.Search(ctx, "zzqalpha wwqalpha", 5, 0, 1, nil)
	require.NoError(t, err)
	require.Empty(t, results)
}

func TestRollbackRestoresPriorContentAsNewVersion(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "sales strategy v1"})
	require.NoError(t, err)
	_, err = idx.UpdateDocument(ctx, doc.ID, "kubernetes cluster v2", nil)
	require.NoError(t, err)

	rolled, err := idx.Rollback(ctx, doc.ID, 1)
	require.NoError(t, err)
	require.Equal(t, 3, rolled.Version)
	require.Equal(t, "sales strategy v1", rolled.Content)
}

func TestDeleteThenReAddYieldsEquivalentIndex(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	doc, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "quarterly budget review"})
	require.NoError(t, err)
	require.NoError(t, idx.DeleteDocument(ctx, doc.ID))

	_, err = idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "quarterly budget review"})
	require.NoError(t, err)

	results, err := idx.Search(ctx, "quarterly budget", 5, 0, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}

func TestCompactRebuildsIndicesWithoutOrphans(t *testing.T) {
	idx := newTestIndex(t)
	ctx := context.Background()

	_, err := idx.AddDocument(ctx, AddDocumentInput{SourceType: SourceText, Content: "sales strategy"})
	require.NoError(t, err)
	require.NoError(t, idx.Compact(ctx))

	results, err := idx.Search(ctx, "sales strategy", 5, 0, 1, nil)
	require.NoError(t, err)
	require.Len(t, results, 1)
}
