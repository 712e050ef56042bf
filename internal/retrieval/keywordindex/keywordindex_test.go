package keywordindex

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTokenizeDropsShortTokens(t *testing.T) {
	require.Equal(t, []string{"the", "quick", "fox"}, Tokenize("a the-quick! fox.9"))
}

func TestAddAndQueryAccumulatesHitCounts(t *testing.T) {
	idx := New()
	idx.Add("c1", "kubernetes cluster deployment pipeline")
	idx.Add("c2", "quarterly budget forecast")
	idx.Add("c3", "kubernetes deployment staging")

	hits := idx.Query(Tokenize("kubernetes deployment"))
	require.Len(t, hits, 2)
	require.Equal(t, "c1", hits[0].ChunkID)
	require.Equal(t, 2, hits[0].Count)
	require.Equal(t, "c3", hits[1].ChunkID)
	require.Equal(t, 2, hits[1].Count)
}

func TestRemoveDeletesPostings(t *testing.T) {
	idx := New()
	idx.Add("c1", "budget forecast")
	idx.Remove("c1")
	require.Empty(t, idx.Query(Tokenize("budget")))
}

func TestReAddReplacesPriorPostings(t *testing.T) {
	idx := New()
	idx.Add("c1", "budget forecast")
	idx.Add("c1", "marketing campaign")
	require.Empty(t, idx.Query(Tokenize("budget")))
	require.Len(t, idx.Query(Tokenize("campaign")), 1)
}
