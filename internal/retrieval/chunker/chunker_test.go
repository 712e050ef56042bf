package chunker

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitProducesOverlappingWindows(t *testing.T) {
	text := strings.Repeat("word ", 500) // 2500 chars
	chunks := Split(text, 1000, 200)
	require.True(t, len(chunks) >= 2)
	for i, c := range chunks {
		require.Equal(t, i, c.Index)
		require.NotEmpty(t, c.Text)
	}
}

func TestSplitShortTextSingleChunk(t *testing.T) {
	chunks := Split("hello world", 1000, 200)
	require.Len(t, chunks, 1)
	require.Equal(t, "hello world", chunks[0].Text)
}

func TestSplitEmptyTextNoChunks(t *testing.T) {
	require.Empty(t, Split("", 1000, 200))
}

func TestSplitPrefersParagraphBoundary(t *testing.T) {
	text := strings.Repeat("a", 400) + "\n\n" + strings.Repeat("b", 400)
	chunks := Split(text, 420, 0)
	require.True(t, len(chunks) >= 2)
	require.True(t, strings.HasSuffix(chunks[0].Text, strings.Repeat("a", 400)))
}
