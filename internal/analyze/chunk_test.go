package analyze

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitTextShortInputSingleChunk(t *testing.T) {
	t.Parallel()

	chunks := SplitText("short document", 100, 10, 8)
	require.Len(t, chunks, 1)
	assert.Equal(t, "short document", chunks[0])
}

func TestSplitTextRespectsMaxChars(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 2500)
	chunks := SplitText(text, 1000, 100, 8)

	require.GreaterOrEqual(t, len(chunks), 3)
	for _, c := range chunks {
		assert.LessOrEqual(t, len(c), 1000)
	}

	// Every input character appears in some chunk.
	var total int
	for _, c := range chunks {
		total += len(c)
	}
	assert.GreaterOrEqual(t, total, len(text))
}

func TestSplitTextPrefersParagraphBoundary(t *testing.T) {
	t.Parallel()

	para1 := strings.Repeat("x", 800)
	para2 := strings.Repeat("y", 800)
	text := para1 + "\n\n" + para2

	chunks := SplitText(text, 1000, 0, 8)
	require.Len(t, chunks, 2)
	assert.Equal(t, para1, chunks[0])
	assert.Equal(t, "\n\n"+para2, chunks[1])
}

func TestSplitTextOverlap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 1000) + strings.Repeat("b", 1000)
	chunks := SplitText(text, 1000, 200, 8)

	require.GreaterOrEqual(t, len(chunks), 2)
	// The tail of chunk 0 reappears at the head of chunk 1.
	tail := chunks[0][len(chunks[0])-200:]
	assert.True(t, strings.HasPrefix(chunks[1], tail))
}

func TestSplitTextNeverCutsMidRune(t *testing.T) {
	t.Parallel()

	// Two-byte runes with a window size that lands cuts on odd byte offsets.
	text := strings.Repeat("é", 2000)
	chunks := SplitText(text, 999, 101, 8)

	require.GreaterOrEqual(t, len(chunks), 2)
	for i, c := range chunks {
		assert.True(t, utf8.ValidString(c), "chunk %d contains a split rune", i)
		assert.LessOrEqual(t, len(c), 999)
	}
}

func TestSplitTextMaxChunksCap(t *testing.T) {
	t.Parallel()

	text := strings.Repeat("a", 10000)
	chunks := SplitText(text, 1000, 0, 3)
	assert.Len(t, chunks, 3)
}
