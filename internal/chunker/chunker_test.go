package chunker

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_InvalidConfig(t *testing.T) {
	tests := []struct {
		name    string
		size    int
		overlap int
	}{
		{"size equals overlap", 200, 200},
		{"size below overlap", 100, 200},
		{"zero size", 0, 0},
		{"negative overlap", 100, -1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := New(tt.size, tt.overlap)
			require.ErrorIs(t, err, ErrInvalidConfig)
			assert.Nil(t, c)
		})
	}
}

func TestChunk_Empty(t *testing.T) {
	c, err := New(1200, 200)
	require.NoError(t, err)

	assert.Empty(t, c.Chunk(""))
	assert.Empty(t, c.Chunk("   \n\t  "))
}

func TestChunk_ShortText(t *testing.T) {
	c, err := New(1200, 200)
	require.NoError(t, err)

	chunks := c.Chunk("a short guideline paragraph")
	require.Len(t, chunks, 1)
	assert.Equal(t, "a short guideline paragraph", chunks[0])
}

func TestChunk_OverlapScenario(t *testing.T) {
	text := strings.Repeat("A", 1500)
	c, err := New(1200, 200)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, text[0:1200], chunks[0])
	assert.Equal(t, text[1000:1500], chunks[1])
	assert.Len(t, chunks[1], 500)
}

func TestChunk_WindowPositions(t *testing.T) {
	// Consecutive windows must overlap by exactly the configured amount.
	var b strings.Builder
	for i := 0; i < 500; i++ {
		b.WriteString("clinical guideline text ")
	}
	text := b.String()

	size, overlap := 400, 100
	c, err := New(size, overlap)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	require.NotEmpty(t, chunks)

	step := size - overlap
	for i, ch := range chunks {
		start := i * step
		end := start + size
		if end > len(text) {
			end = len(text)
		}
		assert.Equal(t, text[start:end], ch, "chunk %d", i)
		if i > 0 {
			prev := chunks[i-1]
			assert.Equal(t, prev[len(prev)-overlap:], ch[:overlap], "overlap before chunk %d", i)
		}
	}
}

func TestChunk_CountBound(t *testing.T) {
	text := strings.Repeat("x", 10_000)
	size, overlap := 1200, 200
	c, err := New(size, overlap)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	step := size - overlap
	bound := (len(text) + step - 1) / step
	assert.LessOrEqual(t, len(chunks), bound)
}

func TestChunk_Deterministic(t *testing.T) {
	text := strings.Repeat("the trial protocol defines the estimand. ", 200)
	c, err := New(800, 150)
	require.NoError(t, err)

	assert.Equal(t, c.Chunk(text), c.Chunk(text))
}

func TestChunk_DropsWhitespaceWindows(t *testing.T) {
	// A run of whitespace wider than a window drops that window without
	// stalling the scan.
	text := "abcd" + strings.Repeat(" ", 20) + "efgh"
	c, err := New(4, 0)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, "abcd", chunks[0])
	assert.Equal(t, "efgh", chunks[1])
}

func TestChunk_WindowsByCharacters(t *testing.T) {
	// Window width and overlap count runes, not bytes. "µ" is two bytes,
	// so a byte-indexed scan would halve the window.
	text := strings.Repeat("µ", 300)
	c, err := New(250, 50)
	require.NoError(t, err)

	chunks := c.Chunk(text)
	require.Len(t, chunks, 2)
	assert.Equal(t, 250, utf8.RuneCountInString(chunks[0]))
	assert.Equal(t, 100, utf8.RuneCountInString(chunks[1]))
	assert.Equal(t, strings.Repeat("µ", 250), chunks[0])
}

func TestChunk_NeverSplitsRunes(t *testing.T) {
	text := strings.Repeat("§1.2 µg/mL ±5% “estimand” ", 100)
	for _, cfg := range [][2]int{{251, 0}, {250, 50}, {97, 13}} {
		c, err := New(cfg[0], cfg[1])
		require.NoError(t, err)
		for i, ch := range c.Chunk(text) {
			assert.True(t, utf8.ValidString(ch), "size %d overlap %d: chunk %d contains invalid UTF-8", cfg[0], cfg[1], i)
		}
	}
}

func TestChunkText_Validates(t *testing.T) {
	_, err := ChunkText("anything", 100, 100)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
