package chunker

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned when the window can never advance.
var ErrInvalidConfig = errors.New("chunk size must be greater than overlap")

// Chunker splits raw text into overlapping fixed-size character windows.
type Chunker struct {
	size    int
	overlap int
}

func New(size, overlap int) (*Chunker, error) {
	if overlap < 0 {
		return nil, fmt.Errorf("overlap %d: %w", overlap, ErrInvalidConfig)
	}
	if size <= overlap {
		return nil, fmt.Errorf("size %d, overlap %d: %w", size, overlap, ErrInvalidConfig)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

func (c *Chunker) Size() int    { return c.size }
func (c *Chunker) Overlap() int { return c.overlap }

// Chunk scans a window of size characters over text, advancing by
// size-overlap. Width and overlap count runes, not bytes, so multi-byte
// text windows to the configured width and never splits a character.
// Windows that are whitespace-only after trimming are dropped. The final
// window may be shorter than size. Deterministic, no side effects.
func (c *Chunker) Chunk(text string) []string {
	var chunks []string
	runes := []rune(text)
	step := c.size - c.overlap
	n := len(runes)
	for start := 0; start < n; start += step {
		end := start + c.size
		if end > n {
			end = n
		}
		window := string(runes[start:end])
		if strings.TrimSpace(window) != "" {
			chunks = append(chunks, window)
		}
	}
	return chunks
}

// ChunkText is a convenience for one-off chunking with explicit parameters,
// used by the inspection playground.
func ChunkText(text string, size, overlap int) ([]string, error) {
	c, err := New(size, overlap)
	if err != nil {
		return nil, err
	}
	return c.Chunk(text), nil
}
