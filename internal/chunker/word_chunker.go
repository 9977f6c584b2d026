package chunker

import "strings"

const (
	DefaultChunkSize = 600
	DefaultOverlap   = 120
)

// WordChunker splits text into overlapping windows of whitespace-separated words.
type WordChunker struct {
	chunkSize int
	overlap   int
}

type Option func(*WordChunker)

func WithChunkSize(n int) Option {
	return func(c *WordChunker) { c.chunkSize = n }
}

func WithOverlap(n int) Option {
	return func(c *WordChunker) { c.overlap = n }
}

func New(opts ...Option) *WordChunker {
	c := &WordChunker{chunkSize: DefaultChunkSize, overlap: DefaultOverlap}
	for _, opt := range opts {
		opt(c)
	}
	if c.chunkSize <= 0 {
		c.chunkSize = DefaultChunkSize
	}
	if c.overlap < 0 {
		c.overlap = 0
	}
	if c.overlap >= c.chunkSize {
		c.overlap = c.chunkSize / 4
	}
	return c
}

func (c *WordChunker) ChunkSize() int { return c.chunkSize }
func (c *WordChunker) Overlap() int   { return c.overlap }

// Chunk returns word windows joined by single spaces. The walk stops at the first
// window that reaches the last word, so no chunk is a pure suffix of its predecessor.
func (c *WordChunker) Chunk(text string) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}
	stride := c.chunkSize - c.overlap
	if stride < 1 {
		stride = 1
	}
	var chunks []string
	for start := 0; start < len(words); start += stride {
		end := start + c.chunkSize
		if end > len(words) {
			end = len(words)
		}
		chunks = append(chunks, strings.Join(words[start:end], " "))
		if end == len(words) {
			break
		}
	}
	return chunks
}
