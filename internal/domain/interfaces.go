package domain

import "context"

// Backend names recorded on every record and hit.
const (
	BackendRemote = "qdrant"
	BackendLocal  = "local"
)

// VectorRecord describes one chunk persisted to one backend.
// Records are created at ingestion and never updated.
type VectorRecord struct {
	ID        string            `json:"id"`
	Text      string            `json:"content"`
	Metadata  map[string]string `json:"metadata"`
	Embedding []float64         `json:"-"`
	Backend   string            `json:"backend"`
}

// SearchHit is a single ranked result of one retrieval call.
type SearchHit struct {
	ID       string         `json:"id"`
	Score    float64        `json:"score"`
	Metadata map[string]any `json:"metadata"`
	Content  string         `json:"content"`
	Backend  string         `json:"backend"`
}

// DuplicateCandidate is a hit whose content was re-embedded and compared to a query text.
type DuplicateCandidate struct {
	SearchHit
	Similarity float64 `json:"similarity"`
}

// AnswerResult is the outcome of a retrieval-augmented answer.
type AnswerResult struct {
	Answer  string      `json:"answer"`
	Context string      `json:"context,omitempty"`
	Sources []SearchHit `json:"sources"`
}

// StoredVector is one row of the local durable store.
type StoredVector struct {
	ID     int64
	Source string
	Text   string
	Vector []float64
}

// RemoteStatus reports the connection state of the remote vector service.
type RemoteStatus struct {
	Available  bool   `json:"available"`
	URL        string `json:"url"`
	Collection string `json:"collection"`
	VectorDim  int    `json:"vector_dim"`
}

// Embedder converts free text into a fixed-dimension vector.
// Identical input must always produce an identical vector.
type Embedder interface {
	Name() string
	Dimension() int
	Embed(ctx context.Context, text string) ([]float64, error)
}

// Chunker splits normalized text into ordered retrieval units.
type Chunker interface {
	Chunk(text string) []string
}

// Summarizer produces a short summary of the provided text.
// maxLength is a budget in words; zero means implementation default.
type Summarizer interface {
	Summarize(ctx context.Context, text string, maxLength int) (string, error)
}

// RemoteBackend is a networked vector and payload store gated by a live availability flag.
type RemoteBackend interface {
	Available() bool
	Status() RemoteStatus
	EnsureCollection(ctx context.Context, dimension int) error
	Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error
	Search(ctx context.Context, vector []float64, k int) ([]SearchHit, error)
	ListRecent(ctx context.Context, limit int) ([]map[string]any, error)
}

// LocalBackend is an append-only durable store with an exact nearest-neighbour search
// over everything durable at call time.
type LocalBackend interface {
	Add(ctx context.Context, source, text string, vector []float64) (string, error)
	BulkRead(ctx context.Context) ([]StoredVector, error)
	Search(ctx context.Context, vector []float64, k int) ([]SearchHit, error)
}

// Extractor turns a file or URL into raw per-page text.
// Formats without a page notion return a single page.
type Extractor interface {
	Modality() string
	Extract(ctx context.Context, path string) ([]string, error)
}
