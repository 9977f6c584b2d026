package local

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/philippgille/chromem-go"

	"multirag/internal/domain"
)

// Index kinds selectable from configuration.
const (
	IndexFlat    = "flat"
	IndexChromem = "chromem"
)

// Neighbor is one exact search result: a position in the rows the index was built
// from and its distance to the query (smaller is closer).
type Neighbor struct {
	Pos      int
	Distance float64
}

// Index is an exact nearest-neighbour index over a fixed set of vectors.
type Index interface {
	Search(ctx context.Context, query []float64, k int) ([]Neighbor, error)
}

// IndexBuilder builds a fresh index from the current durable rows.
type IndexBuilder func(ctx context.Context, rows []domain.StoredVector) (Index, error)

// BuilderFor maps a configured index kind to its builder.
func BuilderFor(kind string) (IndexBuilder, error) {
	switch kind {
	case "", IndexFlat:
		return BuildFlatIndex, nil
	case IndexChromem:
		return BuildChromemIndex, nil
	default:
		return nil, fmt.Errorf("unknown local index %q", kind)
	}
}

// flatIndex ranks by squared euclidean distance with brute force.
type flatIndex struct {
	vectors [][]float64
}

func BuildFlatIndex(_ context.Context, rows []domain.StoredVector) (Index, error) {
	vectors := make([][]float64, len(rows))
	for i, r := range rows {
		vectors[i] = r.Vector
	}
	return &flatIndex{vectors: vectors}, nil
}

func (f *flatIndex) Search(ctx context.Context, query []float64, k int) ([]Neighbor, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	out := make([]Neighbor, 0, len(f.vectors))
	for i, v := range f.vectors {
		if len(v) != len(query) {
			return nil, fmt.Errorf("vector dimension mismatch: stored %d, query %d", len(v), len(query))
		}
		out = append(out, Neighbor{Pos: i, Distance: squaredL2(v, query)})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func squaredL2(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// chromemIndex keeps the rows in an in-memory chromem collection and ranks by
// cosine distance (1 - similarity).
type chromemIndex struct {
	coll *chromem.Collection
}

var errNoEmbeddingFunc = errors.New("local index embeds nothing; vectors are precomputed")

func BuildChromemIndex(ctx context.Context, rows []domain.StoredVector) (Index, error) {
	db := chromem.NewDB()
	coll, err := db.CreateCollection("chunks", map[string]string{}, func(context.Context, string) ([]float32, error) {
		return nil, errNoEmbeddingFunc
	})
	if err != nil {
		return nil, fmt.Errorf("creating chromem collection: %w", err)
	}
	docs := make([]chromem.Document, 0, len(rows))
	for i, r := range rows {
		// chromem normalizes vectors, which a zero vector cannot survive.
		if norm(r.Vector) == 0 {
			continue
		}
		docs = append(docs, chromem.Document{
			ID:        strconv.Itoa(i),
			Embedding: toFloat32(r.Vector),
			Content:   r.Text,
		})
	}
	if len(docs) > 0 {
		if err := coll.AddDocuments(ctx, docs, 1); err != nil {
			return nil, fmt.Errorf("indexing chunks: %w", err)
		}
	}
	return &chromemIndex{coll: coll}, nil
}

func (c *chromemIndex) Search(ctx context.Context, query []float64, k int) ([]Neighbor, error) {
	n := c.coll.Count()
	if k > n {
		k = n
	}
	if k <= 0 || norm(query) == 0 {
		return nil, nil
	}
	results, err := c.coll.QueryEmbedding(ctx, toFloat32(query), k, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("querying chromem: %w", err)
	}
	out := make([]Neighbor, 0, len(results))
	for _, r := range results {
		pos, err := strconv.Atoi(r.ID)
		if err != nil {
			return nil, fmt.Errorf("unexpected chromem id %q", r.ID)
		}
		out = append(out, Neighbor{Pos: pos, Distance: 1 - float64(r.Similarity)})
	}
	return out, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, f := range v {
		out[i] = float32(f)
	}
	return out
}

func norm(v []float64) float64 {
	sum := 0.0
	for _, f := range v {
		sum += f * f
	}
	return math.Sqrt(sum)
}
