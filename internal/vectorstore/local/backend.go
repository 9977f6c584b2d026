package local

import (
	"context"
	"fmt"
	"strconv"

	"multirag/internal/domain"
)

// Backend pairs the durable store with an index rebuilt on every search, so each
// search sees exactly what was durable when it started.
type Backend struct {
	store *Store
	build IndexBuilder
}

func NewBackend(store *Store, build IndexBuilder) *Backend {
	if build == nil {
		build = BuildFlatIndex
	}
	return &Backend{store: store, build: build}
}

// HitID is the stable id a local row is reported under.
func HitID(rowID int64) string {
	return "local-" + strconv.FormatInt(rowID, 10)
}

func (b *Backend) Add(ctx context.Context, source, text string, vector []float64) (string, error) {
	id, err := b.store.Add(ctx, source, text, vector)
	if err != nil {
		return "", err
	}
	return HitID(id), nil
}

func (b *Backend) BulkRead(ctx context.Context) ([]domain.StoredVector, error) {
	return b.store.BulkRead(ctx)
}

// Search runs an exact k-nearest search; score is 1/(1+distance).
func (b *Backend) Search(ctx context.Context, vector []float64, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		return nil, nil
	}
	rows, err := b.store.BulkRead(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	idx, err := b.build(ctx, rows)
	if err != nil {
		return nil, fmt.Errorf("building local index: %w", err)
	}
	neighbors, err := idx.Search(ctx, vector, k)
	if err != nil {
		return nil, fmt.Errorf("searching local index: %w", err)
	}
	hits := make([]domain.SearchHit, 0, len(neighbors))
	for _, n := range neighbors {
		if n.Pos < 0 || n.Pos >= len(rows) {
			continue
		}
		row := rows[n.Pos]
		hits = append(hits, domain.SearchHit{
			ID:       HitID(row.ID),
			Score:    1 / (1 + n.Distance),
			Metadata: map[string]any{"source": row.Source, "chunk": row.ID},
			Content:  row.Text,
			Backend:  domain.BackendLocal,
		})
	}
	return hits, nil
}
