package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/stretchr/testify/mock"

	"multirag/internal/domain"
)

type mockRemote struct {
	mock.Mock
}

func (m *mockRemote) Available() bool { return m.Called().Bool(0) }

func (m *mockRemote) Status() domain.RemoteStatus {
	return m.Called().Get(0).(domain.RemoteStatus)
}

func (m *mockRemote) EnsureCollection(ctx context.Context, dimension int) error {
	return m.Called(ctx, dimension).Error(0)
}

func (m *mockRemote) Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error {
	return m.Called(ctx, id, vector, payload).Error(0)
}

func (m *mockRemote) Search(ctx context.Context, vector []float64, k int) ([]domain.SearchHit, error) {
	args := m.Called(ctx, vector, k)
	hits, _ := args.Get(0).([]domain.SearchHit)
	return hits, args.Error(1)
}

func (m *mockRemote) ListRecent(ctx context.Context, limit int) ([]map[string]any, error) {
	args := m.Called(ctx, limit)
	payloads, _ := args.Get(0).([]map[string]any)
	return payloads, args.Error(1)
}

type mockSummarizer struct {
	mock.Mock
}

func (m *mockSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	args := m.Called(ctx, text, maxLength)
	return args.String(0), args.Error(1)
}

// fakeLocal is an in-memory LocalBackend returning canned hits.
type fakeLocal struct {
	mu      sync.Mutex
	added   []domain.StoredVector
	hits    []domain.SearchHit
	addErr  error
	searchN int
}

func (f *fakeLocal) Add(_ context.Context, source, text string, vector []float64) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return "", f.addErr
	}
	id := int64(len(f.added) + 1)
	f.added = append(f.added, domain.StoredVector{ID: id, Source: source, Text: text, Vector: vector})
	return fmt.Sprintf("local-%d", id), nil
}

func (f *fakeLocal) BulkRead(context.Context) ([]domain.StoredVector, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.StoredVector(nil), f.added...), nil
}

func (f *fakeLocal) Search(_ context.Context, _ []float64, k int) ([]domain.SearchHit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchN++
	if k < len(f.hits) {
		return append([]domain.SearchHit(nil), f.hits[:k]...), nil
	}
	return append([]domain.SearchHit(nil), f.hits...), nil
}

// countingEmbedder wraps an embedder and counts calls.
type countingEmbedder struct {
	domain.Embedder
	mu    sync.Mutex
	calls int
	err   error
}

func (c *countingEmbedder) Embed(ctx context.Context, text string) ([]float64, error) {
	c.mu.Lock()
	c.calls++
	err := c.err
	c.mu.Unlock()
	if err != nil {
		return nil, err
	}
	return c.Embedder.Embed(ctx, text)
}

func (c *countingEmbedder) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

var errRemoteDown = errors.New("connection reset by peer")
