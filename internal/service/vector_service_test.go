package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multirag/internal/chunker"
	"multirag/internal/domain"
	"multirag/internal/embedding/hashing"
	"multirag/internal/vectorstore/local"
)

func testLogger() (*logrus.Entry, *test.Hook) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return logrus.NewEntry(logger), hook
}

func newEmbedder() *countingEmbedder {
	return &countingEmbedder{Embedder: hashing.NewEmbedder(64)}
}

func availableRemote(available bool) *mockRemote {
	r := &mockRemote{}
	r.On("Available").Return(available).Maybe()
	return r
}

func TestIngest_LocalOnly(t *testing.T) {
	log, _ := testLogger()
	emb := newEmbedder()
	loc := &fakeLocal{}
	remote := availableRemote(true)
	svc := NewVectorService(emb, chunker.New(chunker.WithChunkSize(3), chunker.WithOverlap(0)), remote, loc, nil, log)

	records, err := svc.Ingest(context.Background(), "one two three four five", map[string]string{"source": "a.txt"}, domain.TargetLocal)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "one two three", records[0].Text)
	assert.Equal(t, "four five", records[1].Text)
	for _, r := range records {
		assert.Equal(t, domain.BackendLocal, r.Backend)
		assert.Equal(t, "a.txt", r.Metadata["source"])
	}
	assert.Equal(t, "a.txt", loc.added[0].Source)
	remote.AssertNotCalled(t, "Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestIngest_AutoWritesBothWithOneEmbeddingPerChunk(t *testing.T) {
	log, _ := testLogger()
	emb := newEmbedder()
	loc := &fakeLocal{}
	remote := availableRemote(true)
	remote.On("Upsert", mock.Anything, mock.AnythingOfType("string"), mock.Anything, mock.Anything).Return(nil)
	svc := NewVectorService(emb, chunker.New(chunker.WithChunkSize(2), chunker.WithOverlap(0)), remote, loc, nil, log)

	records, err := svc.Ingest(context.Background(), "alpha beta gamma delta", map[string]string{"source": "s"}, domain.TargetAuto)
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, 2, emb.Calls())

	assert.Equal(t, domain.BackendRemote, records[0].Backend)
	assert.Equal(t, domain.BackendLocal, records[1].Backend)
	assert.Equal(t, records[0].Embedding, records[1].Embedding)
	assert.Len(t, records[0].ID, 36)

	remote.AssertNumberOfCalls(t, "Upsert", 2)
	call := remote.Calls[len(remote.Calls)-1]
	p := call.Arguments.Get(3).(map[string]any)
	assert.Equal(t, "gamma delta", p["content"])
	assert.Equal(t, "s", p["source"])
}

func TestIngest_RemoteFailureIsolatedPerChunk(t *testing.T) {
	log, hook := testLogger()
	loc := &fakeLocal{}
	remote := availableRemote(true)
	remote.On("Upsert", mock.Anything, mock.Anything, mock.Anything,
		mock.MatchedBy(func(p map[string]any) bool { return p["content"] == "a b" })).Return(errRemoteDown)
	remote.On("Upsert", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil)
	svc := NewVectorService(newEmbedder(), chunker.New(chunker.WithChunkSize(2), chunker.WithOverlap(0)), remote, loc, nil, log)

	records, err := svc.Ingest(context.Background(), "a b c d", nil, domain.TargetAuto)
	require.NoError(t, err)

	var backends []string
	for _, r := range records {
		backends = append(backends, r.Text+"@"+r.Backend)
	}
	assert.Equal(t, []string{"a b@local", "c d@qdrant", "c d@local"}, backends)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["op"] == "upsert" {
			warned = true
		}
	}
	assert.True(t, warned)
}

func TestIngest_RemotePinnedUnavailable(t *testing.T) {
	log, _ := testLogger()
	emb := newEmbedder()
	svc := NewVectorService(emb, chunker.New(), availableRemote(false), &fakeLocal{}, nil, log)

	_, err := svc.Ingest(context.Background(), "text", nil, domain.TargetRemote)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Zero(t, emb.Calls())

	svc = NewVectorService(emb, chunker.New(), nil, &fakeLocal{}, nil, log)
	_, err = svc.Search(context.Background(), "q", 3, domain.TargetRemote)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
	assert.Zero(t, emb.Calls())
}

func TestIngest_LocalFailureIsHard(t *testing.T) {
	log, _ := testLogger()
	loc := &fakeLocal{addErr: errors.New("disk full")}
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, loc, nil, log)
	_, err := svc.Ingest(context.Background(), "text", nil, domain.TargetAuto)
	assert.ErrorContains(t, err, "disk full")
}

func TestIngest_BlankText(t *testing.T) {
	log, _ := testLogger()
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, &fakeLocal{}, nil, log)
	_, err := svc.Ingest(context.Background(), "  \n", nil, domain.TargetLocal)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestIngest_EmbedError(t *testing.T) {
	log, _ := testLogger()
	emb := newEmbedder()
	emb.err = errors.New("model offline")
	svc := NewVectorService(emb, chunker.New(), nil, &fakeLocal{}, nil, log)
	_, err := svc.Ingest(context.Background(), "text", nil, domain.TargetLocal)
	assert.ErrorContains(t, err, "model offline")
}

func TestSearch_MergesAndSanitizes(t *testing.T) {
	log, _ := testLogger()
	remote := availableRemote(true)
	remote.On("Search", mock.Anything, mock.Anything, 3).Return([]domain.SearchHit{
		{ID: "r1", Score: 0.9, Content: "remote best \U0001F680", Backend: domain.BackendRemote,
			Metadata: map[string]any{"source": "doc’s"}},
		{ID: "shared", Score: 0.4, Content: "remote shared", Backend: domain.BackendRemote},
	}, nil)
	loc := &fakeLocal{hits: []domain.SearchHit{
		{ID: "shared", Score: 0.7, Content: "local shared", Backend: domain.BackendLocal},
		{ID: "local-1", Score: 0.2, Content: "low", Backend: domain.BackendLocal},
		{ID: "local-2", Score: 0.1, Content: "lowest", Backend: domain.BackendLocal},
	}}
	svc := NewVectorService(newEmbedder(), chunker.New(), remote, loc, nil, log)

	hits, err := svc.Search(context.Background(), "query", 3, domain.TargetAuto)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, "r1", hits[0].ID)
	assert.Equal(t, "remote best", hits[0].Content)
	assert.Equal(t, "doc's", hits[0].Metadata["source"])
	assert.Equal(t, "shared", hits[1].ID)
	assert.Equal(t, "local shared", hits[1].Content)
	assert.Equal(t, "local-1", hits[2].ID)
}

func TestSearch_RemoteFailureDegrades(t *testing.T) {
	log, hook := testLogger()
	remote := availableRemote(true)
	remote.On("Search", mock.Anything, mock.Anything, mock.Anything).Return(nil, errRemoteDown)
	loc := &fakeLocal{hits: []domain.SearchHit{{ID: "local-1", Score: 0.5, Content: "kept"}}}
	svc := NewVectorService(newEmbedder(), chunker.New(), remote, loc, nil, log)

	hits, err := svc.Search(context.Background(), "query", 5, domain.TargetAuto)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "kept", hits[0].Content)
	require.NotNil(t, hook.LastEntry())
	assert.Equal(t, "search", hook.LastEntry().Data["op"])
}

func TestSearch_BlankQuery(t *testing.T) {
	log, _ := testLogger()
	emb := newEmbedder()
	loc := &fakeLocal{}
	svc := NewVectorService(emb, chunker.New(), nil, loc, nil, log)
	hits, err := svc.Search(context.Background(), "   ", 5, domain.TargetAuto)
	require.NoError(t, err)
	assert.Empty(t, hits)
	assert.Zero(t, emb.Calls())
	assert.Zero(t, loc.searchN)
}

func TestMerge(t *testing.T) {
	hits := []domain.SearchHit{
		{ID: "a", Score: 0.5, Content: "first a"},
		{ID: "b", Score: 0.5, Content: "b"},
		{ID: "a", Score: 0.5, Content: "second a"},
		{ID: "c", Score: 0.8},
		{ID: "b", Score: 0.6, Content: "better b"},
	}
	got := Merge(hits, 10)
	require.Len(t, got, 3)
	assert.Equal(t, "c", got[0].ID)
	assert.Equal(t, "better b", got[1].Content)
	assert.Equal(t, "first a", got[2].Content)

	assert.Len(t, Merge(hits, 2), 2)
	assert.Empty(t, Merge(nil, 3))
	assert.Empty(t, Merge(hits, 0))
}

func TestAnswer_EmptyStoreNeverSummarizes(t *testing.T) {
	log, _ := testLogger()
	sum := &mockSummarizer{}
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, &fakeLocal{}, sum, log)

	res, err := svc.Answer(context.Background(), "anything?", 5, domain.TargetAuto)
	require.NoError(t, err)
	assert.Equal(t, NoContextAnswer, res.Answer)
	assert.NotNil(t, res.Sources)
	assert.Empty(t, res.Sources)
	assert.Empty(t, res.Context)
	sum.AssertNotCalled(t, "Summarize", mock.Anything, mock.Anything, mock.Anything)
}

func TestAnswer_SummarizesContextAndQuestion(t *testing.T) {
	log, _ := testLogger()
	loc := &fakeLocal{hits: []domain.SearchHit{
		{ID: "local-1", Score: 0.9, Content: "Revenue grew."},
		{ID: "local-2", Score: 0.8, Content: ""},
		{ID: "local-3", Score: 0.7, Content: "Costs fell."},
	}}
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, "Revenue grew.\n\nCosts fell.\n\nQuestion: How did revenue do?", 40).
		Return("Revenue grew ✨", nil)
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, loc, sum, log, WithSummaryMaxLength(40))

	res, err := svc.Answer(context.Background(), "How did revenue do?", 5, domain.TargetLocal)
	require.NoError(t, err)
	assert.Equal(t, "Revenue grew", res.Answer)
	assert.Equal(t, "Revenue grew.\n\nCosts fell.", res.Context)
	assert.Len(t, res.Sources, 3)
	sum.AssertExpectations(t)
}

func TestAnswer_SummarizerFailureFallsBack(t *testing.T) {
	log, _ := testLogger()
	loc := &fakeLocal{hits: []domain.SearchHit{{ID: "local-1", Score: 1, Content: "One. Two. Three. Four."}}}
	sum := &mockSummarizer{}
	sum.On("Summarize", mock.Anything, mock.Anything, mock.Anything).Return("", errors.New("unreachable"))
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, loc, sum, log)

	res, err := svc.Answer(context.Background(), "q", 5, domain.TargetLocal)
	require.NoError(t, err)
	assert.Equal(t, "One. Two. Three.", res.Answer)
}

func TestSummarize(t *testing.T) {
	log, _ := testLogger()
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, &fakeLocal{}, nil, log)
	got, err := svc.Summarize(context.Background(), "First “point”. Second. Third. Fourth.")
	require.NoError(t, err)
	assert.Equal(t, `First "point". Second. Third.`, got)
}

func TestRemoteStatusAndRecentUploads(t *testing.T) {
	log, _ := testLogger()
	svc := NewVectorService(newEmbedder(), chunker.New(), nil, &fakeLocal{}, nil, log)
	assert.Equal(t, domain.RemoteStatus{}, svc.RemoteStatus())
	assert.Empty(t, svc.RecentUploads(context.Background(), 0))

	remote := availableRemote(true)
	status := domain.RemoteStatus{Available: true, URL: "http://q:6333", Collection: "c", VectorDim: 384}
	remote.On("Status").Return(status)
	remote.On("ListRecent", mock.Anything, DefaultRecentLimit).Return([]map[string]any{
		{"source": "report \U0001F4C4", "page": 2},
	}, nil).Once()
	remote.On("ListRecent", mock.Anything, 3).Return(nil, errRemoteDown).Once()
	svc = NewVectorService(newEmbedder(), chunker.New(), remote, &fakeLocal{}, nil, log)

	assert.Equal(t, status, svc.RemoteStatus())
	assert.Equal(t, []map[string]any{{"source": "report", "page": 2}}, svc.RecentUploads(context.Background(), 0))
	assert.Empty(t, svc.RecentUploads(context.Background(), 3))
}

func newSQLiteService(t *testing.T, ch domain.Chunker) (*VectorService, *countingEmbedder) {
	t.Helper()
	store, err := local.Open(filepath.Join(t.TempDir(), "chunks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	log, _ := testLogger()
	emb := &countingEmbedder{Embedder: hashing.NewEmbedder(hashing.DefaultDimension)}
	return NewVectorService(emb, ch, nil, local.NewBackend(store, local.BuildFlatIndex), nil, log), emb
}

func TestScenario_TwelveHundredWordsLocal(t *testing.T) {
	words := make([]string, 1200)
	for i := range words {
		words[i] = fmt.Sprintf("term%d", i)
	}
	svc, _ := newSQLiteService(t, chunker.New(chunker.WithChunkSize(500), chunker.WithOverlap(0)))
	ctx := context.Background()

	records, err := svc.Ingest(ctx, strings.Join(words, " "), map[string]string{"source": "long.txt"}, domain.TargetAuto)
	require.NoError(t, err)
	require.Len(t, records, 3)
	for _, r := range records {
		assert.Equal(t, domain.BackendLocal, r.Backend)
	}

	hits, err := svc.Search(ctx, records[1].Text, 5, domain.TargetAuto)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, records[1].ID, hits[0].ID)
	assert.InDelta(t, 1.0, hits[0].Score, 1e-9)
	assert.Equal(t, records[1].Text, hits[0].Content)
	assert.Equal(t, "long.txt", hits[0].Metadata["source"])
}

func TestScenario_IdenticalQueryRanksFirst(t *testing.T) {
	svc, _ := newSQLiteService(t, chunker.New())
	ctx := context.Background()
	docs := []string{
		"Revenue grew in the northern region during the third quarter.",
		"Hiring slowed across engineering teams after the reorganization.",
		"The roadmap focuses on reliability work and incident reduction.",
	}
	for _, d := range docs {
		_, err := svc.Ingest(ctx, d, nil, domain.TargetLocal)
		require.NoError(t, err)
	}
	for _, d := range docs {
		hits, err := svc.Search(ctx, d, 1, domain.TargetLocal)
		require.NoError(t, err)
		require.Len(t, hits, 1)
		assert.Equal(t, d, hits[0].Content)
		assert.Greater(t, hits[0].Score, 0.0)
		assert.LessOrEqual(t, hits[0].Score, 1.0)
	}

	res, err := svc.Answer(ctx, "How did revenue do?", 2, domain.TargetLocal)
	require.NoError(t, err)
	assert.NotEqual(t, NoContextAnswer, res.Answer)
	assert.NotEmpty(t, res.Context)
}
