package ingest

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"multirag/internal/domain"
	"multirag/internal/extract"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Ingest(ctx context.Context, text string, metadata map[string]string, target domain.Target) ([]domain.VectorRecord, error) {
	args := m.Called(text, metadata, target)
	recs, _ := args.Get(0).([]domain.VectorRecord)
	return recs, args.Error(1)
}

type stubExtractor struct {
	modality string
	pages    []string
	err      error
	inputs   []string
}

func (s *stubExtractor) Modality() string { return s.modality }

func (s *stubExtractor) Extract(_ context.Context, input string) ([]string, error) {
	s.inputs = append(s.inputs, input)
	return s.pages, s.err
}

type stubResolver map[string]domain.Extractor

func (r stubResolver) For(path string) (domain.Extractor, error) {
	if e, ok := r[path]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedInput, path)
}

func testLogger() *logrus.Entry {
	logger, _ := test.NewNullLogger()
	return logrus.NewEntry(logger)
}

func TestPipeline_IngestFile_CleansAndTagsMetadata(t *testing.T) {
	pages := []string{
		"ACME Corp\nFirst page body.\nPage 1",
		"ACME Corp\nSecond page body.\nPage 2",
		"ACME Corp\nThird page body.\nPage 3",
	}
	pdf := &stubExtractor{modality: extract.ModalityPDF, pages: pages}
	store := &mockStore{}
	store.On("Ingest", mock.MatchedBy(func(text string) bool {
		return text == "First page body.\n\nSecond page body.\n\nThird page body."
	}), map[string]string{"source": "report.pdf", "modality": "pdf"}, domain.TargetAuto).
		Return([]domain.VectorRecord{{ID: "local-1", Backend: domain.BackendLocal}}, nil).Once()

	p := NewPipeline(stubResolver{"/tmp/docs/report.pdf": pdf}, nil, store, testLogger())
	res, err := p.IngestFile(context.Background(), "/tmp/docs/report.pdf", "", domain.TargetAuto)
	require.NoError(t, err)
	assert.Equal(t, "report.pdf", res.Source)
	assert.Equal(t, extract.ModalityPDF, res.Modality)
	assert.Len(t, res.Records, 1)
	store.AssertExpectations(t)
}

func TestPipeline_IngestFile_SourceOverride(t *testing.T) {
	txt := &stubExtractor{modality: extract.ModalityText, pages: []string{"hello world"}}
	store := &mockStore{}
	store.On("Ingest", "hello world", map[string]string{"source": "handbook", "modality": "text"}, domain.TargetLocal).
		Return([]domain.VectorRecord{}, nil).Once()

	p := NewPipeline(stubResolver{"a.txt": txt}, nil, store, testLogger())
	_, err := p.IngestFile(context.Background(), "a.txt", "handbook", domain.TargetLocal)
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestPipeline_EmptyExtraction(t *testing.T) {
	img := &stubExtractor{modality: extract.ModalityImage, pages: []string{"  \n", "---"}}
	store := &mockStore{}
	p := NewPipeline(stubResolver{"blank.png": img}, nil, store, testLogger())

	_, err := p.IngestFile(context.Background(), "blank.png", "", domain.TargetAuto)
	assert.ErrorIs(t, err, domain.ErrExtractionEmpty)
	store.AssertNotCalled(t, "Ingest", mock.Anything, mock.Anything, mock.Anything)
}

func TestPipeline_UnsupportedFile(t *testing.T) {
	store := &mockStore{}
	p := NewPipeline(stubResolver{}, nil, store, testLogger())
	_, err := p.IngestFile(context.Background(), "archive.zip", "", domain.TargetAuto)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestPipeline_ExtractError(t *testing.T) {
	boom := errors.New("tesseract: not found")
	img := &stubExtractor{modality: extract.ModalityImage, err: boom}
	p := NewPipeline(stubResolver{"scan.png": img}, nil, &mockStore{}, testLogger())
	_, err := p.IngestFile(context.Background(), "scan.png", "", domain.TargetAuto)
	assert.ErrorIs(t, err, boom)
}

func TestPipeline_Ingest_DispatchesURL(t *testing.T) {
	web := &stubExtractor{modality: extract.ModalityURL, pages: []string{"Release notes Version 2"}}
	store := &mockStore{}
	store.On("Ingest", "Release notes Version 2",
		map[string]string{"source": "https://example.com/notes", "modality": "url"}, domain.TargetRemote).
		Return([]domain.VectorRecord{{ID: "x"}}, nil).Once()

	p := NewPipeline(stubResolver{}, web, store, testLogger())
	res, err := p.Ingest(context.Background(), "https://example.com/notes", "", domain.TargetRemote)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://example.com/notes"}, web.inputs)
	assert.Equal(t, extract.ModalityURL, res.Modality)
	store.AssertExpectations(t)
}

func TestPipeline_IngestURL_Disabled(t *testing.T) {
	p := NewPipeline(stubResolver{}, nil, &mockStore{}, testLogger())
	_, err := p.IngestURL(context.Background(), "https://example.com", "", domain.TargetAuto)
	assert.ErrorIs(t, err, domain.ErrUnsupportedInput)
}

func TestPipeline_IngestText(t *testing.T) {
	store := &mockStore{}
	store.On("Ingest", "Quarterly roadmap items", map[string]string{"modality": "text"}, domain.TargetAuto).
		Return([]domain.VectorRecord{{ID: "local-1"}}, nil).Once()

	p := NewPipeline(stubResolver{}, nil, store, testLogger())
	res, err := p.IngestText(context.Background(), "  Quarterly   roadmap items \n", "", domain.TargetAuto)
	require.NoError(t, err)
	assert.Empty(t, res.Source)
	store.AssertExpectations(t)

	_, err = p.IngestText(context.Background(), "   ", "", domain.TargetAuto)
	assert.ErrorIs(t, err, domain.ErrExtractionEmpty)
}

func TestPipeline_StoreErrorPropagates(t *testing.T) {
	store := &mockStore{}
	store.On("Ingest", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, domain.ErrBackendUnavailable).Once()
	p := NewPipeline(stubResolver{}, nil, store, testLogger())
	_, err := p.IngestText(context.Background(), "some text", "notes", domain.TargetRemote)
	assert.ErrorIs(t, err, domain.ErrBackendUnavailable)
}

func TestIsURL(t *testing.T) {
	assert.True(t, IsURL("https://example.com"))
	assert.True(t, IsURL("HTTP://example.com"))
	assert.False(t, IsURL("./docs/http.txt"))
	assert.False(t, IsURL("ftp://example.com"))
}
