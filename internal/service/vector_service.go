package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"multirag/internal/domain"
	"multirag/internal/sanitize"
	"multirag/internal/summarizer"
)

// NoContextAnswer is returned by Answer when retrieval finds nothing to ground on.
const NoContextAnswer = "No context available yet. Please ingest content first."

const (
	DefaultTopK        = 5
	DefaultRecentLimit = 10
)

// VectorService ingests and retrieves chunks across the remote and local backends.
type VectorService struct {
	embedder         domain.Embedder
	chunker          domain.Chunker
	remote           domain.RemoteBackend
	local            domain.LocalBackend
	summarizer       domain.Summarizer
	summaryMaxLength int
	log              *logrus.Entry
}

type Option func(*VectorService)

// WithSummaryMaxLength sets the word budget passed to the summarizer.
func WithSummaryMaxLength(n int) Option {
	return func(s *VectorService) { s.summaryMaxLength = n }
}

// NewVectorService wires the service. remote may be nil when no remote backend is
// configured; the summarizer is always wrapped with the deterministic fallback.
func NewVectorService(
	embedder domain.Embedder,
	chunker domain.Chunker,
	remote domain.RemoteBackend,
	local domain.LocalBackend,
	sum domain.Summarizer,
	log *logrus.Entry,
	opts ...Option,
) *VectorService {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	s := &VectorService{
		embedder:         embedder,
		chunker:          chunker,
		remote:           remote,
		local:            local,
		summaryMaxLength: summarizer.DefaultMaxLength,
		log:              log,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.summarizer = summarizer.WithFallback(sum, nil, log)
	return s
}

func (s *VectorService) remoteAvailable() bool {
	return s.remote != nil && s.remote.Available()
}

func (s *VectorService) selection(target domain.Target) (domain.Selection, error) {
	sel, err := domain.Resolve(target, s.remoteAvailable())
	if err != nil {
		return sel, err
	}
	if sel.Local && s.local == nil {
		return sel, fmt.Errorf("local backend: %w", domain.ErrBackendUnavailable)
	}
	return sel, nil
}

func (s *VectorService) degraded(op string, err error) {
	s.log.WithFields(logrus.Fields{
		"backend": domain.BackendRemote,
		"op":      op,
	}).WithError(err).Warn("remote backend degraded, continuing on remaining backends")
}

// Ingest chunks text and writes every chunk to the selected backends, returning one
// record per chunk and backend actually written. Remote write failures are logged and
// skipped per chunk; a local write failure aborts the call.
func (s *VectorService) Ingest(ctx context.Context, text string, metadata map[string]string, target domain.Target) ([]domain.VectorRecord, error) {
	sel, err := s.selection(target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("ingest: %w: empty text", domain.ErrInvalidInput)
	}
	if metadata == nil {
		metadata = map[string]string{}
	}
	segments := s.chunker.Chunk(text)
	if len(segments) == 0 {
		segments = []string{text}
	}

	var records []domain.VectorRecord
	for i, segment := range segments {
		vec, err := s.embedder.Embed(ctx, segment)
		if err != nil {
			return records, fmt.Errorf("embed chunk %d: %w", i, err)
		}
		if sel.Remote {
			id := uuid.New().String()
			if err := s.remote.Upsert(ctx, id, vec, payload(metadata, segment)); err != nil {
				s.degraded("upsert", err)
			} else {
				records = append(records, domain.VectorRecord{
					ID: id, Text: segment, Metadata: metadata, Embedding: vec, Backend: domain.BackendRemote,
				})
			}
		}
		if sel.Local {
			id, err := s.local.Add(ctx, metadata["source"], segment, vec)
			if err != nil {
				return records, fmt.Errorf("local write chunk %d: %w", i, err)
			}
			records = append(records, domain.VectorRecord{
				ID: id, Text: segment, Metadata: metadata, Embedding: vec, Backend: domain.BackendLocal,
			})
		}
	}
	s.log.WithFields(logrus.Fields{
		"chunks":  len(segments),
		"records": len(records),
		"target":  string(target),
	}).Debug("ingested text")
	return records, nil
}

func payload(metadata map[string]string, content string) map[string]any {
	p := make(map[string]any, len(metadata)+1)
	for k, v := range metadata {
		p[k] = v
	}
	p["content"] = content
	return p
}

// Search embeds the query once and returns the merged, sanitized top hits.
func (s *VectorService) Search(ctx context.Context, query string, topK int, target domain.Target) ([]domain.SearchHit, error) {
	sel, err := s.selection(target)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(query) == "" {
		return []domain.SearchHit{}, nil
	}
	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	return s.search(ctx, vec, topK, sel)
}

// SearchVector is Search for a precomputed query vector.
func (s *VectorService) SearchVector(ctx context.Context, vector []float64, topK int, target domain.Target) ([]domain.SearchHit, error) {
	sel, err := s.selection(target)
	if err != nil {
		return nil, err
	}
	return s.search(ctx, vector, topK, sel)
}

func (s *VectorService) search(ctx context.Context, vec []float64, topK int, sel domain.Selection) ([]domain.SearchHit, error) {
	if topK <= 0 {
		topK = DefaultTopK
	}
	var hits []domain.SearchHit
	if sel.Remote {
		remoteHits, err := s.remote.Search(ctx, vec, topK)
		if err != nil {
			s.degraded("search", err)
		} else {
			hits = append(hits, remoteHits...)
		}
	}
	if sel.Local {
		localHits, err := s.local.Search(ctx, vec, topK)
		if err != nil {
			return nil, fmt.Errorf("local search: %w", err)
		}
		hits = append(hits, localHits...)
	}
	merged := Merge(hits, topK)
	for i := range merged {
		merged[i] = sanitize.Hit(merged[i])
	}
	return merged, nil
}

// Merge keeps the higher-scoring hit per id (the first seen on ties), sorts by score
// descending with a stable sort and truncates to topK. Hits without an id are never merged.
func Merge(hits []domain.SearchHit, topK int) []domain.SearchHit {
	out := make([]domain.SearchHit, 0, len(hits))
	pos := make(map[string]int, len(hits))
	for _, h := range hits {
		if h.ID == "" {
			out = append(out, h)
			continue
		}
		if i, ok := pos[h.ID]; ok {
			if h.Score > out[i].Score {
				out[i] = h
			}
			continue
		}
		pos[h.ID] = len(out)
		out = append(out, h)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if topK >= 0 && len(out) > topK {
		out = out[:topK]
	}
	return out
}

// Answer grounds a summary on retrieved context. With no context it returns
// NoContextAnswer and never calls the summarizer.
func (s *VectorService) Answer(ctx context.Context, query string, topK int, target domain.Target) (domain.AnswerResult, error) {
	hits, err := s.Search(ctx, query, topK, target)
	if err != nil {
		return domain.AnswerResult{}, err
	}
	parts := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Content != "" {
			parts = append(parts, h.Content)
		}
	}
	contextText := sanitize.Text(strings.Join(parts, "\n\n"))
	if contextText == "" {
		return domain.AnswerResult{Answer: NoContextAnswer, Sources: []domain.SearchHit{}}, nil
	}
	question := sanitize.Text(query)
	answer, err := s.summarizer.Summarize(ctx, contextText+"\n\nQuestion: "+question, s.summaryMaxLength)
	if err != nil {
		return domain.AnswerResult{}, fmt.Errorf("summarize answer: %w", err)
	}
	return domain.AnswerResult{
		Answer:  sanitize.Text(answer),
		Context: contextText,
		Sources: hits,
	}, nil
}

// Summarize runs the configured summarizer with its fallback.
func (s *VectorService) Summarize(ctx context.Context, text string) (string, error) {
	out, err := s.summarizer.Summarize(ctx, text, s.summaryMaxLength)
	if err != nil {
		return "", err
	}
	return sanitize.Text(out), nil
}

// RemoteStatus reports the remote backend connection state.
func (s *VectorService) RemoteStatus() domain.RemoteStatus {
	if s.remote == nil {
		return domain.RemoteStatus{}
	}
	return s.remote.Status()
}

// RecentUploads lists recent remote payloads. It never fails: an unavailable or
// failing remote backend yields an empty list.
func (s *VectorService) RecentUploads(ctx context.Context, limit int) []map[string]any {
	if !s.remoteAvailable() {
		return []map[string]any{}
	}
	if limit <= 0 {
		limit = DefaultRecentLimit
	}
	payloads, err := s.remote.ListRecent(ctx, limit)
	if err != nil {
		s.degraded("list_recent", err)
		return []map[string]any{}
	}
	out := make([]map[string]any, 0, len(payloads))
	for _, p := range payloads {
		out = append(out, sanitize.Metadata(p))
	}
	return out
}
