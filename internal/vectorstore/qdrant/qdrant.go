package qdrant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"multirag/internal/domain"
)

const (
	DefaultURL        = "http://localhost:6333"
	DefaultCollection = "multirag_chunks"
	DefaultVectorDim  = 384
	DefaultTimeout    = 5 * time.Second
)

var errNotFound = errors.New("qdrant: not found")

// Storage is a minimal REST client to Qdrant.
// It assumes cosine distance and creates the collection if missing.
type Storage struct {
	url        string
	apiKey     string
	collection string
	dimension  int
	timeout    time.Duration
	client     *http.Client
	available  atomic.Bool
	log        *logrus.Entry
}

type Config struct {
	URL        string
	APIKey     string
	Collection string
	VectorDim  int
	Timeout    time.Duration
}

func NewStorage(cfg Config, log *logrus.Entry) *Storage {
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = DefaultVectorDim
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Storage{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		collection: cfg.Collection,
		dimension:  cfg.VectorDim,
		timeout:    cfg.Timeout,
		client:     &http.Client{},
		log:        log.WithField("backend", domain.BackendRemote),
	}
}

// Connect probes the service and prepares the collection. The result becomes the
// availability flag consulted by every auto-mode decision.
func (s *Storage) Connect(ctx context.Context) bool {
	err := s.do(ctx, http.MethodGet, s.url+"/collections", nil, nil)
	if err == nil {
		err = s.EnsureCollection(ctx, s.dimension)
	}
	if err != nil {
		s.log.WithError(err).WithField("url", s.url).Warn("unable to reach qdrant, remote backend disabled")
		s.available.Store(false)
		return false
	}
	s.available.Store(true)
	return true
}

func (s *Storage) Available() bool { return s.available.Load() }

func (s *Storage) Status() domain.RemoteStatus {
	return domain.RemoteStatus{
		Available:  s.Available(),
		URL:        s.url,
		Collection: s.collection,
		VectorDim:  s.dimension,
	}
}

// EnsureCollection creates the collection with cosine distance when it does not exist.
func (s *Storage) EnsureCollection(ctx context.Context, dimension int) error {
	if dimension <= 0 {
		return errors.New("invalid dimension")
	}
	err := s.do(ctx, http.MethodGet, s.collectionURL(""), nil, nil)
	if err == nil {
		return nil
	}
	if !errors.Is(err, errNotFound) {
		return err
	}
	body := map[string]any{
		"vectors": map[string]any{
			"size":     dimension,
			"distance": "Cosine",
		},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL(""), body, nil)
}

func (s *Storage) Upsert(ctx context.Context, id string, vector []float64, payload map[string]any) error {
	if id == "" {
		return errors.New("qdrant: empty point id")
	}
	body := map[string]any{
		"points": []map[string]any{{
			"id":      id,
			"vector":  vector,
			"payload": payload,
		}},
	}
	return s.do(ctx, http.MethodPut, s.collectionURL("/points?wait=true"), body, nil)
}

func (s *Storage) Search(ctx context.Context, vector []float64, k int) ([]domain.SearchHit, error) {
	if k <= 0 {
		k = 5
	}
	req := map[string]any{
		"vector":       vector,
		"limit":        k,
		"with_payload": true,
	}
	var resp struct {
		Result []struct {
			ID      json.RawMessage `json:"id"`
			Score   float64         `json:"score"`
			Payload map[string]any  `json:"payload"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/search"), req, &resp); err != nil {
		return nil, err
	}
	hits := make([]domain.SearchHit, 0, len(resp.Result))
	for _, r := range resp.Result {
		payload := r.Payload
		if payload == nil {
			payload = map[string]any{}
		}
		content, _ := payload["content"].(string)
		hits = append(hits, domain.SearchHit{
			ID:       pointID(r.ID),
			Score:    r.Score,
			Metadata: payload,
			Content:  content,
			Backend:  domain.BackendRemote,
		})
	}
	return hits, nil
}

// ListRecent returns up to limit stored payloads in scroll order.
func (s *Storage) ListRecent(ctx context.Context, limit int) ([]map[string]any, error) {
	if limit <= 0 {
		limit = 10
	}
	req := map[string]any{
		"limit":        limit,
		"with_payload": true,
		"with_vector":  false,
	}
	var resp struct {
		Result struct {
			Points []struct {
				Payload map[string]any `json:"payload"`
			} `json:"points"`
		} `json:"result"`
	}
	if err := s.do(ctx, http.MethodPost, s.collectionURL("/points/scroll"), req, &resp); err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(resp.Result.Points))
	for _, p := range resp.Result.Points {
		if p.Payload == nil {
			p.Payload = map[string]any{}
		}
		out = append(out, p.Payload)
	}
	return out, nil
}

func (s *Storage) collectionURL(suffix string) string {
	return fmt.Sprintf("%s/collections/%s%s", s.url, s.collection, suffix)
}

// pointID renders a string or numeric point id as text.
func pointID(raw json.RawMessage) string {
	var str string
	if err := json.Unmarshal(raw, &str); err == nil {
		return str
	}
	return strings.TrimSpace(string(raw))
}

func (s *Storage) do(ctx context.Context, method, url string, body any, out any) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant %s: encode body: %w", method, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if s.apiKey != "" {
		req.Header.Set("api-key", s.apiKey)
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("qdrant %s %s: %w", method, url, errNotFound)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("qdrant %s %s failed: %s", method, url, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}
