package service

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"multirag/internal/domain"
	"multirag/internal/sanitize"
)

const (
	DefaultDuplicateThreshold = 0.85
	DefaultDuplicateTopK      = 5
)

// DuplicateDetector finds stored chunks semantically close to a candidate text.
type DuplicateDetector struct {
	svc       *VectorService
	embedder  domain.Embedder
	threshold float64
	topK      int
	target    domain.Target
}

type DuplicateOption func(*DuplicateDetector)

func WithThreshold(t float64) DuplicateOption {
	return func(d *DuplicateDetector) { d.threshold = t }
}

func WithDuplicateTopK(k int) DuplicateOption {
	return func(d *DuplicateDetector) { d.topK = k }
}

func WithTarget(t domain.Target) DuplicateOption {
	return func(d *DuplicateDetector) { d.target = t }
}

func NewDuplicateDetector(svc *VectorService, embedder domain.Embedder, opts ...DuplicateOption) *DuplicateDetector {
	d := &DuplicateDetector{
		svc:       svc,
		embedder:  embedder,
		threshold: DefaultDuplicateThreshold,
		topK:      DefaultDuplicateTopK,
		target:    domain.TargetAuto,
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.topK <= 0 {
		d.topK = DefaultDuplicateTopK
	}
	return d
}

// Check returns the retrieved hits whose re-embedded content has cosine similarity
// with text at or above the threshold. The candidate is sanitized like hit content
// before its single embedding, so identical text always scores 1.
func (d *DuplicateDetector) Check(ctx context.Context, text string) ([]domain.DuplicateCandidate, error) {
	if strings.TrimSpace(text) == "" {
		return []domain.DuplicateCandidate{}, nil
	}
	if _, err := d.svc.selection(d.target); err != nil {
		return nil, err
	}
	query, err := d.embedder.Embed(ctx, sanitize.Text(text))
	if err != nil {
		return nil, fmt.Errorf("embed candidate: %w", err)
	}
	hits, err := d.svc.SearchVector(ctx, query, d.topK, d.target)
	if err != nil {
		return nil, err
	}
	out := []domain.DuplicateCandidate{}
	for _, h := range hits {
		if h.Content == "" {
			continue
		}
		vec, err := d.embedder.Embed(ctx, h.Content)
		if err != nil {
			return nil, fmt.Errorf("embed hit %s: %w", h.ID, err)
		}
		if sim := Cosine(query, vec); sim >= d.threshold {
			out = append(out, domain.DuplicateCandidate{SearchHit: h, Similarity: sim})
		}
	}
	return out, nil
}

// Cosine returns the cosine similarity of a and b; a zero-norm or mismatched
// input yields 0.
func Cosine(a, b []float64) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += a[i] * b[i]
		na += a[i] * a[i]
		nb += b[i] * b[i]
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// ContentHash is the hex md5 of text, used for exact-duplicate checks.
func ContentHash(text string) string {
	sum := md5.Sum([]byte(text))
	return hex.EncodeToString(sum[:])
}

// IsExactDuplicate reports whether the hash of text is already in known.
func IsExactDuplicate(text string, known map[string]struct{}) bool {
	_, ok := known[ContentHash(text)]
	return ok
}
