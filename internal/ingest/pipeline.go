// Package ingest runs extraction, cleaning and vector ingestion as one step.
package ingest

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"multirag/internal/cleaner"
	"multirag/internal/domain"
	"multirag/internal/extract"
)

// Resolver finds the extractor for a file path.
type Resolver interface {
	For(path string) (domain.Extractor, error)
}

// Store is the part of the vector service the pipeline writes through.
type Store interface {
	Ingest(ctx context.Context, text string, metadata map[string]string, target domain.Target) ([]domain.VectorRecord, error)
}

// Result describes one ingested input.
type Result struct {
	Source   string                `json:"source"`
	Modality string                `json:"modality"`
	Chars    int                   `json:"chars"`
	Records  []domain.VectorRecord `json:"records"`
}

type Pipeline struct {
	resolver Resolver
	url      domain.Extractor
	store    Store
	log      *logrus.Entry
}

func NewPipeline(resolver Resolver, url domain.Extractor, store Store, log *logrus.Entry) *Pipeline {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Pipeline{resolver: resolver, url: url, store: store, log: log}
}

// IngestFile extracts path with the extractor registered for its extension.
// source overrides the recorded source, which defaults to the file name.
func (p *Pipeline) IngestFile(ctx context.Context, path, source string, target domain.Target) (Result, error) {
	ex, err := p.resolver.For(path)
	if err != nil {
		return Result{}, fmt.Errorf("ingest %s: %w", path, err)
	}
	if source == "" {
		source = filepath.Base(path)
	}
	return p.run(ctx, ex, path, source, target)
}

// IngestURL fetches rawURL and ingests its visible text.
func (p *Pipeline) IngestURL(ctx context.Context, rawURL, source string, target domain.Target) (Result, error) {
	if p.url == nil {
		return Result{}, fmt.Errorf("ingest %s: %w: url extraction disabled", rawURL, domain.ErrUnsupportedInput)
	}
	if source == "" {
		source = rawURL
	}
	return p.run(ctx, p.url, rawURL, source, target)
}

// IngestText cleans and ingests raw text.
func (p *Pipeline) IngestText(ctx context.Context, text, source string, target domain.Target) (Result, error) {
	return p.write(ctx, cleaner.CleanText(text), source, extract.ModalityText, target)
}

// Ingest dispatches on input: http(s) URLs go to IngestURL, everything else to IngestFile.
func (p *Pipeline) Ingest(ctx context.Context, input, source string, target domain.Target) (Result, error) {
	if IsURL(input) {
		return p.IngestURL(ctx, input, source, target)
	}
	return p.IngestFile(ctx, input, source, target)
}

func IsURL(input string) bool {
	lower := strings.ToLower(input)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

func (p *Pipeline) run(ctx context.Context, ex domain.Extractor, input, source string, target domain.Target) (Result, error) {
	pages, err := ex.Extract(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("extract %s: %w", input, err)
	}
	p.log.WithFields(logrus.Fields{
		"input":    input,
		"modality": ex.Modality(),
		"pages":    len(pages),
	}).Debug("extracted")
	return p.write(ctx, cleaner.Clean(pages), source, ex.Modality(), target)
}

func (p *Pipeline) write(ctx context.Context, text, source, modality string, target domain.Target) (Result, error) {
	res := Result{Source: source, Modality: modality, Chars: len(text)}
	if strings.TrimSpace(text) == "" {
		return res, fmt.Errorf("ingest %s: %w", source, domain.ErrExtractionEmpty)
	}
	metadata := map[string]string{"modality": modality}
	if source != "" {
		metadata["source"] = source
	}
	records, err := p.store.Ingest(ctx, text, metadata, target)
	res.Records = records
	if err != nil {
		return res, err
	}
	p.log.WithFields(logrus.Fields{
		"source":   source,
		"modality": modality,
		"records":  len(records),
	}).Info("ingested")
	return res, nil
}
