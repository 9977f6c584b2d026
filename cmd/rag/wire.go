package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"multirag/internal/chunker"
	"multirag/internal/cli"
	"multirag/internal/config"
	"multirag/internal/domain"
	"multirag/internal/embedding/hashing"
	embopenai "multirag/internal/embedding/openai"
	"multirag/internal/extract"
	"multirag/internal/ingest"
	"multirag/internal/service"
	"multirag/internal/summarizer"
	sumopenai "multirag/internal/summarizer/openai"
	"multirag/internal/vectorstore/local"
	"multirag/internal/vectorstore/qdrant"
)

// build assembles every component from cfg.
func build(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) (*cli.Services, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}
	ch, err := newChunker(cfg)
	if err != nil {
		return nil, err
	}
	sum, err := newSummarizer(cfg, log)
	if err != nil {
		return nil, err
	}

	var remote domain.RemoteBackend
	if cfg.Remote.Enabled {
		q := qdrant.NewStorage(qdrant.Config{
			URL:        cfg.Remote.URL,
			APIKey:     cfg.Remote.APIKey,
			Collection: cfg.Remote.Collection,
			VectorDim:  cfg.Remote.VectorDim,
			Timeout:    time.Duration(cfg.Remote.TimeoutSecs) * time.Second,
		}, log)
		q.Connect(ctx)
		remote = q
	}

	store, err := local.Open(cfg.Local.Path)
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	indexBuilder, err := local.BuilderFor(cfg.Local.Index)
	if err != nil {
		store.Close()
		return nil, err
	}

	svc := service.NewVectorService(emb, ch, remote, local.NewBackend(store, indexBuilder), sum, log,
		service.WithSummaryMaxLength(cfg.Summarizer.MaxLength))

	registry := extract.NewRegistry(extract.Config{
		TesseractBin:  cfg.Extract.TesseractBin,
		WhisperBin:    cfg.Extract.WhisperBin,
		WhisperModel:  cfg.Extract.WhisperModel,
		FFmpegBin:     cfg.Extract.FFmpegBin,
		UserAgent:     cfg.Extract.UserAgent,
		URLTimeout:    time.Duration(cfg.Extract.URLTimeoutSecs) * time.Second,
		RespectRobots: cfg.Extract.RespectRobots,
	}, nil)

	log.WithFields(logrus.Fields{
		"embedder":   emb.Name(),
		"dimension":  emb.Dimension(),
		"remote":     svc.RemoteStatus().Available,
		"local_path": store.Path(),
		"index":      cfg.Local.Index,
	}).Debug("services ready")

	return &cli.Services{
		Vector:   svc,
		Ingester: ingest.NewPipeline(registry, registry.URL(), svc, log),
		Duplicates: func(threshold float64, target domain.Target) cli.DuplicateChecker {
			return service.NewDuplicateDetector(svc, emb,
				service.WithThreshold(threshold),
				service.WithDuplicateTopK(cfg.Duplicates.TopK),
				service.WithTarget(target))
		},
		Close: store.Close,
	}, nil
}

func newEmbedder(cfg *config.AppConfig) (domain.Embedder, error) {
	switch cfg.Embedder.Type {
	case "hashing", "":
		return hashing.NewEmbedder(cfg.Embedder.Dimension), nil
	case "openai":
		o := cfg.Embedder.OpenAI
		client, err := embopenai.NewClient(embopenai.Config{
			BaseURL:           o.BaseURL,
			APIKeyEnv:         o.APIKeyEnv,
			Model:             o.Model,
			Timeout:           time.Duration(o.TimeoutSecs) * time.Second,
			Dimension:         cfg.Embedder.Dimension,
			RequestsPerSecond: o.RequestsPerSecond,
			MaxRetries:        o.MaxRetries,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedder init failed: %w", err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown embedder: %s", cfg.Embedder.Type)
	}
}

func newChunker(cfg *config.AppConfig) (domain.Chunker, error) {
	switch cfg.Chunker.Type {
	case "word", "":
		return chunker.New(
			chunker.WithChunkSize(cfg.Chunker.ChunkSize),
			chunker.WithOverlap(cfg.Chunker.Overlap),
		), nil
	case "sentence":
		return chunker.NewSentenceChunker(cfg.Chunker.SentencesPerChunk, cfg.Chunker.OverlapSentences), nil
	default:
		return nil, fmt.Errorf("unknown chunker: %s", cfg.Chunker.Type)
	}
}

// newSummarizer returns the primary summarizer. An unavailable model yields nil,
// leaving the service on its lead-sentence fallback.
func newSummarizer(cfg *config.AppConfig, log *logrus.Entry) (domain.Summarizer, error) {
	switch cfg.Summarizer.Type {
	case "lead", "":
		return summarizer.NewLeadSummarizer(cfg.Summarizer.LeadSentences), nil
	case "frequency":
		return summarizer.NewFrequencySummarizer(), nil
	case "openai":
		o := cfg.Summarizer.OpenAI
		s, err := sumopenai.NewSummarizer(sumopenai.Config{
			BaseURL:           o.BaseURL,
			APIKeyEnv:         o.APIKeyEnv,
			Model:             o.Model,
			Timeout:           time.Duration(o.TimeoutSecs) * time.Second,
			RequestsPerSecond: o.RequestsPerSecond,
			MaxRetries:        o.MaxRetries,
		})
		if errors.Is(err, domain.ErrSummarizerUnavailable) {
			log.WithError(err).Warn("openai summarizer unavailable, using lead sentences")
			return nil, nil
		}
		return s, err
	default:
		return nil, fmt.Errorf("unknown summarizer: %s", cfg.Summarizer.Type)
	}
}
