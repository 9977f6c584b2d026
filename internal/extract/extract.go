// Package extract turns input files and URLs into raw per-page text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"multirag/internal/domain"
)

// Modalities recorded in chunk metadata.
const (
	ModalityPDF      = "pdf"
	ModalityText     = "text"
	ModalityMarkdown = "markdown"
	ModalityImage    = "image"
	ModalityAudio    = "audio"
	ModalityVideo    = "video"
	ModalityURL      = "url"
)

// ErrDisallowedByRobots is returned when robots.txt forbids fetching a URL.
var ErrDisallowedByRobots = errors.New("disallowed by robots.txt")

// Config selects external tools and fetch behaviour.
type Config struct {
	TesseractBin  string
	WhisperBin    string
	WhisperModel  string
	FFmpegBin     string
	UserAgent     string
	URLTimeout    time.Duration
	RespectRobots bool
}

func (c Config) withDefaults() Config {
	if c.TesseractBin == "" {
		c.TesseractBin = "tesseract"
	}
	if c.WhisperBin == "" {
		c.WhisperBin = "whisper"
	}
	if c.WhisperModel == "" {
		c.WhisperModel = "base"
	}
	if c.FFmpegBin == "" {
		c.FFmpegBin = "ffmpeg"
	}
	if c.UserAgent == "" {
		c.UserAgent = "multirag/1.0"
	}
	if c.URLTimeout == 0 {
		c.URLTimeout = 30 * time.Second
	}
	return c
}

// Registry maps file extensions to extractors.
type Registry struct {
	byExt map[string]domain.Extractor
	url   *URLExtractor
}

// NewRegistry registers the built-in extractors. runner executes external tools;
// nil uses the host's processes.
func NewRegistry(cfg Config, runner CommandRunner) *Registry {
	cfg = cfg.withDefaults()
	if runner == nil {
		runner = ExecRunner{}
	}
	audio := &AudioExtractor{Runner: runner, Bin: cfg.WhisperBin, Model: cfg.WhisperModel}
	r := &Registry{
		byExt: map[string]domain.Extractor{},
		url:   NewURLExtractor(cfg, nil),
	}
	r.Register(&PDFExtractor{}, ".pdf")
	r.Register(&TextExtractor{}, ".txt", ".text", ".log", ".csv")
	r.Register(&MarkdownExtractor{}, ".md", ".markdown")
	r.Register(&ImageExtractor{Runner: runner, Bin: cfg.TesseractBin}, ".png", ".jpg", ".jpeg", ".tif", ".tiff", ".bmp", ".gif", ".webp")
	r.Register(audio, ".mp3", ".wav", ".m4a", ".flac", ".ogg")
	r.Register(&VideoExtractor{Runner: runner, Bin: cfg.FFmpegBin, Audio: audio}, ".mp4", ".mov", ".mkv", ".avi", ".webm")
	return r
}

// Register binds extensions (with leading dot, any case) to e.
func (r *Registry) Register(e domain.Extractor, exts ...string) {
	for _, ext := range exts {
		r.byExt[strings.ToLower(ext)] = e
	}
}

// For returns the extractor for path by extension.
func (r *Registry) For(path string) (domain.Extractor, error) {
	ext := strings.ToLower(filepath.Ext(path))
	if e, ok := r.byExt[ext]; ok {
		return e, nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnsupportedInput, ext)
}

// URL returns the web page extractor.
func (r *Registry) URL() *URLExtractor { return r.url }

func requireFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory", path)
	}
	return nil
}

// TextExtractor reads plain text; form feeds separate pages.
type TextExtractor struct{}

func (TextExtractor) Modality() string { return ModalityText }

func (TextExtractor) Extract(ctx context.Context, path string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text: %w", err)
	}
	return strings.Split(string(data), "\f"), nil
}
