package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v10"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"multirag/internal/domain"
)

// OpenAIConfig holds settings shared by the OpenAI-compatible embedder and summarizer.
type OpenAIConfig struct {
	BaseURL           string  `yaml:"base_url" toml:"base_url" env:"BASE_URL"`
	APIKeyEnv         string  `yaml:"api_key_env" toml:"api_key_env"`
	Model             string  `yaml:"model" toml:"model" env:"MODEL"`
	TimeoutSecs       int     `yaml:"timeout_secs" toml:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" toml:"requests_per_second"`
	MaxRetries        int     `yaml:"max_retries" toml:"max_retries"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type      string       `yaml:"type" toml:"type" env:"RAG_EMBEDDER"`
	Dimension int          `yaml:"dimension" toml:"dimension" env:"RAG_EMBEDDING_DIM"`
	OpenAI    OpenAIConfig `yaml:"openai" toml:"openai" envPrefix:"RAG_EMBEDDER_OPENAI_"`
}

// ChunkerConfig configures how documents are split into chunks.
type ChunkerConfig struct {
	Type              string `yaml:"type" toml:"type" env:"RAG_CHUNKER"`
	ChunkSize         int    `yaml:"chunk_size" toml:"chunk_size" env:"RAG_CHUNK_SIZE"`
	Overlap           int    `yaml:"overlap" toml:"overlap" env:"RAG_CHUNK_OVERLAP"`
	SentencesPerChunk int    `yaml:"sentences_per_chunk" toml:"sentences_per_chunk"`
	OverlapSentences  int    `yaml:"overlap_sentences" toml:"overlap_sentences"`
}

// RemoteConfig contains connection details for the Qdrant vector service.
type RemoteConfig struct {
	Enabled     bool   `yaml:"enabled" toml:"enabled" env:"QDRANT_ENABLED"`
	URL         string `yaml:"url" toml:"url" env:"QDRANT_URL"`
	APIKey      string `yaml:"api_key" toml:"api_key" env:"QDRANT_API_KEY"`
	Collection  string `yaml:"collection" toml:"collection" env:"QDRANT_COLLECTION"`
	VectorDim   int    `yaml:"vector_dim" toml:"vector_dim" env:"QDRANT_VECTOR_DIM"`
	TimeoutSecs int    `yaml:"timeout_secs" toml:"timeout_secs" env:"QDRANT_TIMEOUT_SECS"`
}

// LocalConfig configures the SQLite-backed local store.
type LocalConfig struct {
	Path  string `yaml:"path" toml:"path" env:"RAG_LOCAL_PATH"`
	Index string `yaml:"index" toml:"index" env:"RAG_LOCAL_INDEX"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type          string       `yaml:"type" toml:"type" env:"RAG_SUMMARIZER"`
	MaxLength     int          `yaml:"max_length" toml:"max_length" env:"RAG_SUMMARY_MAX_LENGTH"`
	LeadSentences int          `yaml:"lead_sentences" toml:"lead_sentences"`
	OpenAI        OpenAIConfig `yaml:"openai" toml:"openai" envPrefix:"RAG_SUMMARIZER_OPENAI_"`
}

type SearchConfig struct {
	TopK   int    `yaml:"top_k" toml:"top_k" env:"RAG_TOP_K"`
	Target string `yaml:"target" toml:"target" env:"RAG_TARGET"`
}

type DuplicatesConfig struct {
	Threshold float64 `yaml:"threshold" toml:"threshold" env:"RAG_DUPLICATE_THRESHOLD"`
	TopK      int     `yaml:"top_k" toml:"top_k"`
}

// ExtractConfig names the external tools used for OCR and transcription.
type ExtractConfig struct {
	TesseractBin   string `yaml:"tesseract_bin" toml:"tesseract_bin" env:"RAG_TESSERACT_BIN"`
	WhisperBin     string `yaml:"whisper_bin" toml:"whisper_bin" env:"RAG_WHISPER_BIN"`
	WhisperModel   string `yaml:"whisper_model" toml:"whisper_model" env:"RAG_WHISPER_MODEL"`
	FFmpegBin      string `yaml:"ffmpeg_bin" toml:"ffmpeg_bin" env:"RAG_FFMPEG_BIN"`
	UserAgent      string `yaml:"user_agent" toml:"user_agent"`
	URLTimeoutSecs int    `yaml:"url_timeout_secs" toml:"url_timeout_secs"`
	RespectRobots  bool   `yaml:"respect_robots" toml:"respect_robots" env:"RAG_RESPECT_ROBOTS"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder   EmbedderConfig   `yaml:"embedder" toml:"embedder"`
	Chunker    ChunkerConfig    `yaml:"chunker" toml:"chunker"`
	Remote     RemoteConfig     `yaml:"remote" toml:"remote"`
	Local      LocalConfig      `yaml:"local" toml:"local"`
	Summarizer SummarizerConfig `yaml:"summarizer" toml:"summarizer"`
	Search     SearchConfig     `yaml:"search" toml:"search"`
	Duplicates DuplicatesConfig `yaml:"duplicates" toml:"duplicates"`
	Extract    ExtractConfig    `yaml:"extract" toml:"extract"`
}

// Load reads a config from a specified path, YAML or TOML by extension, then applies
// environment overrides. If the file does not exist, returns defaults.
func Load(path string) (*AppConfig, error) {
	cfg := defaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, err
	default:
		if err := unmarshal(path, data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("apply env overrides: %w", err)
	}
	applyConfigDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/rag/config.yaml.
// If neither exists, it writes defaults to ~/.config/rag/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); errors.Is(err, os.ErrNotExist) {
		if err := Save(userPath, defaultConfig()); err != nil {
			return nil, "", err
		}
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isTOML(path) {
		data, err = toml.Marshal(cfg)
	} else {
		data, err = yaml.Marshal(cfg)
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Validate rejects settings no component can run with.
func (c *AppConfig) Validate() error {
	var errs []error
	if !oneOf(c.Embedder.Type, "hashing", "openai") {
		errs = append(errs, fmt.Errorf("unknown embedder type %q", c.Embedder.Type))
	}
	if c.Embedder.Dimension <= 0 {
		errs = append(errs, fmt.Errorf("embedder dimension must be positive, got %d", c.Embedder.Dimension))
	}
	if !oneOf(c.Chunker.Type, "word", "sentence") {
		errs = append(errs, fmt.Errorf("unknown chunker type %q", c.Chunker.Type))
	}
	if c.Chunker.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("chunk_size must be positive, got %d", c.Chunker.ChunkSize))
	}
	if c.Chunker.Overlap < 0 || c.Chunker.Overlap >= c.Chunker.ChunkSize {
		errs = append(errs, fmt.Errorf("overlap %d must be in [0, chunk_size %d)", c.Chunker.Overlap, c.Chunker.ChunkSize))
	}
	if c.Remote.Enabled && c.Remote.VectorDim != c.Embedder.Dimension {
		errs = append(errs, fmt.Errorf("remote vector_dim %d does not match embedder dimension %d", c.Remote.VectorDim, c.Embedder.Dimension))
	}
	if !oneOf(c.Local.Index, "flat", "chromem") {
		errs = append(errs, fmt.Errorf("unknown local index %q", c.Local.Index))
	}
	if !oneOf(c.Summarizer.Type, "lead", "frequency", "openai") {
		errs = append(errs, fmt.Errorf("unknown summarizer type %q", c.Summarizer.Type))
	}
	if _, err := domain.ParseTarget(c.Search.Target); err != nil {
		errs = append(errs, err)
	}
	if c.Duplicates.Threshold < -1 || c.Duplicates.Threshold > 1 {
		errs = append(errs, fmt.Errorf("duplicate threshold %v outside [-1, 1]", c.Duplicates.Threshold))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

func unmarshal(path string, data []byte, cfg *AppConfig) error {
	if isTOML(path) {
		return toml.Unmarshal(data, cfg)
	}
	return yaml.Unmarshal(data, cfg)
}

func isTOML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".toml")
}

func oneOf(v string, allowed ...string) bool {
	for _, a := range allowed {
		if v == a {
			return true
		}
	}
	return false
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "rag", "config.yaml"), nil
}

func defaultLocalPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".rag", "vectors.db")
	}
	return filepath.Join(home, ".local", "share", "rag", "vectors.db")
}

func defaultConfig() *AppConfig {
	return &AppConfig{
		Embedder: EmbedderConfig{Type: "hashing", Dimension: 384},
		Chunker: ChunkerConfig{
			Type: "word", ChunkSize: 600, Overlap: 120,
			SentencesPerChunk: 5, OverlapSentences: 1,
		},
		Remote: RemoteConfig{
			Enabled: true, URL: "http://localhost:6333", Collection: "multirag_chunks",
			VectorDim: 384, TimeoutSecs: 5,
		},
		Local:      LocalConfig{Path: defaultLocalPath(), Index: "flat"},
		Summarizer: SummarizerConfig{Type: "lead", MaxLength: 160, LeadSentences: 3},
		Search:     SearchConfig{TopK: 5, Target: "auto"},
		Duplicates: DuplicatesConfig{Threshold: 0.85, TopK: 5},
		Extract: ExtractConfig{
			TesseractBin: "tesseract", WhisperBin: "whisper", WhisperModel: "base", FFmpegBin: "ffmpeg",
			UserAgent: "multirag/1.0", URLTimeoutSecs: 30, RespectRobots: true,
		},
	}
}

// applyConfigDefaults fills values a partial file may have zeroed.
func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Chunker.SentencesPerChunk == 0 {
		cfg.Chunker.SentencesPerChunk = 5
	}
	if cfg.Summarizer.MaxLength <= 0 {
		cfg.Summarizer.MaxLength = 160
	}
	if cfg.Summarizer.LeadSentences <= 0 {
		cfg.Summarizer.LeadSentences = 3
	}
	if cfg.Search.TopK <= 0 {
		cfg.Search.TopK = 5
	}
	if cfg.Duplicates.TopK <= 0 {
		cfg.Duplicates.TopK = 5
	}
	if cfg.Remote.TimeoutSecs <= 0 {
		cfg.Remote.TimeoutSecs = 5
	}
	if cfg.Extract.URLTimeoutSecs <= 0 {
		cfg.Extract.URLTimeoutSecs = 30
	}
	applyOpenAIDefaults(&cfg.Embedder.OpenAI, "text-embedding-3-small")
	applyOpenAIDefaults(&cfg.Summarizer.OpenAI, "gpt-4o-mini")
}

func applyOpenAIDefaults(c *OpenAIConfig, model string) {
	if c.BaseURL == "" {
		c.BaseURL = "https://api.openai.com/v1"
	}
	if c.APIKeyEnv == "" {
		c.APIKeyEnv = "OPENAI_API_KEY"
	}
	if c.Model == "" {
		c.Model = model
	}
	if c.TimeoutSecs == 0 {
		c.TimeoutSecs = 30
	}
	if c.MaxRetries == 0 {
		c.MaxRetries = 2
	}
}
