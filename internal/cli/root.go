// Package cli implements the rag command line.
package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"multirag/internal/config"
	"multirag/internal/domain"
	"multirag/internal/ingest"
)

// VectorService is the retrieval surface the commands drive.
type VectorService interface {
	Search(ctx context.Context, query string, topK int, target domain.Target) ([]domain.SearchHit, error)
	Answer(ctx context.Context, query string, topK int, target domain.Target) (domain.AnswerResult, error)
	Summarize(ctx context.Context, text string) (string, error)
	RemoteStatus() domain.RemoteStatus
	RecentUploads(ctx context.Context, limit int) []map[string]any
}

// Ingester turns files, URLs and raw text into stored chunks.
type Ingester interface {
	Ingest(ctx context.Context, input, source string, target domain.Target) (ingest.Result, error)
	IngestText(ctx context.Context, text, source string, target domain.Target) (ingest.Result, error)
}

// DuplicateChecker reports stored chunks near a candidate text.
type DuplicateChecker interface {
	Check(ctx context.Context, text string) ([]domain.DuplicateCandidate, error)
}

// Services bundles the wired components. Duplicates builds a checker for a
// threshold and target.
type Services struct {
	Vector     VectorService
	Ingester   Ingester
	Duplicates func(threshold float64, target domain.Target) DuplicateChecker
	Close      func() error
}

// BuildFunc wires Services from configuration.
type BuildFunc func(ctx context.Context, cfg *config.AppConfig, log *logrus.Entry) (*Services, error)

var (
	cfgPath string
	verbose bool
	logJSON bool

	appConfig *config.AppConfig
	services  *Services
	build     BuildFunc
	logger    = logrus.New()
)

var rootCmd = &cobra.Command{
	Use:   "rag",
	Short: "Multimodal retrieval over documents, media and web pages",
	Long: `rag ingests PDFs, images, audio, video, markdown, text and URLs, stores
chunk embeddings in Qdrant and a local SQLite store, and answers searches
and questions from whichever backends are reachable.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
		if services != nil && services.Close != nil {
			return services.Close()
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML or TOML config (default ./config.yaml, then ~/.config/rag/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "log as JSON")
}

// Execute runs the root command, wiring services with b on first use.
func Execute(ctx context.Context, b BuildFunc) error {
	build = b
	return rootCmd.ExecuteContext(ctx)
}

// SetServices injects pre-wired services, bypassing config loading.
func SetServices(s *Services, cfg *config.AppConfig) {
	services = s
	appConfig = cfg
}

func setup(cmd *cobra.Command, _ []string) error {
	configureLogger(cmd)
	if services != nil {
		return nil
	}
	if build == nil {
		return errors.New("services not configured")
	}
	var err error
	if cfgPath != "" {
		appConfig, err = config.Load(cfgPath)
	} else {
		var path string
		appConfig, path, err = config.LoadDefault()
		logger.WithField("path", path).Debug("loaded config")
	}
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	services, err = build(cmd.Context(), appConfig, logEntry())
	if err != nil {
		return fmt.Errorf("failed to initialise services: %w", err)
	}
	return nil
}

func configureLogger(cmd *cobra.Command) {
	logger.SetOutput(cmd.ErrOrStderr())
	if logJSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
}

func logEntry() *logrus.Entry {
	return logger.WithField("service", "rag")
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// resolveTarget parses flag, falling back to the configured default target.
func resolveTarget(flag string) (domain.Target, error) {
	if flag == "" && appConfig != nil {
		flag = appConfig.Search.Target
	}
	return domain.ParseTarget(flag)
}

func resolveTopK(flag int) int {
	if flag > 0 {
		return flag
	}
	if appConfig != nil && appConfig.Search.TopK > 0 {
		return appConfig.Search.TopK
	}
	return 5
}
