// Package openai summarizes text through an OpenAI-compatible chat completion API.
package openai

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"golang.org/x/time/rate"

	"multirag/internal/domain"
)

const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o-mini"

	// maxInputChars caps how much text is sent per request.
	maxInputChars = 1024
)

type Config struct {
	BaseURL           string
	APIKeyEnv         string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	MaxRetries        int
}

type Summarizer struct {
	api     openai.Client
	model   string
	limiter *rate.Limiter
}

func NewSummarizer(cfg Config) (*Summarizer, error) {
	key := os.Getenv(cfg.APIKeyEnv)
	if key == "" {
		return nil, fmt.Errorf("%w: missing API key in env %s", domain.ErrSummarizerUnavailable, cfg.APIKeyEnv)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	s := &Summarizer{
		api: openai.NewClient(
			option.WithAPIKey(key),
			option.WithBaseURL(cfg.BaseURL),
			option.WithRequestTimeout(cfg.Timeout),
			option.WithMaxRetries(cfg.MaxRetries),
		),
		model: cfg.Model,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s, nil
}

func (s *Summarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	snippet := strings.TrimSpace(text)
	if snippet == "" {
		return "", nil
	}
	if r := []rune(snippet); len(r) > maxInputChars {
		snippet = string(r[:maxInputChars])
	}
	if maxLength <= 0 {
		maxLength = 160
	}
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("openai summarize: %w", err)
		}
	}
	resp, err := s.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(s.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage("You summarize documents. When the text ends with a question, answer it using only the text."),
			openai.UserMessage(prompt(snippet, maxLength)),
		},
		MaxTokens: openai.Int(int64(maxLength)),
	})
	if err != nil {
		return "", fmt.Errorf("openai summarize: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai summarize: no choices returned")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func prompt(text string, maxLength int) string {
	return fmt.Sprintf("Summarize the following text in at most %d words.\n\n%s", maxLength, text)
}
