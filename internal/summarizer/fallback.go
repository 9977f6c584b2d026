package summarizer

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"

	"multirag/internal/domain"
)

type fallbackSummarizer struct {
	primary  domain.Summarizer
	fallback domain.Summarizer
	log      *logrus.Entry
}

// WithFallback returns a summarizer that tries primary and answers from fallback
// whenever primary is nil, fails or returns nothing.
func WithFallback(primary, fallback domain.Summarizer, log *logrus.Entry) domain.Summarizer {
	if fallback == nil {
		fallback = NewLeadSummarizer(DefaultLeadSentences)
	}
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &fallbackSummarizer{primary: primary, fallback: fallback, log: log}
}

func (s *fallbackSummarizer) Summarize(ctx context.Context, text string, maxLength int) (string, error) {
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	if s.primary != nil {
		out, err := s.primary.Summarize(ctx, text, maxLength)
		switch {
		case err != nil:
			s.log.WithError(err).WithField("summarizer", "primary").Warn("summarizer failed, using fallback")
		case strings.TrimSpace(out) == "":
			s.log.WithField("summarizer", "primary").Warn("summarizer returned empty output, using fallback")
		default:
			return out, nil
		}
	}
	return s.fallback.Summarize(ctx, text, maxLength)
}
