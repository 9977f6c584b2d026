package summarizer

import (
	"context"
	"strings"
)

const (
	DefaultMaxLength     = 160
	DefaultLeadSentences = 3
)

// LeadSummarizer returns the opening sentences of a text. It has no dependencies
// and is the fallback behind every other summarizer.
type LeadSummarizer struct {
	sentences int
}

func NewLeadSummarizer(sentences int) *LeadSummarizer {
	if sentences <= 0 {
		sentences = DefaultLeadSentences
	}
	return &LeadSummarizer{sentences: sentences}
}

// Summarize keeps the first sentences (split on '.') and cuts the result to maxLength words.
func (s *LeadSummarizer) Summarize(_ context.Context, text string, maxLength int) (string, error) {
	snippet := strings.TrimSpace(text)
	if snippet == "" {
		return "", nil
	}
	parts := strings.Split(snippet, ".")
	n := s.sentences
	if n > len(parts) {
		n = len(parts)
	}
	out := strings.TrimSpace(strings.Join(parts[:n], "."))
	if n < len(parts) && out != "" {
		out += "."
	}
	return truncateWords(out, maxLength), nil
}

func truncateWords(text string, maxLength int) string {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	words := strings.Fields(text)
	if len(words) <= maxLength {
		return text
	}
	return strings.Join(words[:maxLength], " ")
}
