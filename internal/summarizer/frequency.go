package summarizer

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strings"
)

// FrequencySummarizer ranks sentences by word frequency (stopwords filtered).
type FrequencySummarizer struct {
	tokenPattern    *regexp.Regexp
	sentencePattern *regexp.Regexp
	stopwords       map[string]struct{}
}

// NewFrequencySummarizer creates a frequency-based sentence ranker summarizer.
func NewFrequencySummarizer() *FrequencySummarizer {
	return &FrequencySummarizer{
		tokenPattern:    regexp.MustCompile(`\p{L}+(?:['’]\p{L}+)*`),
		sentencePattern: regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`),
		stopwords:       defaultStopwords(),
	}
}

// Summarize picks the best-scoring sentences that fit in maxLength words and
// returns them in their original order.
func (s *FrequencySummarizer) Summarize(_ context.Context, text string, maxLength int) (string, error) {
	if maxLength <= 0 {
		maxLength = DefaultMaxLength
	}
	var sentences []string
	for _, sent := range s.sentencePattern.FindAllString(text, -1) {
		if sent = strings.TrimSpace(sent); sent != "" {
			sentences = append(sentences, sent)
		}
	}
	if len(sentences) == 0 {
		return truncateWords(strings.TrimSpace(text), maxLength), nil
	}
	order := s.rank(sentences)

	var selected []int
	budget := maxLength
	for _, idx := range order {
		if n := len(strings.Fields(sentences[idx])); n <= budget {
			selected = append(selected, idx)
			budget -= n
		}
	}
	if len(selected) == 0 {
		return truncateWords(sentences[order[0]], maxLength), nil
	}
	sort.Ints(selected)
	out := make([]string, 0, len(selected))
	for _, idx := range selected {
		out = append(out, sentences[idx])
	}
	return strings.Join(out, " "), nil
}

// rank returns sentence indexes by descending score. A sentence scores the sum of
// its content words' frequencies relative to the most frequent word, damped by
// the square root of its length; ties keep document order.
func (s *FrequencySummarizer) rank(sentences []string) []int {
	freq := map[string]float64{}
	var top float64
	for _, sent := range sentences {
		for _, tok := range s.tokens(sent) {
			if _, stop := s.stopwords[tok]; stop {
				continue
			}
			freq[tok]++
			top = math.Max(top, freq[tok])
		}
	}
	score := make([]float64, len(sentences))
	order := make([]int, len(sentences))
	for i, sent := range sentences {
		order[i] = i
		toks := s.tokens(sent)
		if len(toks) == 0 || top == 0 {
			continue
		}
		for _, tok := range toks {
			score[i] += freq[tok] / top
		}
		score[i] /= math.Sqrt(float64(len(toks)))
	}
	sort.SliceStable(order, func(a, b int) bool { return score[order[a]] > score[order[b]] })
	return order
}

func (s *FrequencySummarizer) tokens(text string) []string {
	lower := strings.ToLower(text)
	return s.tokenPattern.FindAllString(lower, -1)
}

func defaultStopwords() map[string]struct{} {
	words := []string{
		"a", "an", "the", "and", "or", "but", "if", "then", "else", "for", "to", "of", "in", "on", "at", "by", "with", "as", "is", "are", "was", "were", "be", "been", "being", "it", "this", "that", "these", "those", "from", "up", "down", "over", "under", "again", "further", "than", "so", "such", "into", "about", "between", "through", "during", "before", "after", "above", "below", "out", "off", "own", "same", "too", "very", "can", "will", "just", "don", "should", "now",
	}
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
