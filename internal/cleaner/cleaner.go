// Package cleaner turns raw per-page extracted text into one normalized document,
// dropping repeated headers and footers and line-level noise.
package cleaner

import (
	"math"
	"regexp"
	"strings"
)

const (
	// HeaderFooterThreshold is the fraction of pages an edge line must appear on.
	HeaderFooterThreshold = 0.6
	// HeaderFooterMinCount keeps short documents from treating any repeat as boilerplate.
	HeaderFooterMinCount = 2
	// HeaderFooterMaxLength bounds the normalized length of a boilerplate line.
	HeaderFooterMaxLength = 120
)

var (
	bulletPrefix = regexp.MustCompile(`^\s*(?:[-*]|(?:\d+|[A-Za-z])[.)]|[\x{2022}\x{2023}\x{25E6}\x{2043}\x{2219}])\s+`)
	labelPrefix  = regexp.MustCompile(`(?i)^\s*(?:figure|table|listing|appendix)\s+(?:\d+|[a-z])[:.-]\s*`)
	nonPrintable = regexp.MustCompile(`[^\x09\x0A\x0D\x20-\x7E]`)
	whitespace   = regexp.MustCompile(`\s+`)

	noisePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)^\s*page\s+\d+(?:\s+of\s+\d+)?\s*$`),
		regexp.MustCompile(`(?i)^\s*confidential\b.*$`),
		regexp.MustCompile(`(?i)^\s*(?:\S+\s+){1,3}confidential\b\W*$`),
		regexp.MustCompile(`(?i)^\s*copyright\s+\d{4}.*$`),
		regexp.MustCompile(`(?i)^\s*all rights reserved.*$`),
	}

	spaceRun      = regexp.MustCompile(`[ \t]+`)
	aroundNewline = regexp.MustCompile(`[ \t]*\n[ \t]*`)
	newlineRun    = regexp.MustCompile(`\n{3,}`)
)

const residualBullets = "-*•"

// Clean normalizes an ordered list of raw page texts into one document string.
// It is pure: identical input always yields identical output.
func Clean(pages []string) string {
	if len(pages) == 0 {
		return ""
	}
	headers, footers := detectRepeatedEdges(pages)
	kept := make([]string, 0, len(pages))
	for _, page := range pages {
		if cleaned := cleanPage(page, headers, footers); cleaned != "" {
			kept = append(kept, cleaned)
		}
	}
	if len(kept) == 0 {
		return ""
	}
	return normalizeWhitespace(strings.Join(kept, "\n\n"))
}

// CleanText cleans a single extracted text, treating form feeds as page breaks.
func CleanText(text string) string {
	return Clean(strings.Split(text, "\f"))
}

func detectRepeatedEdges(pages []string) (headers, footers map[string]struct{}) {
	firstCounts := map[string]int{}
	lastCounts := map[string]int{}
	for _, raw := range pages {
		lines := prepareLines(raw)
		if len(lines) == 0 {
			continue
		}
		firstCounts[edgeKey(lines[0])]++
		lastCounts[edgeKey(lines[len(lines)-1])]++
	}
	threshold := int(math.Ceil(float64(len(pages)) * HeaderFooterThreshold))
	if threshold < HeaderFooterMinCount {
		threshold = HeaderFooterMinCount
	}
	return repeated(firstCounts, threshold), repeated(lastCounts, threshold)
}

func repeated(counts map[string]int, threshold int) map[string]struct{} {
	out := map[string]struct{}{}
	for line, n := range counts {
		if n >= threshold && len(line) <= HeaderFooterMaxLength {
			out[line] = struct{}{}
		}
	}
	return out
}

func cleanPage(raw string, headers, footers map[string]struct{}) string {
	lines := prepareLines(raw)
	for len(lines) > 0 && contains(headers, edgeKey(lines[0])) {
		lines = lines[1:]
	}
	for len(lines) > 0 && contains(footers, edgeKey(lines[len(lines)-1])) {
		lines = lines[:len(lines)-1]
	}
	cleaned := make([]string, 0, len(lines))
	for _, line := range lines {
		line = sanitizeLine(line)
		if isNoise(line) {
			continue
		}
		cleaned = append(cleaned, line)
	}
	return strings.Join(cleaned, "\n")
}

// prepareLines splits on any line ending and keeps the trimmed non-blank lines.
func prepareLines(raw string) []string {
	raw = strings.ReplaceAll(raw, "\r\n", "\n")
	raw = strings.ReplaceAll(raw, "\r", "\n")
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

func edgeKey(line string) string {
	return strings.ToLower(strings.TrimSpace(whitespace.ReplaceAllString(line, " ")))
}

func sanitizeLine(line string) string {
	line = bulletPrefix.ReplaceAllString(line, "")
	line = labelPrefix.ReplaceAllString(line, "")
	line = nonPrintable.ReplaceAllString(line, " ")
	line = whitespace.ReplaceAllString(line, " ")
	line = strings.Trim(strings.TrimSpace(line), residualBullets)
	return strings.TrimSpace(line)
}

func isNoise(line string) bool {
	if len(line) <= 2 {
		return true
	}
	for _, p := range noisePatterns {
		if p.MatchString(line) {
			return true
		}
	}
	return false
}

func normalizeWhitespace(text string) string {
	text = spaceRun.ReplaceAllString(text, " ")
	text = aroundNewline.ReplaceAllString(text, "\n")
	text = newlineRun.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func contains(set map[string]struct{}, key string) bool {
	_, ok := set[key]
	return ok
}
