// Package sanitize normalizes every user-facing string to plain ASCII text.
package sanitize

import (
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"

	"multirag/internal/domain"
)

var (
	punctuation = strings.NewReplacer(
		"‘", "'", "’", "'", "‚", "'", "‛", "'",
		"“", `"`, "”", `"`, "„", `"`, "‟", `"`,
		"–", "-", "—", "-",
	)
	lineEndings  = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	spaceRun     = regexp.MustCompile(`[ \t]+`)
	trailingWS   = regexp.MustCompile(`(?m)[ \t]+$`)
	blankLineRun = regexp.MustCompile(`\n{3,}`)
)

// Text returns s in composed form with smart punctuation mapped to ASCII, all other
// non-ASCII dropped, single newline style, collapsed spaces and at most one blank
// line between paragraphs. It is total and idempotent.
func Text(s string) string {
	if s == "" {
		return ""
	}
	s = norm.NFC.String(s)
	s = punctuation.Replace(s)
	s = dropNonASCII(s)
	s = lineEndings.Replace(s)
	s = spaceRun.ReplaceAllString(s, " ")
	s = trailingWS.ReplaceAllString(s, "")
	s = blankLineRun.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}

func dropNonASCII(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r < 0x80 {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Metadata sanitizes string values and passes every other value through unchanged.
func Metadata(md map[string]any) map[string]any {
	if md == nil {
		return nil
	}
	out := make(map[string]any, len(md))
	for k, v := range md {
		if s, ok := v.(string); ok {
			out[k] = Text(s)
			continue
		}
		out[k] = v
	}
	return out
}

// Hit returns a copy of h with content and metadata sanitized.
func Hit(h domain.SearchHit) domain.SearchHit {
	h.Content = Text(h.Content)
	h.Metadata = Metadata(h.Metadata)
	return h
}
