package sanitize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"multirag/internal/domain"
)

func TestText_RemovesEmojisAndCondensesSpaces(t *testing.T) {
	got := Text("Here is an answer \U0001F60A with stray \U0001F680 emojis.")
	assert.Equal(t, "Here is an answer with stray emojis.", got)
}

func TestText_CollapsesBlankLines(t *testing.T) {
	got := Text("Line one.\n\n\nLine two.\n\n\n\nLine three \U0001F642")
	assert.Equal(t, "Line one.\n\nLine two.\n\nLine three", got)
}

func TestText_BlankLinesWithWhitespace(t *testing.T) {
	got := Text("para one\r\n \t \r\n\t\r\npara two")
	assert.Equal(t, "para one\n\npara two", got)
}

func TestText_SmartPunctuation(t *testing.T) {
	got := Text("“Quoted” ‘single’ a–b c—d")
	assert.Equal(t, `"Quoted" 'single' a-b c-d`, got)
}

func TestText_ComposesBeforeDropping(t *testing.T) {
	// decomposed e + combining acute composes to a single non-ASCII rune and is dropped whole
	assert.Equal(t, "caf", Text("cafe\u0301"))
}

func TestText_EmojiOnly(t *testing.T) {
	assert.Equal(t, "", Text("\U0001F600\U0001F680 ✨"))
	assert.Equal(t, "", Text(""))
}

func TestText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain",
		"  tabs\t\tand   spaces  \n\n\n\nnext “q”",
		"élève — résumé\r\n\r\n\r\nend",
		"\n\n \U0001F642 \n",
	}
	for _, in := range inputs {
		once := Text(in)
		assert.Equal(t, once, Text(once), "input %q", in)
	}
}

func TestMetadata_OnlyStringsChange(t *testing.T) {
	md := map[string]any{
		"source": "file \U0001F4C4",
		"page":   3,
		"ok":     true,
	}
	got := Metadata(md)
	assert.Equal(t, "file", got["source"])
	assert.Equal(t, 3, got["page"])
	assert.Equal(t, true, got["ok"])
	assert.Equal(t, "file \U0001F4C4", md["source"], "input map must not be mutated")
	assert.Nil(t, Metadata(nil))
}

func TestHit(t *testing.T) {
	h := Hit(domain.SearchHit{
		ID:       "a",
		Score:    0.9,
		Content:  "Answer with sparkles ✨",
		Metadata: map[string]any{"source": "doc’s"},
	})
	assert.Equal(t, "Answer with sparkles", h.Content)
	assert.Equal(t, "doc's", h.Metadata["source"])
	assert.Equal(t, 0.9, h.Score)
}
