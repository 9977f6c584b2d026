package extract

import (
	"context"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor returns one string per page, one line per text row.
type PDFExtractor struct{}

func (PDFExtractor) Modality() string { return ModalityPDF }

func (PDFExtractor) Extract(ctx context.Context, path string) (pages []string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	// The parser panics on some malformed streams.
	defer func() {
		if p := recover(); p != nil {
			pages, err = nil, fmt.Errorf("read pdf: %v", p)
		}
	}()

	n := r.NumPage()
	pages = make([]string, 0, n)
	for i := 1; i <= n; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		p := r.Page(i)
		if p.V.IsNull() {
			pages = append(pages, "")
			continue
		}
		rows, err := p.GetTextByRow()
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		lines := make([]string, 0, len(rows))
		for _, row := range rows {
			lines = append(lines, rowText(row.Content))
		}
		pages = append(pages, strings.Join(lines, "\n"))
	}
	return pages, nil
}

// rowText joins the fragments of one row, inserting a space where the gap between
// fragments is wider than a fraction of the font size.
func rowText(texts pdf.TextHorizontal) string {
	var b strings.Builder
	for i, t := range texts {
		if i > 0 {
			prev := texts[i-1]
			gap := t.X - (prev.X + prev.W)
			if gap > 0.15*t.FontSize && !strings.HasSuffix(prev.S, " ") && !strings.HasPrefix(t.S, " ") {
				b.WriteByte(' ')
			}
		}
		b.WriteString(t.S)
	}
	return b.String()
}
