package ebook

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/ledongthuc/pdf"
)

// wordGap is the horizontal jump, as a fraction of the font size, that
// separates two words drawn without a space glyph.
const wordGap = 0.2

// loadPDF reads the text of every page and groups pages into chapters.
// Glyphs are decoded through the font's encoding or its ToUnicode CMap, so
// composite (Identity-H) fonts read the same as simple ones. PDFs carry no
// usable cover.
func loadPDF(filename string, opts Options) (*Book, error) {
	perChapter := opts.PagesPerChapter
	if perChapter <= 0 {
		perChapter = DefaultPagesPerChapter
	}

	f, r, err := pdf.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close() //nolint:errcheck

	n := r.NumPage()
	pages := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		text, err := pageText(r.Page(i))
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		pages = append(pages, text)
	}

	book := &Book{Author: UnknownAuthor}
	info := r.Trailer().Key("Info")
	if title := strings.TrimSpace(info.Key("Title").Text()); title != "" {
		book.Title = title
	}
	if author := strings.TrimSpace(info.Key("Author").Text()); author != "" {
		book.Author = author
	}

	for start := 0; start < len(pages); start += perChapter {
		end := min(start+perChapter, len(pages))
		book.Chapters = append(book.Chapters, Chapter{
			Name: fmt.Sprintf("part_%d", start/perChapter+1),
			Text: strings.Join(pages[start:end], ""),
		})
	}
	return book, nil
}

// pageText lays out the decoded glyphs of p. The pdf package panics on
// malformed content streams.
func pageText(p pdf.Page) (text string, err error) {
	if p.V.IsNull() {
		return "", nil
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed content: %v", r)
		}
	}()
	return layoutText(p.Content().Text), nil
}

// layoutText joins glyphs in drawing order, one output line per baseline.
// A jump along the baseline wider than wordGap becomes a space.
func layoutText(glyphs []pdf.Text) string {
	var (
		out     strings.Builder
		line    strings.Builder
		started bool
		lastY   float64
		lastEnd float64
	)
	flush := func() {
		if l := strings.Join(strings.Fields(line.String()), " "); l != "" {
			out.WriteString(l)
			out.WriteByte('\n')
		}
		line.Reset()
	}

	for _, g := range glyphs {
		if !printable(g.S) {
			continue
		}
		size := math.Abs(g.FontSize)
		if size == 0 {
			size = 10
		}
		switch {
		case !started:
		case math.Abs(g.Y-lastY) > size/2:
			flush()
		case math.Abs(g.X-lastEnd) > math.Max(size*wordGap, 1):
			line.WriteByte(' ')
		}
		line.WriteString(g.S)
		started = true
		lastY = g.Y
		lastEnd = g.X + g.W
	}
	flush()
	return out.String()
}

// printable drops unmapped glyphs and the control codes the decoder emits
// between text arrays.
func printable(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r == unicode.ReplacementChar || unicode.IsControl(r) {
			return false
		}
	}
	return true
}
