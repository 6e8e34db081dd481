package ebook

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// UnknownAuthor is used when a book carries no creator.
const UnknownAuthor = "Unknown"

// ErrUnsupportedFormat is returned for files Load cannot read.
var ErrUnsupportedFormat = errors.New("unsupported book format")

// Chapter is a titled unit of text. Every loader fills every field.
type Chapter struct {
	// Index is the 0-based position among all chapters of the book.
	Index    int
	Name     string
	Text     string
	Selected bool
}

// Len returns the text length in runes.
func (c Chapter) Len() int {
	return utf8.RuneCountInString(c.Text)
}

// OneLiner returns the first n runes of the text on one line.
func (c Chapter) OneLiner(n int) string {
	s := strings.Join(strings.Fields(c.Text), " ")
	if s == "" {
		return ""
	}
	if utf8.RuneCountInString(s) > n {
		s = string([]rune(s)[:n])
	}
	return strings.TrimSpace(s) + "…"
}

// Book is a loaded e-book.
type Book struct {
	Path      string
	Title     string
	Author    string
	Cover     []byte
	CoverType string
	Chapters  []Chapter
}

// Stem is the file name without directory or extension.
func (b *Book) Stem() string {
	base := filepath.Base(b.Path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// CoverExt maps the cover media type to a file extension.
func (b *Book) CoverExt() string {
	switch b.CoverType {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	}
	return ""
}

// Selected returns the selected chapters in book order.
func (b *Book) Selected() []Chapter {
	var out []Chapter
	for _, c := range b.Chapters {
		if c.Selected {
			out = append(out, c)
		}
	}
	return out
}

// Options tune the loaders.
type Options struct {
	// PagesPerChapter groups PDF pages into chapters.
	PagesPerChapter int
}

// DefaultPagesPerChapter is used when Options leaves it unset.
const DefaultPagesPerChapter = 10

// Load reads the book at path, choosing the loader by extension, and
// applies the default chapter selection.
func Load(path string, opts Options) (*Book, error) {
	var (
		book *Book
		err  error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".epub":
		book, err = loadEPUB(path)
	case ".pdf":
		book, err = loadPDF(path, opts)
	case ".md", ".markdown":
		book, err = loadMarkdown(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, err
	}

	book.Path = path
	if strings.TrimSpace(book.Title) == "" {
		book.Title = book.Stem()
	}
	if strings.TrimSpace(book.Author) == "" {
		book.Author = UnknownAuthor
	}
	for i := range book.Chapters {
		book.Chapters[i].Index = i
	}
	SelectDefault(book.Chapters)
	return book, nil
}

// terminate appends a period to lines that do not end with one.
func terminate(line string) string {
	if strings.HasSuffix(line, ".") {
		return line
	}
	return line + "."
}
