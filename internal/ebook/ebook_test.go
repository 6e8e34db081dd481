package ebook

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ledongthuc/pdf"
)

const containerXML = `<?xml version="1.0"?>
<container version="1.0" xmlns="urn:oasis:names:tc:opendocument:xmlns:container">
  <rootfiles>
    <rootfile full-path="OEBPS/content.opf" media-type="application/oebps-package+xml"/>
  </rootfiles>
</container>`

const packageOPF = `<?xml version="1.0" encoding="UTF-8"?>
<package xmlns="http://www.idpf.org/2007/opf" version="2.0">
  <metadata xmlns:dc="http://purl.org/dc/elements/1.1/">
    <dc:title>The Test Book</dc:title>
    <dc:creator>Jane Author</dc:creator>
    <meta name="cover" content="cover-img"/>
  </metadata>
  <manifest>
    <item id="ch2" href="Text/chapter_02.xhtml" media-type="application/xhtml+xml"/>
    <item id="ch1" href="Text/chapter_01.xhtml" media-type="application/xhtml+xml"/>
    <item id="toc" href="Text/toc.xhtml" media-type="application/xhtml+xml"/>
    <item id="cover-img" href="Images/front.jpg" media-type="image/jpeg"/>
    <item id="css" href="style.css" media-type="text/css"/>
  </manifest>
  <spine>
    <itemref idref="toc"/>
    <itemref idref="ch1"/>
    <itemref idref="ch2"/>
  </spine>
</package>`

func chapterXHTML(title, body string) string {
	return `<?xml version="1.0" encoding="utf-8"?>
<html xmlns="http://www.w3.org/1999/xhtml"><head><title>ignored head</title><style>p{}</style></head>
<body><h1>` + title + `</h1>` + body + `</body></html>`
}

func writeEPUB(t *testing.T, files map[string]string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "book.epub")
	f, err := os.Create(p)
	if err != nil {
		t.Fatal(err)
	}
	zw := zip.NewWriter(f)
	for name, content := range files {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := w.Write([]byte(content)); err != nil {
			t.Fatal(err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return p
}

func TestLoadEPUB(t *testing.T) {
	long := strings.Repeat("It was a dark and stormy night. ", 5)
	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml":     containerXML,
		"OEBPS/content.opf":          packageOPF,
		"OEBPS/Text/toc.xhtml":       chapterXHTML("Contents", "<ul><li>One</li><li>Two</li></ul>"),
		"OEBPS/Text/chapter_01.xhtml": chapterXHTML("Chapter One", "<p>"+long+"</p><p>Second   line\nwraps</p><script>var x;</script>"),
		"OEBPS/Text/chapter_02.xhtml": chapterXHTML("Chapter Two", "<div><p>"+long+"</p></div>"),
		"OEBPS/Images/front.jpg":     "JPEGDATA",
	})

	book, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Title != "The Test Book" || book.Author != "Jane Author" {
		t.Errorf("metadata = %q / %q", book.Title, book.Author)
	}
	if string(book.Cover) != "JPEGDATA" || book.CoverExt() != ".jpg" {
		t.Errorf("cover = %q (%s)", book.Cover, book.CoverType)
	}

	if len(book.Chapters) != 3 {
		t.Fatalf("got %d chapters", len(book.Chapters))
	}
	names := []string{"Text/toc.xhtml", "Text/chapter_01.xhtml", "Text/chapter_02.xhtml"}
	for i, c := range book.Chapters {
		if c.Index != i || c.Name != names[i] {
			t.Errorf("chapter %d = %d %q", i, c.Index, c.Name)
		}
	}

	ch1 := book.Chapters[1].Text
	if !strings.HasPrefix(ch1, "Chapter One.\n") {
		t.Errorf("chapter text starts %q", ch1[:20])
	}
	if !strings.Contains(ch1, "\nSecond line wraps.\n") {
		t.Errorf("paragraph not normalized: %q", ch1)
	}
	if strings.Contains(ch1, "var x") || strings.Contains(ch1, "ignored head") {
		t.Errorf("non-body text leaked: %q", ch1)
	}
	if got := book.Chapters[0].Text; got != "Contents.\nOne.\nTwo.\n" {
		t.Errorf("toc text = %q", got)
	}

	// the table of contents is too short and not named like a chapter
	var selected []string
	for _, c := range book.Selected() {
		selected = append(selected, c.Name)
	}
	if strings.Join(selected, ",") != "Text/chapter_01.xhtml,Text/chapter_02.xhtml" {
		t.Errorf("selected = %v", selected)
	}
}

func TestLoadEPUBFallbacks(t *testing.T) {
	opf := `<package><metadata/><manifest>
<item id="a" href="a%20b.html" media-type="application/xhtml+xml"/>
<item id="img" href="img/Cover.png" media-type="image/png"/>
</manifest><spine/></package>`
	path := writeEPUB(t, map[string]string{
		"META-INF/container.xml": `<container><rootfiles><rootfile full-path="content.opf"/></rootfiles></container>`,
		"content.opf":            opf,
		"a b.html":               "<html><body><p>Hello there, reader</p></body></html>",
		"img/Cover.png":          "PNG",
	})

	book, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Title != "book" || book.Author != UnknownAuthor {
		t.Errorf("fallback metadata = %q / %q", book.Title, book.Author)
	}
	if string(book.Cover) != "PNG" || book.CoverExt() != ".png" {
		t.Errorf("cover = %q", book.Cover)
	}
	if len(book.Chapters) != 1 || book.Chapters[0].Text != "Hello there, reader.\n" {
		t.Errorf("chapters = %+v", book.Chapters)
	}
	// nothing looks like a chapter, so every non-empty document is picked
	if !book.Chapters[0].Selected {
		t.Error("fallback selection did not pick the document")
	}
}

func TestLoadUnsupported(t *testing.T) {
	if _, err := Load("book.docx", Options{}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("error = %v", err)
	}
}

func TestParseMarkdown(t *testing.T) {
	src := []byte(`Some intro text before any heading

# My Novel

## Chapter 1

It was the *best* of times,
it was the worst of times

- a list item
- another

### A small heading

` + "```go\ncode is not read\n```" + `

## Chapter 2

Short.
`)
	book, err := parseMarkdown(src)
	if err != nil {
		t.Fatal(err)
	}
	if book.Title != "My Novel" {
		t.Errorf("title = %q", book.Title)
	}

	var names []string
	for _, c := range book.Chapters {
		names = append(names, c.Name)
	}
	if strings.Join(names, "|") != "preface|My Novel|Chapter 1|Chapter 2" {
		t.Fatalf("chapters = %v", names)
	}

	want := "Chapter 1.\nIt was the best of times, it was the worst of times.\na list item.\nanother.\nA small heading.\n"
	if got := book.Chapters[2].Text; got != want {
		t.Errorf("chapter 1 text =\n%q\nwant\n%q", got, want)
	}
	if strings.Contains(book.Chapters[2].Text, "code is not read") {
		t.Error("code block was narrated")
	}
}

// toUnicodeCMap maps glyph ids 0x24-0x5D to A-z, 0x03 to space and 0x11
// to a period, the layout of a subset TrueType font.
const toUnicodeCMap = `/CIDInit /ProcSet findresource begin
12 dict begin
begincmap
1 begincodespacerange
<0000> <FFFF>
endcodespacerange
2 beginbfchar
<0003> <0020>
<0011> <002E>
endbfchar
1 beginbfrange
<0024> <005D> <0041>
endbfrange
endcmap
end
end`

func pdfStream(body string) string {
	return fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(body), body)
}

// writePDF numbers objects from 1 and writes a file with a valid xref
// table. Object 1 must be the catalog and the last one the info dict.
func writePDF(t *testing.T, objects []string) string {
	t.Helper()
	var b bytes.Buffer
	b.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = b.Len()
		fmt.Fprintf(&b, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := b.Len()
	fmt.Fprintf(&b, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&b, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&b, "trailer\n<< /Size %d /Root 1 0 R /Info %d 0 R >>\nstartxref\n%d\n%%%%EOF\n",
		len(objects)+1, len(objects), xref)

	path := filepath.Join(t.TempDir(), "scan.pdf")
	if err := os.WriteFile(path, b.Bytes(), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadPDFCompositeFont(t *testing.T) {
	composite := `BT
/F1 12 Tf
72 712 Td
[<0037004B0048> -300 <002600520050005300520056004C00570048>] TJ
0 -14 Td
<00490052005100570003005A00520055004E00560011> Tj
ET`
	simple := `BT
/F2 11 Tf
72 712 Td
(Caf\351 au lait.) Tj
ET`

	path := writePDF(t, []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R] /Count 2 >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 7 0 R >> >> /Contents 5 0 R >>",
		"<< /Type /Page /Parent 2 0 R /Resources << /Font << /F2 10 0 R >> >> /Contents 6 0 R >>",
		pdfStream(composite),
		pdfStream(simple),
		"<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+Serif /Encoding /Identity-H /DescendantFonts [8 0 R] /ToUnicode 9 0 R >>",
		"<< /Type /Font /Subtype /CIDFontType2 /BaseFont /ABCDEF+Serif /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /DW 500 >>",
		pdfStream(toUnicodeCMap),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
		"<< /Title (A Composite Book) /Author (Jane Roe) >>",
	})

	book, err := Load(path, Options{PagesPerChapter: 1})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Title != "A Composite Book" || book.Author != "Jane Roe" {
		t.Errorf("metadata = %q / %q", book.Title, book.Author)
	}
	if len(book.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(book.Chapters))
	}
	if got, want := book.Chapters[0].Text, "The Composite\nfont works.\n"; got != want {
		t.Errorf("composite page =\n%q\nwant\n%q", got, want)
	}
	if got, want := book.Chapters[1].Text, "Café au lait.\n"; got != want {
		t.Errorf("simple page =\n%q\nwant\n%q", got, want)
	}
	if book.Chapters[0].Name != "part_1" || book.Chapters[1].Name != "part_2" {
		t.Errorf("names = %q, %q", book.Chapters[0].Name, book.Chapters[1].Name)
	}
}

func TestLoadPDFGroupsPages(t *testing.T) {
	page := func(contents int) string {
		return fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 8 0 R >> >> /Contents %d 0 R >>", contents)
	}
	path := writePDF(t, []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R 4 0 R 5 0 R] /Count 3 >>",
		page(6), page(7), page(6),
		pdfStream("BT /F1 10 Tf 72 700 Td (Odd page.) Tj ET"),
		pdfStream("BT /F1 10 Tf 72 700 Td (Even page.) Tj ET"),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>",
		"<< >>",
	})

	book, err := Load(path, Options{PagesPerChapter: 2})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if book.Title != "scan" || book.Author != UnknownAuthor {
		t.Errorf("fallback metadata = %q / %q", book.Title, book.Author)
	}
	if len(book.Chapters) != 2 {
		t.Fatalf("got %d chapters, want 2", len(book.Chapters))
	}
	if got := book.Chapters[0].Text; got != "Odd page.\nEven page.\n" {
		t.Errorf("first chapter = %q", got)
	}
	if got := book.Chapters[1].Text; got != "Odd page.\n" {
		t.Errorf("second chapter = %q", got)
	}
}

func TestLayoutText(t *testing.T) {
	glyph := func(s string, x, y, w float64) pdf.Text {
		return pdf.Text{Font: "Serif", FontSize: 10, X: x, Y: y, W: w, S: s}
	}

	tests := []struct {
		name   string
		glyphs []pdf.Text
		want   string
	}{
		{
			name: "advancing glyphs form one word",
			glyphs: []pdf.Text{
				glyph("H", 10, 700, 6), glyph("i", 16, 700, 3), glyph("!", 19, 700, 3),
			},
			want: "Hi!\n",
		},
		{
			name: "wide jump is a word gap",
			glyphs: []pdf.Text{
				glyph("a", 10, 700, 5), glyph("b", 20, 700, 5),
			},
			want: "a b\n",
		},
		{
			name: "baseline change starts a line",
			glyphs: []pdf.Text{
				glyph("a", 10, 700, 5), glyph("b", 10, 686, 5),
			},
			want: "a\nb\n",
		},
		{
			name: "unmapped and control glyphs are dropped",
			glyphs: []pdf.Text{
				glyph("a", 10, 700, 5), glyph("\ufffd", 15, 700, 5), glyph("\n", 15, 700, 0), glyph("b", 15, 700, 5),
			},
			want: "ab\n",
		},
		{
			name: "space glyphs collapse",
			glyphs: []pdf.Text{
				glyph("a", 10, 700, 5), glyph(" ", 15, 700, 2), glyph(" ", 17, 700, 2), glyph("b", 19, 700, 5),
			},
			want: "a b\n",
		},
		{
			name: "empty page",
			want: "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := layoutText(tt.glyphs); got != tt.want {
				t.Errorf("layoutText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSelect(t *testing.T) {
	chapters := []Chapter{
		{Name: "prologue"}, {Name: "chapter_1"}, {Name: "chapter_2"},
		{Name: "chapter_3"}, {Name: "epilogue"},
	}

	tests := []struct {
		selection string
		want      string
		wantErr   bool
	}{
		{"1,3", "10100", false},
		{"2-4", "01110", false},
		{"epilog, 1", "10001", false},
		{"5-7", "", true},
		{"zzzz", "", true},
		{" , ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.selection, func(t *testing.T) {
			err := Select(chapters, tt.selection)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Select error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			var got strings.Builder
			for _, c := range chapters {
				if c.Selected {
					got.WriteByte('1')
				} else {
					got.WriteByte('0')
				}
			}
			if got.String() != tt.want {
				t.Errorf("selection = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestLooksLikeChapter(t *testing.T) {
	long := strings.Repeat("x", MinChapterChars+1)
	tests := []struct {
		name, text string
		want       bool
	}{
		{"Text/Chapter01.xhtml", long, true},
		{"split_003.html", long, true},
		{"part2.xhtml", long, true},
		{"ch_12.xhtml", long, true},
		{"titlepage.xhtml", long, false},
		{"chapter_1.xhtml", "short", false},
	}
	for _, tt := range tests {
		if got := LooksLikeChapter(Chapter{Name: tt.name, Text: tt.text}); got != tt.want {
			t.Errorf("LooksLikeChapter(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestOneLiner(t *testing.T) {
	c := Chapter{Text: "First line.\nSecond line goes on."}
	if got := c.OneLiner(20); got != "First line. Second l…" {
		t.Errorf("OneLiner = %q", got)
	}
	if got := (Chapter{}).OneLiner(20); got != "" {
		t.Errorf("empty OneLiner = %q", got)
	}
}
