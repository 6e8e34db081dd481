package ebook

import (
	"fmt"
	"os"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// loadMarkdown splits a Markdown file into chapters at level 1 and 2
// headings. The first level 1 heading is the title.
func loadMarkdown(filename string) (*Book, error) {
	source, err := os.ReadFile(filename)
	if err != nil {
		return nil, err
	}
	return parseMarkdown(source)
}

func parseMarkdown(source []byte) (*Book, error) {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	book := &Book{}
	var (
		current *Chapter
		lines   strings.Builder
	)
	finish := func() {
		if current == nil && lines.Len() == 0 {
			return
		}
		if current == nil {
			current = &Chapter{Name: "preface"}
		}
		current.Text = lines.String()
		book.Chapters = append(book.Chapters, *current)
		current = nil
		lines.Reset()
	}
	addLine := func(s string) {
		if s = strings.Join(strings.Fields(s), " "); s != "" {
			lines.WriteString(terminate(s))
			lines.WriteByte('\n')
		}
	}

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *ast.Heading:
			title := inlineText(node, source)
			if node.Level <= 2 {
				if node.Level == 1 && book.Title == "" {
					book.Title = title
				}
				finish()
				current = &Chapter{Name: title}
			}
			addLine(title)
			return ast.WalkSkipChildren, nil
		case *ast.Paragraph, *ast.TextBlock:
			addLine(inlineText(node, source))
			return ast.WalkSkipChildren, nil
		case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock, *ast.ThematicBreak:
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to walk markdown AST: %w", err)
	}
	finish()
	return book, nil
}

func inlineText(node ast.Node, source []byte) string {
	var b strings.Builder
	for child := node.FirstChild(); child != nil; child = child.NextSibling() {
		switch c := child.(type) {
		case *ast.Text:
			b.Write(c.Segment.Value(source))
			if c.SoftLineBreak() || c.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(c.Value)
		case *ast.Image:
			// alt text is not narrated
		default:
			b.WriteString(inlineText(c, source))
		}
	}
	return b.String()
}
