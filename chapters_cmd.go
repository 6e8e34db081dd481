package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/cpttripzz/Chatterblez/internal/ebook"
)

var chaptersCmd = &cobra.Command{
	Use:     "chapters BOOK",
	Short:   "List the chapters of a book and which ones will be read",
	Example: paragraph("chatterblez chapters book.epub\nchatterblez chapters --chapters 2-4 book.epub"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		book, err := loadBook(args[0], cfg)
		if err != nil {
			return err
		}
		if sel, _ := cmd.Flags().GetString("chapters"); sel != "" {
			if err := ebook.Select(book.Chapters, sel); err != nil {
				return err
			}
		}

		width := 100
		style := "auto"
		isTerminal := term.IsTerminal(int(os.Stdout.Fd()))
		if isTerminal {
			if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil {
				width = min(w, 120)
			}
		} else {
			style = "notty"
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithStandardStyle(style),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err := r.Render(chapterTable(book))
		if err != nil {
			return fmt.Errorf("unable to render chapter list: %w", err)
		}
		fmt.Print(out)
		return nil
	},
}

func init() {
	chaptersCmd.Flags().StringP("chapters", "c", "", "preview a chapter selection")
}

// chapterTable renders the chapter list as a Markdown document.
func chapterTable(book *ebook.Book) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", escapeCell(book.Title))
	fmt.Fprintf(&b, "by %s\n\n", escapeCell(book.Author))
	b.WriteString("| # | Read | Chapter | Characters | Opening |\n")
	b.WriteString("|--:|:----:|---------|-----------:|---------|\n")

	var total int
	selected := 0
	for i, c := range book.Chapters {
		mark := ""
		if c.Selected {
			mark = "✓"
			selected++
			total += c.Len()
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			i+1, mark, escapeCell(c.Name), humanize.Comma(int64(c.Len())), escapeCell(c.OneLiner(40)))
	}
	fmt.Fprintf(&b, "\n%d of %d chapters selected, %s characters to read.\n",
		selected, len(book.Chapters), humanize.Comma(int64(total)))
	return b.String()
}

func escapeCell(s string) string {
	return strings.NewReplacer("|", `\|`, "\n", " ").Replace(s)
}
