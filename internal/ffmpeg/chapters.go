package ffmpeg

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ChapterMark is one [CHAPTER] block in milliseconds.
type ChapterMark struct {
	Start int64
	End   int64
	Title string
}

// BuildChapterIndex lays chapters end to end. Each end is the previous
// end plus the chapter's duration truncated to whole milliseconds, so the
// sum of durations and the final END agree exactly.
func BuildChapterIndex(durations []float64) []ChapterMark {
	marks := make([]ChapterMark, 0, len(durations))
	var start int64
	for i, d := range durations {
		end := start + int64(d*1000)
		marks = append(marks, ChapterMark{
			Start: start,
			End:   end,
			Title: fmt.Sprintf("Chapter %d", i+1),
		})
		start = end
	}
	return marks
}

// WriteChapterIndex writes an FFMETADATA1 document.
func WriteChapterIndex(w io.Writer, title, artist string, marks []ChapterMark) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, ";FFMETADATA1\ntitle=%s\nartist=%s\n\n", escapeMeta(title), escapeMeta(artist))
	for _, m := range marks {
		fmt.Fprintf(bw, "[CHAPTER]\nTIMEBASE=1/1000\nSTART=%d\nEND=%d\ntitle=%s\n\n", m.Start, m.End, escapeMeta(m.Title))
	}
	return bw.Flush()
}

// WriteChapterIndexFile writes the index to path.
func WriteChapterIndexFile(path, title, artist string, marks []ChapterMark) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create chapter index: %w", err)
	}
	if err := WriteChapterIndex(f, title, artist, marks); err != nil {
		_ = f.Close()
		return fmt.Errorf("write chapter index: %w", err)
	}
	return f.Close()
}

var metaEscaper = strings.NewReplacer(
	`\`, `\\`,
	"=", `\=`,
	";", `\;`,
	"#", `\#`,
	"\n", "\\\n",
)

// escapeMeta escapes the characters FFMETADATA treats specially.
func escapeMeta(s string) string {
	return metaEscaper.Replace(s)
}
