package ebook

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/sahilm/fuzzy"
)

// Minimum text lengths used by the default selection.
const (
	MinChapterChars  = 100
	MinDocumentChars = 10
)

var chapterLike = regexp.MustCompile(`part_?\d{1,3}|split_?\d{1,3}|ch_?\d{1,3}|chap_?\d{1,3}`)

// LooksLikeChapter reports whether a chapter's name and length suggest
// it is part of the main text rather than front or back matter.
func LooksLikeChapter(c Chapter) bool {
	name := strings.ToLower(c.Name)
	return c.Len() > MinChapterChars &&
		(strings.Contains(name, "chapter") || chapterLike.MatchString(name))
}

// SelectDefault selects chapters that look like chapters. When none do,
// every document with more than MinDocumentChars characters is selected.
func SelectDefault(chapters []Chapter) {
	found := false
	for i := range chapters {
		chapters[i].Selected = LooksLikeChapter(chapters[i])
		found = found || chapters[i].Selected
	}
	if !found {
		SelectAll(chapters)
	}
}

// SelectAll selects every chapter with more than MinDocumentChars
// characters.
func SelectAll(chapters []Chapter) {
	for i := range chapters {
		chapters[i].Selected = chapters[i].Len() > MinDocumentChars
	}
}

type chapterNames []Chapter

func (c chapterNames) String(i int) string { return c[i].Name }
func (c chapterNames) Len() int            { return len(c) }

// Select replaces the selection with an explicit list such as
// "1,3,5-7,prologue". Numbers are 1-based positions; anything else is
// matched fuzzily against chapter names. Chapters stay in book order.
func Select(chapters []Chapter, selection string) error {
	picked := make([]bool, len(chapters))
	for _, part := range strings.Split(selection, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if lo, hi, ok := parseRange(part); ok {
			if lo < 1 || hi > len(chapters) || lo > hi {
				return fmt.Errorf("chapter range %q outside 1-%d", part, len(chapters))
			}
			for i := lo; i <= hi; i++ {
				picked[i-1] = true
			}
			continue
		}
		matches := fuzzy.FindFrom(part, chapterNames(chapters))
		if len(matches) == 0 {
			return fmt.Errorf("no chapter matches %q", part)
		}
		picked[matches[0].Index] = true
	}

	selected := false
	for i := range chapters {
		chapters[i].Selected = picked[i]
		selected = selected || picked[i]
	}
	if !selected {
		return fmt.Errorf("chapter selection %q is empty", selection)
	}
	return nil
}

func parseRange(s string) (lo, hi int, ok bool) {
	from, to, isRange := strings.Cut(s, "-")
	lo, err := strconv.Atoi(strings.TrimSpace(from))
	if err != nil {
		return 0, 0, false
	}
	if !isRange {
		return lo, lo, true
	}
	hi, err = strconv.Atoi(strings.TrimSpace(to))
	if err != nil {
		return 0, 0, false
	}
	return lo, hi, true
}
