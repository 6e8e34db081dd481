// Package segment splits chapter text into sentence-sized units for the
// speech engine.
package segment

import (
	"iter"
	"strings"
	"unicode"

	"golang.org/x/text/language"
)

// DefaultMaxChars bounds a single unit. Longer sentences are split at
// clause punctuation.
const DefaultMaxChars = 500

// splitter finds sentence boundaries in whitespace-collapsed text.
type splitter interface {
	sentences(text string) []string
}

// Segmenter produces units from normalized text.
type Segmenter struct {
	// MaxUnits caps the number of units per chapter. Zero means no cap.
	MaxUnits int
	// MaxChars bounds the length of a unit in runes.
	MaxChars int

	split splitter
}

// New returns a segmenter for tag. Languages with a trained Punkt model
// use it; the rest, including scripts that do not separate sentences with
// spaces, use punctuation rules.
func New(tag language.Tag, maxUnits int) *Segmenter {
	return &Segmenter{
		MaxUnits: maxUnits,
		MaxChars: DefaultMaxChars,
		split:    splitterFor(tag),
	}
}

func splitterFor(tag language.Tag) splitter {
	base, _ := tag.Base()
	if model, ok := punktModels[base]; ok {
		if p, err := loadPunkt(base, model); err == nil {
			return p
		}
	}
	return rules{}
}

// Units returns a lazy sequence over the units of text. Each call to the
// returned sequence starts from the beginning, and blank units are never
// yielded.
func (s *Segmenter) Units(text string) iter.Seq[string] {
	return func(yield func(string) bool) {
		collapsed := collapseSpace(text)
		if collapsed == "" {
			return
		}
		emitted := 0
		for _, sentence := range s.splitter().sentences(collapsed) {
			for _, part := range splitLong(sentence, s.maxChars()) {
				if s.MaxUnits > 0 && emitted >= s.MaxUnits {
					return
				}
				emitted++
				if !yield(part) {
					return
				}
			}
		}
	}
}

// Collect drains the sequence into a slice.
func (s *Segmenter) Collect(text string) []string {
	var out []string
	for u := range s.Units(text) {
		out = append(out, u)
	}
	return out
}

func (s *Segmenter) splitter() splitter {
	if s.split == nil {
		return rules{}
	}
	return s.split
}

func (s *Segmenter) maxChars() int {
	if s.MaxChars <= 0 {
		return DefaultMaxChars
	}
	return s.MaxChars
}

func splitLong(unit string, maxChars int) []string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return nil
	}
	runes := []rune(unit)
	if len(runes) <= maxChars {
		return []string{unit}
	}
	var out []string
	start := 0
	for start < len(runes) {
		if len(runes)-start <= maxChars {
			if part := strings.TrimSpace(string(runes[start:])); part != "" {
				out = append(out, part)
			}
			break
		}
		cut := start + maxChars
		if b := lastClause(runes, start+maxChars/2, cut); b > start {
			cut = b + 1
		} else if b := lastSpace(runes, start+1, cut); b > start {
			cut = b
		}
		if part := strings.TrimSpace(string(runes[start:cut])); part != "" {
			out = append(out, part)
		}
		start = cut
	}
	return out
}

func lastClause(runes []rune, from, to int) int {
	for i := to - 1; i >= from && i >= 0; i-- {
		switch runes[i] {
		case ',', ';', ':', '-', '、', '，', '；':
			return i
		}
	}
	return -1
}

func lastSpace(runes []rune, from, to int) int {
	for i := to - 1; i >= from; i-- {
		if unicode.IsSpace(runes[i]) {
			return i
		}
	}
	return -1
}

func collapseSpace(text string) string {
	return strings.Join(strings.Fields(text), " ")
}
