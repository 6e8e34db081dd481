// Package textnorm cleans extracted chapter text before synthesis.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// MinChars is the shortest normalized chapter that is worth synthesizing.
const MinChars = 10

// Replacement maps an abbreviation (matched case-insensitively) to its
// spoken form.
type Replacement struct {
	From string
	To   string
}

// DefaultHonorifics are expanded so the voice does not read them as
// sentence ends.
var DefaultHonorifics = []Replacement{
	{From: "mr.", To: "Mister"},
	{From: "mrs.", To: "Misses"},
	{From: "ms.", To: "Miss"},
	{From: "dr.", To: "Doctor"},
}

const allowedPunct = ".,;:'\"!?()[]-"

type rule struct {
	re *regexp.Regexp
	to string
}

// Normalizer strips characters the voice cannot pronounce and expands
// honorifics while keeping the letter case of the matched text.
type Normalizer struct {
	rules []rule
	upper cases.Caser
	lower cases.Caser
	title cases.Caser
}

// New compiles a normalizer for the given replacements and language.
func New(tag language.Tag, replacements []Replacement) *Normalizer {
	n := &Normalizer{
		upper: cases.Upper(tag),
		lower: cases.Lower(tag),
		title: cases.Title(tag),
	}
	for _, r := range replacements {
		n.rules = append(n.rules, rule{re: compileReplacement(r.From), to: r.To})
	}
	return n
}

// Default returns an English normalizer with the default honorifics.
func Default() *Normalizer {
	return New(language.English, DefaultHonorifics)
}

// compileReplacement matches from as a whole word. A trailing boundary is
// only required when the key ends in a word character.
func compileReplacement(from string) *regexp.Regexp {
	pattern := `(?i)\b` + regexp.QuoteMeta(from)
	if r, _ := utf8.DecodeLastRuneInString(from); isWordRune(r) {
		pattern += `\b`
	}
	return regexp.MustCompile(pattern)
}

// Normalize runs the full cleanup.
func (n *Normalizer) Normalize(text string) string {
	text = norm.NFC.String(text)
	text = strings.NewReplacer("’", "'", "‘", "'", "“", `"`, "”", `"`).Replace(text)
	text = keepWordLines(text)
	text = StripDisallowed(text)
	return n.ExpandAbbreviations(text)
}

// ExpandAbbreviations replaces every configured abbreviation, matching the
// case pattern of the original text.
func (n *Normalizer) ExpandAbbreviations(text string) string {
	for _, r := range n.rules {
		text = r.re.ReplaceAllStringFunc(text, func(match string) string {
			return n.MatchCase(match, r.to)
		})
	}
	return text
}

// MatchCase shapes replacement after original: all upper, all lower or
// capitalized. Anything else returns the replacement unchanged.
func (n *Normalizer) MatchCase(original, replacement string) string {
	switch {
	case isUpper(original):
		return n.upper.String(replacement)
	case isLower(original):
		return n.lower.String(replacement)
	case startsUpper(original):
		return n.title.String(replacement)
	default:
		return replacement
	}
}

// IsEmpty reports whether normalized text is too short to be a chapter.
func IsEmpty(normalized string) bool {
	return utf8.RuneCountInString(strings.TrimSpace(normalized)) < MinChars
}

// StripDisallowed removes everything except letters, digits, whitespace
// and a small set of punctuation.
func StripDisallowed(text string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsSpace(r) {
			return r
		}
		if strings.ContainsRune(allowedPunct, r) {
			return r
		}
		return -1
	}, text)
}

// keepWordLines drops lines that carry no word characters at all.
func keepWordLines(text string) string {
	lines := strings.Split(text, "\n")
	kept := lines[:0]
	for _, l := range lines {
		if strings.IndexFunc(l, isWordRune) >= 0 {
			kept = append(kept, l)
		}
	}
	return strings.Join(kept, "\n")
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}

func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}

func isLower(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsUpper(r) {
			return false
		}
		if unicode.IsLower(r) {
			cased = true
		}
	}
	return cased
}

func startsUpper(s string) bool {
	r, _ := utf8.DecodeRuneInString(s)
	return unicode.IsUpper(r)
}
