package segment

import (
	"strings"
	"unicode"
)

// abbreviations never end a sentence. Latin-script abbreviations show up
// in text of any language.
var abbreviations = set(
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt", "vs", "etc",
	"rev", "al", "inc", "ltd", "dept",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct",
	"nov", "dec", "a.m", "p.m", "e.g", "i.e", "u.s", "u.k",
)

// numbered abbreviations only hold before a number, as in "No. 5".
var numbered = set("no", "nos", "vol", "pp", "fig", "ch", "art")

// rules splits at terminal punctuation. Periods need a following capital
// or digit; the full-width and Devanagari terminals end a sentence outright.
type rules struct{}

func (rules) sentences(text string) []string {
	runes := []rune(text)
	var out []string
	start := 0
	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}
		if runes[i] == '.' && skipPeriod(runes, i) {
			continue
		}
		end, ok := boundary(runes, i)
		if !ok {
			continue
		}
		if unit := strings.TrimSpace(string(runes[start:end])); unit != "" {
			out = append(out, unit)
		}
		start = end
		i = end - 1
	}
	if tail := strings.TrimSpace(string(runes[start:])); tail != "" {
		out = append(out, tail)
	}
	return out
}

func skipPeriod(runes []rune, i int) bool {
	// only the last period of an ellipsis can end a sentence
	if i+1 < len(runes) && runes[i+1] == '.' {
		return true
	}
	if i > 0 && runes[i-1] == '.' {
		return false
	}
	// decimals
	if i > 0 && i+1 < len(runes) && unicode.IsDigit(runes[i-1]) && unicode.IsDigit(runes[i+1]) {
		return true
	}
	j := i - 1
	for j >= 0 && !isTokenBoundary(runes[j]) {
		j--
	}
	token := string(runes[j+1 : i])
	if token == "" {
		return false
	}
	// initials
	if tr := []rune(token); len(tr) == 1 && unicode.IsLetter(tr[0]) {
		return true
	}
	token = strings.ToLower(token)
	if _, ok := numbered[token]; ok {
		return digitFollows(runes, i+1)
	}
	_, ok := abbreviations[token]
	return ok
}

func digitFollows(runes []rune, k int) bool {
	for k < len(runes) && unicode.IsSpace(runes[k]) {
		k++
	}
	return k < len(runes) && unicode.IsDigit(runes[k])
}

// boundary reports whether the terminal punctuation at i ends a sentence,
// and where the unit ends (after any closing quotes or brackets).
func boundary(runes []rune, i int) (int, bool) {
	j := i + 1
	for j < len(runes) && (isClosing(runes[j]) || isTerminal(runes[j])) {
		j++
	}
	if j >= len(runes) || isUncased(runes[i]) {
		return j, true
	}
	if !unicode.IsSpace(runes[j]) {
		return 0, false
	}
	k := j
	for k < len(runes) && unicode.IsSpace(runes[k]) {
		k++
	}
	if k >= len(runes) {
		return j, true
	}
	for k < len(runes) && isOpening(runes[k]) {
		k++
	}
	if k < len(runes) && (unicode.IsUpper(runes[k]) || unicode.IsDigit(runes[k])) {
		return j, true
	}
	return 0, false
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || isUncased(r)
}

// isUncased reports terminals of scripts without letter case, which carry
// no capital to confirm the next sentence.
func isUncased(r rune) bool {
	switch r {
	case '。', '！', '？', '।', '॥':
		return true
	}
	return false
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '}', '”', '’', '」', '』', '）', '】':
		return true
	}
	return false
}

func isOpening(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '{', '“', '‘', '「', '『', '（', '【':
		return true
	}
	return false
}

func isTokenBoundary(r rune) bool {
	return unicode.IsSpace(r) || isOpening(r) || isClosing(r)
}

func set(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}
