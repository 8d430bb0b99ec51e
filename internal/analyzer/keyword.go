package analyzer

import (
	"regexp"
	"unicode"
	"unicode/utf8"
)

// KeywordMatcher finds a keyword as a whole word, case-insensitively. Letters,
// digits and marks of any script count as word characters, as does '_'.
type KeywordMatcher struct {
	re *regexp.Regexp
}

func NewKeywordMatcher(keyword string) *KeywordMatcher {
	return &KeywordMatcher{re: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyword))}
}

func (m *KeywordMatcher) MatchString(s string) bool {
	return len(m.FindAllIndex(s)) > 0
}

// FindAllIndex returns the byte ranges of every whole-word hit in s.
func (m *KeywordMatcher) FindAllIndex(s string) [][2]int {
	var hits [][2]int
	for pos := 0; pos <= len(s); {
		loc := m.re.FindStringIndex(s[pos:])
		if loc == nil {
			break
		}
		start, end := pos+loc[0], pos+loc[1]
		if atWordBoundary(s, start) && atWordBoundary(s, end) {
			hits = append(hits, [2]int{start, end})
			if end > start {
				pos = end
				continue
			}
		}
		if start == len(s) {
			break
		}
		_, size := utf8.DecodeRuneInString(s[start:])
		pos = start + size
	}
	return hits
}

func isWordRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r) || unicode.IsMark(r)
}

// atWordBoundary reports whether exactly one side of byte offset i is a word
// character.
func atWordBoundary(s string, i int) bool {
	before, after := false, false
	if i > 0 {
		r, _ := utf8.DecodeLastRuneInString(s[:i])
		before = isWordRune(r)
	}
	if i < len(s) {
		r, _ := utf8.DecodeRuneInString(s[i:])
		after = isWordRune(r)
	}
	return before != after
}
