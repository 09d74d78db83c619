// Package template renders JSON-like templates against clipboard slots and
// dispatches the rendered parameters to a tool executor.
package template

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	openDelim  = "{{"
	closeDelim = "}}"
)

// Placeholder is one {{name}} occurrence in a string. Start and End are byte
// offsets of the whole token including delimiters.
type Placeholder struct {
	Name  string
	Start int
	End   int
}

// Scan returns every placeholder in s, left to right and non-overlapping.
// A name is one or more letters, digits or underscores; anything else
// between the delimiters means the text is not a placeholder.
func Scan(s string) []Placeholder {
	var found []Placeholder
	i := 0
	for i < len(s) {
		rel := strings.Index(s[i:], openDelim)
		if rel < 0 {
			break
		}
		start := i + rel
		if p, ok := matchAt(s, start); ok {
			found = append(found, p)
			i = p.End
			continue
		}
		i = start + 1
	}
	return found
}

// FullMatch reports whether s, ignoring surrounding whitespace, is exactly
// one placeholder, and returns its name.
func FullMatch(s string) (string, bool) {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, openDelim) {
		return "", false
	}
	p, ok := matchAt(trimmed, 0)
	if !ok || p.End != len(trimmed) {
		return "", false
	}
	return p.Name, true
}

// matchAt tries to read a placeholder whose opening delimiter is at start.
func matchAt(s string, start int) (Placeholder, bool) {
	j := start + len(openDelim)
	nameStart := j
	for j < len(s) {
		r, size := utf8.DecodeRuneInString(s[j:])
		if !isNameRune(r) {
			break
		}
		j += size
	}
	if j == nameStart || !strings.HasPrefix(s[j:], closeDelim) {
		return Placeholder{}, false
	}
	return Placeholder{Name: s[nameStart:j], Start: start, End: j + len(closeDelim)}, true
}

func isNameRune(r rune) bool {
	return r == '_' || unicode.IsLetter(r) || unicode.IsDigit(r)
}
