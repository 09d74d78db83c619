// Package extract derives sub-values from stored tool results.
//
// Exactly one mode applies per request, in precedence order:
// JSONPath, Pattern, line range (both bounds required), full text.
package extract

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/dlclark/regexp2"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/value"
)

// PatternTimeout bounds a single regex evaluation.
const PatternTimeout = 5 * time.Second

// methodPatternLen is how much of a pattern is echoed in a method description.
const methodPatternLen = 50

// textFields are checked in order when coercing a mapping to text.
var textFields = []string{"content", "text", "data"}

// Spec selects the extraction mode. A nil field is absent.
type Spec struct {
	JSONPath  *string
	Pattern   *string
	StartLine *int
	EndLine   *int
}

// Mode names the extraction mode that ran.
type Mode string

const (
	ModeJSONPath Mode = "json_path"
	ModePattern  Mode = "pattern"
	ModeLines    Mode = "lines"
	ModeFull     Mode = "full"
)

// Result is an extracted value with a description of how it was obtained.
type Result struct {
	Value  value.Value
	Mode   Mode
	Method string // e.g. "lines 2-4", "json_path=items.1", "full content"
}

// Mode returns the mode the spec selects.
func (s Spec) Mode() Mode {
	switch {
	case s.JSONPath != nil:
		return ModeJSONPath
	case s.Pattern != nil:
		return ModePattern
	case s.StartLine != nil && s.EndLine != nil:
		return ModeLines
	default:
		return ModeFull
	}
}

// Extract applies spec to v. It never modifies v.
func Extract(v value.Value, spec Spec) (Result, error) {
	switch spec.Mode() {
	case ModeJSONPath:
		path := *spec.JSONPath
		got, err := ByJSONPath(v, path)
		if err != nil {
			return Result{}, err
		}
		return Result{Value: got, Mode: ModeJSONPath, Method: "json_path=" + path}, nil

	case ModePattern:
		pattern := *spec.Pattern
		got, err := ByPattern(Text(v), pattern)
		if err != nil {
			return Result{}, err
		}
		return Result{
			Value:  value.Text(got),
			Mode:   ModePattern,
			Method: "pattern=" + prefix(pattern, methodPatternLen) + "...",
		}, nil

	case ModeLines:
		start, end := *spec.StartLine, *spec.EndLine
		return Result{
			Value:  value.Text(ByLines(Text(v), start, end)),
			Mode:   ModeLines,
			Method: fmt.Sprintf("lines %d-%d", start, end),
		}, nil

	default:
		return Result{Value: value.Text(Text(v)), Mode: ModeFull, Method: "full content"}, nil
	}
}

// Text coerces a stored result to text: Text verbatim, then the content,
// text or data field of a mapping, then the canonical rendering of v.
func Text(v value.Value) string {
	switch t := v.(type) {
	case value.Text:
		return string(t)
	case *value.Mapping:
		for _, key := range textFields {
			if field, ok := t.Get(key); ok {
				return value.Stringify(field)
			}
		}
	}
	return value.Stringify(v)
}

// ByJSONPath walks a dot-separated path through mappings (by key) and
// sequences (by non-negative integer index).
func ByJSONPath(v value.Value, path string) (value.Value, error) {
	current := v
	for _, segment := range strings.Split(path, ".") {
		switch node := current.(type) {
		case *value.Mapping:
			next, ok := node.Get(segment)
			if !ok {
				return nil, fmt.Errorf("%w: path %q not found at %q. Available keys: [%s]",
					model.ErrNotFound, path, segment, strings.Join(node.Keys(), ", "))
			}
			current = next

		case value.Sequence:
			idx, ok := parseIndex(segment)
			if !ok {
				return nil, fmt.Errorf("%w: path %q not found at %q: expected an index into a sequence; %s",
					model.ErrNotFound, path, segment, validIndices(len(node)))
			}
			if idx >= len(node) {
				return nil, fmt.Errorf("%w: path %q not found at %q: index out of range; %s",
					model.ErrNotFound, path, segment, validIndices(len(node)))
			}
			current = node[idx]

		default:
			return nil, fmt.Errorf("%w: path %q not found at %q: cannot index into %s",
				model.ErrNotFound, path, segment, current.Kind())
		}
	}
	return current, nil
}

func validIndices(n int) string {
	if n == 0 {
		return "the sequence is empty"
	}
	return fmt.Sprintf("valid indices: 0-%d", n-1)
}

// ByPattern returns the first match of pattern in text. Dot matches newlines
// and ^/$ match at line boundaries.
func ByPattern(text, pattern string) (string, error) {
	re, err := regexp2.Compile(pattern, regexp2.Singleline|regexp2.Multiline)
	if err != nil {
		return "", fmt.Errorf("%w: invalid pattern %q: %v", model.ErrMalformed, pattern, err)
	}
	re.MatchTimeout = PatternTimeout

	m, err := re.FindStringMatch(text)
	if err != nil {
		return "", fmt.Errorf("%w: pattern %q: %v", model.ErrMalformed, pattern, err)
	}
	if m == nil {
		return "", fmt.Errorf("%w: pattern not found: %q", model.ErrNotFound, pattern)
	}
	return m.String(), nil
}

// ByLines returns the inclusive 1-indexed line range [start, end]. Bounds are
// clamped to the text; an empty range yields "".
func ByLines(text string, start, end int) string {
	lines := strings.Split(text, "\n")
	s := max(start, 1)
	e := min(end, len(lines))
	if s > e {
		return ""
	}
	return strings.Join(lines[s-1:e], "\n")
}

func parseIndex(segment string) (int, bool) {
	if segment == "" {
		return 0, false
	}
	for i := 0; i < len(segment); i++ {
		if segment[i] < '0' || segment[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(segment)
	return n, err == nil
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
