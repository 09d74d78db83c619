// Package json leniently recovers JSON documents from model-produced text.
//
// Models sometimes wrap tool arguments in markdown fences, add commentary
// around them, or pass a nested object as a JSON-encoded string. The helpers
// here find the document and decode it into an order-preserving value.
package json

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/clipagent/value"
)

// previewLen bounds the text echoed in extraction errors.
const previewLen = 100

// Extract returns the JSON portion of text:
//  1. the whole trimmed text if it is valid JSON
//  2. the text with markdown fences stripped if that is valid JSON
//  3. otherwise the span from the first '{' to the last '}' if that is valid
//
// Brace matching is positional, so braces inside surrounding prose can defeat
// the last step.
func Extract(text string) (string, error) {
	if trimmed := strings.TrimSpace(text); json.Valid([]byte(trimmed)) {
		return trimmed, nil
	}
	text = stripFences(text)
	if json.Valid([]byte(text)) {
		return text, nil
	}

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start != -1 && end > start {
		candidate := text[start : end+1]
		if json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}

	return "", fmt.Errorf("no valid JSON found in %q", value.Truncate(text, previewLen))
}

// ParseValue extracts a JSON document from text and decodes it, keeping
// object key order.
func ParseValue(text string) (value.Value, error) {
	doc, err := Extract(text)
	if err != nil {
		return nil, err
	}
	v, err := value.Parse([]byte(doc))
	if err != nil {
		return nil, fmt.Errorf("failed to decode JSON: %w", err)
	}
	return v, nil
}

// ParseObject is ParseValue restricted to objects.
func ParseObject(text string) (*value.Mapping, error) {
	v, err := ParseValue(text)
	if err != nil {
		return nil, err
	}
	m, ok := v.(*value.Mapping)
	if !ok {
		return nil, fmt.Errorf("expected a JSON object, got %s", v.Kind())
	}
	return m, nil
}

// stripFences removes a surrounding ```json ... ``` or ``` ... ``` block.
func stripFences(text string) string {
	trimmed := strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(trimmed, "```json"):
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```json"))
	case strings.HasPrefix(trimmed, "```"):
		trimmed = strings.TrimSpace(strings.TrimPrefix(trimmed, "```"))
	}
	if strings.HasSuffix(trimmed, "```") {
		trimmed = strings.TrimSpace(strings.TrimSuffix(trimmed, "```"))
	}
	return trimmed
}
