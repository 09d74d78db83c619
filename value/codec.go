package value

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"
)

// Parse decodes a single JSON document, keeping object key order.
func Parse(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decode(dec)
	if err != nil {
		return nil, fmt.Errorf("failed to parse value: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse value: trailing data after document")
	}
	return v, nil
}

// MustParse is Parse for literals in tests and fixtures. It panics on error.
func MustParse(s string) Value {
	v, err := Parse([]byte(s))
	if err != nil {
		panic(err)
	}
	return v
}

func decode(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case nil:
		return Null{}, nil
	case string:
		return Text(t), nil
	case bool:
		return Boolean(t), nil
	case json.Number:
		return Number(t), nil
	case json.Delim:
		switch t {
		case '{':
			m := NewMapping()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("unexpected object key %v", keyTok)
				}
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				m.Set(key, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return m, nil
		case '[':
			seq := Sequence{}
			for dec.More() {
				v, err := decode(dec)
				if err != nil {
					return nil, err
				}
				seq = append(seq, v)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		}
	}
	return nil, fmt.Errorf("unexpected token %v", tok)
}

// Encode renders v as compact JSON. HTML characters are not escaped.
func Encode(v Value) []byte {
	var buf bytes.Buffer
	writeJSON(&buf, v)
	return buf.Bytes()
}

func writeJSON(buf *bytes.Buffer, v Value) {
	switch t := v.(type) {
	case nil, Null:
		buf.WriteString("null")
	case Text:
		writeString(buf, string(t))
	case Number:
		if t == "" {
			buf.WriteString("0")
		} else {
			buf.WriteString(string(t))
		}
	case Boolean:
		buf.WriteString(strconv.FormatBool(bool(t)))
	case Sequence:
		buf.WriteByte('[')
		for i, item := range t {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeJSON(buf, item)
		}
		buf.WriteByte(']')
	case *Mapping:
		buf.WriteByte('{')
		if t != nil {
			for i, k := range t.keys {
				if i > 0 {
					buf.WriteByte(',')
				}
				writeString(buf, k)
				buf.WriteByte(':')
				writeJSON(buf, t.fields[k])
			}
		}
		buf.WriteByte('}')
	}
}

func writeString(buf *bytes.Buffer, s string) {
	var sb bytes.Buffer
	enc := json.NewEncoder(&sb)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	buf.Write(bytes.TrimSuffix(sb.Bytes(), []byte("\n")))
}

// MarshalJSON implements json.Marshaler.
func (n Null) MarshalJSON() ([]byte, error) { return Encode(n), nil }

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) { return Encode(t), nil }

// MarshalJSON implements json.Marshaler.
func (n Number) MarshalJSON() ([]byte, error) { return Encode(n), nil }

// MarshalJSON implements json.Marshaler.
func (b Boolean) MarshalJSON() ([]byte, error) { return Encode(b), nil }

// MarshalJSON implements json.Marshaler.
func (s Sequence) MarshalJSON() ([]byte, error) { return Encode(s), nil }

// MarshalJSON implements json.Marshaler.
func (m *Mapping) MarshalJSON() ([]byte, error) { return Encode(m), nil }

// UnmarshalJSON implements json.Unmarshaler. The document must be an object.
func (m *Mapping) UnmarshalJSON(data []byte) error {
	v, err := Parse(data)
	if err != nil {
		return err
	}
	parsed, ok := v.(*Mapping)
	if !ok {
		return fmt.Errorf("expected object, got %s", v.Kind())
	}
	*m = *parsed
	return nil
}

// Stringify returns the textual form of v: Text verbatim, everything else as
// compact JSON.
func Stringify(v Value) string {
	if t, ok := v.(Text); ok {
		return string(t)
	}
	return string(Encode(v))
}

// Size returns the length of the textual form of v in characters, so
// non-ASCII text is not overcounted.
func Size(v Value) int {
	return utf8.RuneCountInString(Stringify(v))
}

// Preview returns the textual form of v cut to max bytes, with "..." appended
// when truncated. The cut never splits a UTF-8 sequence.
func Preview(v Value, max int) string {
	return Truncate(Stringify(v), max)
}

// Truncate cuts s to at most max bytes on a rune boundary and appends "...".
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
