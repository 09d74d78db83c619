// Package value provides the tagged JSON-like value used for tool results,
// clipboard slots and templates.
//
// A Value is exactly one of Text, Number, Boolean, Null, *Mapping or
// Sequence. The set is closed: the interface carries an unexported method so
// consumers can switch over it exhaustively instead of probing dynamic types.
// Values are treated as immutable once built; Mapping.Set exists for
// construction only.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies the variant of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindBoolean
	KindMapping
	KindSequence
)

// String returns the kind name used in logs and error messages.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindText:
		return "text"
	case KindNumber:
		return "number"
	case KindBoolean:
		return "boolean"
	case KindMapping:
		return "mapping"
	case KindSequence:
		return "sequence"
	default:
		return "unknown"
	}
}

// Value is a JSON-like tree node.
type Value interface {
	Kind() Kind
	sealed()
}

// Null is the JSON null.
type Null struct{}

// Text is a string value.
type Text string

// Number holds a JSON number literal verbatim so integers keep their
// integer rendering ("42", not "42.0").
type Number string

// Boolean is a JSON boolean.
type Boolean bool

// Sequence is an ordered list of values.
type Sequence []Value

func (Null) Kind() Kind     { return KindNull }
func (Text) Kind() Kind     { return KindText }
func (Number) Kind() Kind   { return KindNumber }
func (Boolean) Kind() Kind  { return KindBoolean }
func (Sequence) Kind() Kind { return KindSequence }

func (Null) sealed()     {}
func (Text) sealed()     {}
func (Number) sealed()   {}
func (Boolean) sealed()  {}
func (Sequence) sealed() {}

// Int returns the Number for an integer.
func Int(i int64) Number {
	return Number(strconv.FormatInt(i, 10))
}

// Float returns the Number for a float, using the shortest exact rendering.
func Float(f float64) Number {
	return Number(strconv.FormatFloat(f, 'f', -1, 64))
}

// Float64 parses the number as a float.
func (n Number) Float64() (float64, error) {
	f, err := strconv.ParseFloat(string(n), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", string(n), err)
	}
	return f, nil
}

// Mapping is an insertion-ordered string-keyed map.
type Mapping struct {
	keys   []string
	fields map[string]Value
}

// NewMapping creates an empty mapping.
func NewMapping() *Mapping {
	return &Mapping{fields: make(map[string]Value)}
}

func (*Mapping) Kind() Kind { return KindMapping }
func (*Mapping) sealed()    {}

// Set stores v under key. A new key is appended to the key order; an
// existing key keeps its position. Returns the mapping for chaining.
func (m *Mapping) Set(key string, v Value) *Mapping {
	if m.fields == nil {
		m.fields = make(map[string]Value)
	}
	if v == nil {
		v = Null{}
	}
	if _, exists := m.fields[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.fields[key] = v
	return m
}

// Get returns the value stored under key.
func (m *Mapping) Get(key string) (Value, bool) {
	if m == nil {
		return nil, false
	}
	v, ok := m.fields[key]
	return v, ok
}

// Keys returns the keys in insertion order.
func (m *Mapping) Keys() []string {
	if m == nil {
		return nil
	}
	keys := make([]string, len(m.keys))
	copy(keys, m.keys)
	return keys
}

// Len returns the number of keys.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	return len(m.keys)
}

// GetText returns the field as a string if it is Text.
func (m *Mapping) GetText(key string) (string, bool) {
	v, ok := m.Get(key)
	if !ok {
		return "", false
	}
	t, ok := v.(Text)
	return string(t), ok
}

// Clone returns a deep copy of v. Scalars are immutable and returned as is.
func Clone(v Value) Value {
	switch t := v.(type) {
	case Sequence:
		if t == nil {
			return t
		}
		out := make(Sequence, len(t))
		for i, item := range t {
			out[i] = Clone(item)
		}
		return out
	case *Mapping:
		if t == nil {
			return t
		}
		out := NewMapping()
		for _, k := range t.keys {
			out.Set(k, Clone(t.fields[k]))
		}
		return out
	default:
		return v
	}
}

// Equal reports whether a and b are structurally equal. Mapping key order is
// not significant; numbers compare by numeric value.
func Equal(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch av := a.(type) {
	case Null:
		return true
	case Text:
		return av == b.(Text)
	case Boolean:
		return av == b.(Boolean)
	case Number:
		bv := b.(Number)
		if av == bv {
			return true
		}
		af, aerr := av.Float64()
		bf, berr := bv.Float64()
		return aerr == nil && berr == nil && af == bf
	case Sequence:
		bv := b.(Sequence)
		if len(av) != len(bv) {
			return false
		}
		for i := range av {
			if !Equal(av[i], bv[i]) {
				return false
			}
		}
		return true
	case *Mapping:
		bv := b.(*Mapping)
		if av.Len() != bv.Len() {
			return false
		}
		for _, k := range av.Keys() {
			other, ok := bv.Get(k)
			if !ok || !Equal(av.fields[k], other) {
				return false
			}
		}
		return true
	}
	return false
}
