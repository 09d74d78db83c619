package template

import (
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/value"
)

// SlotSource resolves placeholder names. *clipboard.Clipboard implements it.
type SlotSource interface {
	// Get fails with an error wrapping model.ErrNotFound for unknown slots.
	Get(name string) (value.Value, error)
	RecordUsage(name string)
}

// Renderer substitutes placeholders in templates.
type Renderer struct {
	slots  SlotSource
	logger *zap.Logger
}

// RendererOption configures a Renderer.
type RendererOption func(*Renderer)

// WithRendererLogger sets the logger used for substitution events.
func WithRendererLogger(logger *zap.Logger) RendererOption {
	return func(r *Renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewRenderer creates a renderer reading from slots.
func NewRenderer(slots SlotSource, opts ...RendererOption) *Renderer {
	r := &Renderer{slots: slots, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Render returns a copy of tmpl with every placeholder resolved. A string
// that is exactly one placeholder (surrounding whitespace aside) becomes the
// slot value with its type intact; any other string has each placeholder
// replaced by the slot's text. Every occurrence records one usage. The first
// unknown slot aborts rendering.
func (r *Renderer) Render(tmpl value.Value) (value.Value, error) {
	switch t := tmpl.(type) {
	case value.Text:
		return r.renderText(string(t))

	case value.Sequence:
		out := make(value.Sequence, len(t))
		for i, item := range t {
			rendered, err := r.Render(item)
			if err != nil {
				return nil, err
			}
			out[i] = rendered
		}
		return out, nil

	case *value.Mapping:
		out := value.NewMapping()
		for _, key := range t.Keys() {
			field, _ := t.Get(key)
			rendered, err := r.Render(field)
			if err != nil {
				return nil, err
			}
			out.Set(key, rendered)
		}
		return out, nil

	default:
		return tmpl, nil
	}
}

func (r *Renderer) renderText(s string) (value.Value, error) {
	if name, ok := FullMatch(s); ok {
		v, err := r.lookup(name)
		if err != nil {
			return nil, err
		}
		r.logger.Info("template substitute",
			zap.String("slot", name),
			zap.String("kind", v.Kind().String()),
		)
		return value.Clone(v), nil
	}

	placeholders := Scan(s)
	if len(placeholders) == 0 {
		return value.Text(s), nil
	}

	var b strings.Builder
	prev := 0
	for _, p := range placeholders {
		v, err := r.lookup(p.Name)
		if err != nil {
			return nil, err
		}
		b.WriteString(s[prev:p.Start])
		b.WriteString(value.Stringify(v))
		prev = p.End
		r.logger.Info("template interpolate", zap.String("slot", p.Name))
	}
	b.WriteString(s[prev:])
	return value.Text(b.String()), nil
}

func (r *Renderer) lookup(name string) (value.Value, error) {
	v, err := r.slots.Get(name)
	if err != nil {
		return nil, err
	}
	r.slots.RecordUsage(name)
	return v, nil
}

// Render renders tmpl against slots with a silent renderer.
func Render(tmpl value.Value, slots SlotSource) (value.Value, error) {
	return NewRenderer(slots).Render(tmpl)
}
