// Package clipboard holds named slots of extracted values for one agent
// session, with per-slot size and usage bookkeeping for savings estimates.
package clipboard

import (
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/value"
)

// CharsPerToken is the fixed divisor used to turn bytes into tokens.
const CharsPerToken = 4

// placeholderOverhead is len("{{") + len("}}").
const placeholderOverhead = 4

// logPreviewLen bounds slot values written to logs.
const logPreviewLen = 100

type slot struct {
	value    value.Value
	byteSize int
	useCount int
}

// Clipboard maps slot names to values. Slots keep insertion order; an
// overwrite keeps the slot's original position.
type Clipboard struct {
	mu     sync.RWMutex
	names  []string
	slots  map[string]*slot
	logger *zap.Logger
}

// Option configures a Clipboard.
type Option func(*Clipboard)

// WithLogger sets the logger used for clipboard events.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Clipboard) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates an empty clipboard.
func New(opts ...Option) *Clipboard {
	c := &Clipboard{
		slots:  make(map[string]*slot),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Set stores v under name, recomputes its byte size and resets its usage
// count to zero.
func (c *Clipboard) Set(name string, v value.Value) {
	if v == nil {
		v = value.Null{}
	}
	size := value.Size(v)

	c.mu.Lock()
	if _, exists := c.slots[name]; !exists {
		c.names = append(c.names, name)
	}
	c.slots[name] = &slot{value: v, byteSize: size}
	c.mu.Unlock()

	c.logger.Info("clipboard set",
		zap.String("slot", name),
		zap.Int("bytes", size),
		zap.String("value", value.Preview(v, logPreviewLen)),
	)
}

// Get returns the value in the named slot. A missing slot is
// model.ErrNotFound and the message lists the known slots.
func (c *Clipboard) Get(name string) (value.Value, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	s, ok := c.slots[name]
	if !ok {
		return nil, fmt.Errorf("%w: clipboard slot %q. Available: [%s]",
			model.ErrNotFound, name, strings.Join(c.names, ", "))
	}
	return s.value, nil
}

// Has reports whether the named slot exists.
func (c *Clipboard) Has(name string) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.slots[name]
	return ok
}

// Clear removes the named slots together with their bookkeeping. With no
// names it removes every slot. Unknown names are ignored.
func (c *Clipboard) Clear(names ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(names) == 0 {
		c.names = nil
		c.slots = make(map[string]*slot)
		c.logger.Info("clipboard clear all")
		return
	}

	for _, name := range names {
		if _, ok := c.slots[name]; !ok {
			continue
		}
		delete(c.slots, name)
		for i, n := range c.names {
			if n == name {
				c.names = append(c.names[:i], c.names[i+1:]...)
				break
			}
		}
		c.logger.Info("clipboard clear", zap.String("slot", name))
	}
}

// RecordUsage increments the usage count of the named slot. Unknown slots
// are ignored.
func (c *Clipboard) RecordUsage(name string) {
	c.mu.Lock()
	s, ok := c.slots[name]
	count := 0
	if ok {
		s.useCount++
		count = s.useCount
	}
	c.mu.Unlock()

	if ok {
		c.logger.Debug("clipboard usage", zap.String("slot", name), zap.Int("count", count))
	}
}

// ListSlots returns slot names in insertion order.
func (c *Clipboard) ListSlots() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, len(c.names))
	copy(names, c.names)
	return names
}

// EstimateSavings reports how many output tokens substitution avoided,
// assuming CharsPerToken characters per token. Each use of a slot is charged
// the cost of writing "{{name}}".
func (c *Clipboard) EstimateSavings() model.Savings {
	c.mu.RLock()
	defer c.mu.RUnlock()

	savings := model.Savings{
		PerSlotUsage: make(map[string]int, len(c.slots)),
		PerSlotBytes: make(map[string]int, len(c.slots)),
	}

	overheadChars := 0
	for _, name := range c.names {
		s := c.slots[name]
		savings.BytesStored += s.byteSize
		savings.BytesSubstituted += s.byteSize * s.useCount
		savings.PerSlotUsage[name] = s.useCount
		savings.PerSlotBytes[name] = s.byteSize
		overheadChars += (placeholderOverhead + len(name)) * s.useCount
	}

	savings.EstimatedTokensSaved = savings.BytesSubstituted / CharsPerToken
	savings.ReferenceOverheadTokens = overheadChars / CharsPerToken
	savings.NetTokensSaved = savings.EstimatedTokensSaved - savings.ReferenceOverheadTokens
	return savings
}
