// ResultStore keeps every tool result of an agent session addressable by
// reference.
//
// Architecture:
// - byTool: tool name -> append-only slice; the slice index is the ordinal
// - order: tool names by first appearance, for stable listings
// - last: pointer to the globally most recent result
package storage

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/value"
)

// ResultStore is an append-only store of tool results for one session.
// Ordinals never renumber and the "last" pointer only moves forward.
type ResultStore struct {
	mu sync.RWMutex

	byTool map[string][]StoredResult
	order  []string

	lastTool    string
	lastOrdinal int
	hasLast     bool

	logger *zap.Logger
	now    func() time.Time
}

// Option configures a ResultStore.
type Option func(*ResultStore)

// WithLogger sets the logger used for store events.
func WithLogger(logger *zap.Logger) Option {
	return func(s *ResultStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewResultStore creates an empty in-memory result store.
func NewResultStore(opts ...Option) *ResultStore {
	s := &ResultStore{
		byTool: make(map[string][]StoredResult),
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Store appends a result under toolName, moves the "last" pointer to it and
// returns its ordinal. It always succeeds.
func (s *ResultStore) Store(toolName string, v value.Value) int {
	if v == nil {
		v = value.Null{}
	}
	encoded := value.Encode(v)

	s.mu.Lock()
	results, seen := s.byTool[toolName]
	if !seen {
		s.order = append(s.order, toolName)
	}
	ordinal := len(results)
	s.byTool[toolName] = append(results, StoredResult{
		Tool:     toolName,
		Ordinal:  ordinal,
		Value:    v,
		Hash:     computeContentHash(encoded),
		ByteSize: value.Size(v),
		StoredAt: s.now(),
	})
	s.lastTool = toolName
	s.lastOrdinal = ordinal
	s.hasLast = true
	s.mu.Unlock()

	s.logger.Info("result stored",
		zap.String("reference", toolName+":"+strconv.Itoa(ordinal)),
		zap.String("kind", v.Kind().String()),
	)
	return ordinal
}

// Resolve returns the stored result addressed by ref:
//   - "last": the most recent result of any tool
//   - "<tool>": the most recent result of that tool
//   - "<tool>:<N>": the N-th (0-indexed) result of that tool
//
// The rightmost colon always separates the ordinal, so "a:b:1" is ordinal 1
// of tool "a:b". Errors wrap model.ErrNotFound; a non-numeric ordinal also
// wraps model.ErrMalformed.
func (s *ResultStore) Resolve(ref string) (StoredResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if ref == LastReference {
		if !s.hasLast {
			return StoredResult{}, fmt.Errorf("%w: no tool results stored yet", model.ErrNotFound)
		}
		return s.byTool[s.lastTool][s.lastOrdinal], nil
	}

	toolName := ref
	ordinal := -1
	if i := strings.LastIndex(ref, ":"); i >= 0 {
		suffix := ref[i+1:]
		if !isDigits(suffix) {
			return StoredResult{}, fmt.Errorf("%w: %w: invalid index in source %q. Available: %s",
				model.ErrNotFound, model.ErrMalformed, ref, s.availableLocked())
		}
		n, err := strconv.Atoi(suffix)
		if err != nil {
			return StoredResult{}, fmt.Errorf("%w: %w: index in source %q: %v",
				model.ErrNotFound, model.ErrMalformed, ref, err)
		}
		toolName = ref[:i]
		ordinal = n
	}

	results, ok := s.byTool[toolName]
	if !ok {
		return StoredResult{}, fmt.Errorf("%w: no results for tool %q. Available: %s",
			model.ErrNotFound, toolName, s.availableLocked())
	}

	if ordinal < 0 {
		return results[len(results)-1], nil
	}
	if ordinal >= len(results) {
		return StoredResult{}, fmt.Errorf("%w: index %d out of range for %q (has %d results). Available: %s",
			model.ErrNotFound, ordinal, toolName, len(results), s.availableLocked())
	}
	return results[ordinal], nil
}

// ListReferences returns every addressable reference. A tool with a single
// result is listed by bare name; a tool with several is listed as "tool:N"
// for each N. Tools appear in order of first appearance.
func (s *ResultStore) ListReferences() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.referencesLocked()
}

// Describe returns listing details for every stored result in reference order.
func (s *ResultStore) Describe(previewLen int) []ReferenceInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var infos []ReferenceInfo
	for _, toolName := range s.order {
		results := s.byTool[toolName]
		for _, r := range results {
			ref := toolName
			if len(results) > 1 {
				ref = r.Reference()
			}
			infos = append(infos, ReferenceInfo{
				Reference: ref,
				Tool:      r.Tool,
				Ordinal:   r.Ordinal,
				Hash:      r.Hash,
				ByteSize:  r.ByteSize,
				Preview:   value.Preview(r.Value, previewLen),
			})
		}
	}
	return infos
}

func (s *ResultStore) referencesLocked() []string {
	refs := []string{}
	for _, toolName := range s.order {
		results := s.byTool[toolName]
		if len(results) == 1 {
			refs = append(refs, toolName)
			continue
		}
		for i := range results {
			refs = append(refs, toolName+":"+strconv.Itoa(i))
		}
	}
	return refs
}

func (s *ResultStore) availableLocked() string {
	refs := s.referencesLocked()
	if s.hasLast {
		refs = append([]string{LastReference}, refs...)
	}
	return "[" + strings.Join(refs, ", ") + "]"
}

// isDigits reports whether s is a non-empty run of ASCII digits.
func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

// computeContentHash uses xxHash for a fast, stable content fingerprint.
func computeContentHash(content []byte) string {
	h := xxhash.Sum64(content)
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], h)
	return hex.EncodeToString(buf[:])
}
