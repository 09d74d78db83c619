// Result types for the per-session tool result store.
//
// Information Hiding:
// - Per-tool append order and the "last" pointer hidden behind ResultStore
// - Reference parsing ("last", "tool", "tool:N") encapsulated
package storage

import (
	"strconv"
	"time"

	"github.com/richinex/clipagent/value"
)

// LastReference addresses the most recent result of any tool.
const LastReference = "last"

// StoredResult is one tool result captured by the ResultStore.
// It is never mutated after Store returns.
type StoredResult struct {
	Tool     string      `json:"tool"`
	Ordinal  int         `json:"ordinal"` // 0-indexed position among results of Tool
	Value    value.Value `json:"result"`
	Hash     string      `json:"hash"` // xxHash of the canonical JSON encoding
	ByteSize int         `json:"byte_size"`
	StoredAt time.Time   `json:"stored_at"`
}

// Reference returns the indexed reference ("tool:N") for this result.
func (r StoredResult) Reference() string {
	return r.Tool + ":" + strconv.Itoa(r.Ordinal)
}

// ReferenceInfo summarises a stored result for listings.
type ReferenceInfo struct {
	Reference string `json:"reference"`
	Tool      string `json:"tool"`
	Ordinal   int    `json:"ordinal"`
	Hash      string `json:"hash"`
	ByteSize  int    `json:"byte_size"`
	Preview   string `json:"preview"`
}
