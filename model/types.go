// Package model provides domain types shared across packages.
package model

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/richinex/clipagent/value"
)

// Core error taxonomy. Every failure from the store, clipboard, extractor or
// renderer wraps one of these; callers test with errors.Is.
var (
	// ErrNotFound is returned for a missing slot, a missing stored result,
	// an out-of-range ordinal, an unmatched pattern or an unresolvable path.
	ErrNotFound = errors.New("not found")

	// ErrMalformed is returned for a non-numeric ordinal suffix, an invalid
	// pattern or a template missing required fields.
	ErrMalformed = errors.New("malformed")
)

// Pseudo-tool names handled by the session rather than the tool registry.
const (
	CopyToolName           = "copy"
	TemplateInvokeToolName = "template_invoke"
)

// IsPseudoTool reports whether name is one of the clipboard pseudo-tools.
func IsPseudoTool(name string) bool {
	return name == CopyToolName || name == TemplateInvokeToolName
}

// CallRecord describes one tool invocation attempt made by an agent.
// Result is nil when the call failed with an error.
type CallRecord struct {
	Tool          string        `json:"tool"`
	Input         value.Value   `json:"input"`
	UsedClipboard bool          `json:"used_clipboard"`
	Result        value.Value   `json:"result"`
	Error         string        `json:"error,omitempty"`
	Duration      time.Duration `json:"duration_ns"`
}

// Succeeded reports whether the call completed without an error.
func (c CallRecord) Succeeded() bool {
	return c.Error == ""
}

// UnmarshalJSON decodes a record written by MarshalJSON, keeping the
// key order of input and result values.
func (c *CallRecord) UnmarshalJSON(data []byte) error {
	var aux struct {
		Tool          string          `json:"tool"`
		Input         json.RawMessage `json:"input"`
		UsedClipboard bool            `json:"used_clipboard"`
		Result        json.RawMessage `json:"result"`
		Error         string          `json:"error"`
		Duration      time.Duration   `json:"duration_ns"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	rec := CallRecord{
		Tool:          aux.Tool,
		UsedClipboard: aux.UsedClipboard,
		Error:         aux.Error,
		Duration:      aux.Duration,
	}
	if len(aux.Input) > 0 {
		v, err := value.Parse(aux.Input)
		if err != nil {
			return fmt.Errorf("call record input: %w", err)
		}
		rec.Input = v
	}
	// A failed call is written with a null result; keep it nil.
	if len(aux.Result) > 0 && string(aux.Result) != "null" {
		v, err := value.Parse(aux.Result)
		if err != nil {
			return fmt.Errorf("call record result: %w", err)
		}
		rec.Result = v
	}
	*c = rec
	return nil
}

// TokenUsage holds cumulative model token counters supplied by the caller.
type TokenUsage struct {
	Input  int `json:"input"`
	Output int `json:"output"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.Input + u.Output
}

// Savings is the token-savings estimate derived from clipboard usage.
// NetTokensSaved may be negative when reference overhead exceeds the bytes
// substituted.
type Savings struct {
	BytesStored             int            `json:"bytes_stored"`
	BytesSubstituted        int            `json:"bytes_substituted"`
	EstimatedTokensSaved    int            `json:"estimated_tokens_saved"`
	ReferenceOverheadTokens int            `json:"reference_overhead_tokens"`
	NetTokensSaved          int            `json:"net_tokens_saved"`
	PerSlotUsage            map[string]int `json:"per_slot_usage"`
	PerSlotBytes            map[string]int `json:"per_slot_bytes"`
}

// Stats is the read-only statistics surface of an agent session.
type Stats struct {
	TotalToolCalls      int        `json:"total_tool_calls"`
	CopyCalls           int        `json:"copy_calls"`
	TemplateInvokeCalls int        `json:"template_invoke_calls"`
	ClipboardSlots      []string   `json:"clipboard_slots"`
	StoredResults       []string   `json:"stored_results"`
	TokenUsage          TokenUsage `json:"token_usage"`
	TokenSavings        Savings    `json:"token_savings"`
}
