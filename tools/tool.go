// Package tools provides the tool system for agents.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Registry implementation details hidden from consumers
// - Tool-logic failures internalized as structured failure values
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/richinex/clipagent/value"
)

// ToolParameter defines a parameter schema for a tool.
// An empty ParamType accepts any JSON value.
type ToolParameter struct {
	Name        string          `json:"name"`
	ParamType   string          `json:"param_type"`
	Description string          `json:"description"`
	Required    bool            `json:"required"`
	Enum        []string        `json:"enum,omitempty"`
	Properties  []ToolParameter `json:"properties,omitempty"` // for "object" parameters
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Schema returns the JSON Schema of the tool's input object.
func (m ToolMetadata) Schema() *jsonschema.Schema {
	return objectSchema(m.Description, m.Parameters)
}

func objectSchema(description string, params []ToolParameter) *jsonschema.Schema {
	s := &jsonschema.Schema{
		Type:        "object",
		Description: description,
		Properties:  make(map[string]*jsonschema.Schema, len(params)),
	}
	for _, p := range params {
		s.Properties[p.Name] = parameterSchema(p)
		if p.Required {
			s.Required = append(s.Required, p.Name)
		}
	}
	sort.Strings(s.Required)
	return s
}

func parameterSchema(p ToolParameter) *jsonschema.Schema {
	if p.ParamType == "object" {
		return objectSchema(p.Description, p.Properties)
	}
	s := &jsonschema.Schema{Type: p.ParamType, Description: p.Description}
	for _, e := range p.Enum {
		s.Enum = append(s.Enum, e)
	}
	return s
}

// ValidateArgs checks args against the tool's input schema.
func ValidateArgs(meta ToolMetadata, args json.RawMessage) error {
	resolved, err := meta.Schema().Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %q has an invalid schema: %w", meta.Name, err)
	}
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("invalid arguments for %s: %w", meta.Name, err)
	}
	return nil
}

// ToolResult represents the result of a tool execution.
// Success is determined by whether Error is nil.
type ToolResult struct {
	Output value.Value `json:"output"`
	Error  error       `json:"-"`
}

// Value returns the result as a JSON-like value. A failure becomes
// {"success": false, "error": "..."}.
func (t ToolResult) Value() value.Value {
	if t.Error != nil {
		return value.NewMapping().
			Set("success", value.Boolean(false)).
			Set("error", value.Text(t.Error.Error()))
	}
	if t.Output == nil {
		return value.Null{}
	}
	return t.Output
}

// MarshalJSON implements custom JSON marshaling for ToolResult.
func (t ToolResult) MarshalJSON() ([]byte, error) {
	return value.Encode(t.Value()), nil
}

// Success returns true if the tool execution succeeded.
func (t ToolResult) Success() bool {
	return t.Error == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output value.Value) ToolResult {
	return ToolResult{Output: output}
}

// FailureResult creates a failed tool result.
func FailureResult(err error) ToolResult {
	return ToolResult{Error: err}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...interface{}) ToolResult {
	return ToolResult{Error: fmt.Errorf(format, args...)}
}

// Tool is the interface that all tools must implement.
//
// Execute reports tool-logic failures (missing file, bad input) as a failed
// ToolResult; a non-nil error means the call itself could not be carried out.
type Tool interface {
	// Metadata returns tool metadata (name, description, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (ToolResult, error)

	// Validate validates arguments before execution.
	Validate(args json.RawMessage) error
}

// ToolConfig holds tool execution configuration.
// The zero value is safe: timeout defaults to 30s, file size to 1 MiB and the
// output directory to ./output.
type ToolConfig struct {
	TimeoutSecs  uint64
	MaxFileBytes int64
	OutputDir    string
}

// Default tool configuration values.
const (
	DefaultToolTimeout = 30          // seconds
	DefaultMaxFileSize = 1024 * 1024 // 1MB
	DefaultOutputDir   = "./output"
)

// Timeout returns the configured timeout, defaulting to 30 seconds if zero.
func (c ToolConfig) Timeout() time.Duration {
	if c.TimeoutSecs == 0 {
		return DefaultToolTimeout * time.Second
	}
	return time.Duration(c.TimeoutSecs) * time.Second
}

// MaxFileSize returns the configured file size limit, defaulting to 1 MiB.
func (c ToolConfig) MaxFileSize() int64 {
	if c.MaxFileBytes <= 0 {
		return DefaultMaxFileSize
	}
	return c.MaxFileBytes
}

// Dir returns the output directory, defaulting to ./output.
func (c ToolConfig) Dir() string {
	if c.OutputDir == "" {
		return DefaultOutputDir
	}
	return c.OutputDir
}
