// Agent configuration types.
//
// Information Hiding:
// - Default values hidden
// - System prompt wording hidden

package agent

// DefaultMaxTurns bounds the model round trips of one run.
const DefaultMaxTurns = 20

// DefaultSystemPrompt teaches the model the zero-copy workflow.
const DefaultSystemPrompt = `You are an AI agent with clipboard primitives for ZERO-COPY content handling.

CRITICAL: Never re-type content you have already seen. Use references instead.

## Clipboard tools

1. copy - extract content from an earlier tool result into a named slot
   - source: "last", a tool name like "read_file", or an indexed reference like "read_file:0"
   - pattern: regex selecting the content to keep (optional, first match wins)
   - start_line / end_line: 1-indexed inclusive line range (optional, give both)
   - json_path: dot path into a structured result, e.g. "content" or "items.0" (optional)

   Example: copy(slot="code", source="read_file", start_line=10, end_line=25)

2. template_invoke - run a tool with {{slot}} placeholders substituted
   - A parameter that is exactly "{{slot}}" receives the slot's value with its type intact
   - Placeholders inside longer strings are replaced by the slot's text

   Example: template_invoke(template={"tool": "create_file", "parameters": {"path": "out.py", "content": "{{code}}"}})

## Workflow
1. Call a tool (e.g. read_file)
2. copy from it into a slot
3. template_invoke the next tool with {{slot}}

You never need to re-type file contents: reference them.`

// Config holds agent configuration.
type Config struct {
	// SystemPrompt guides the model; empty means DefaultSystemPrompt.
	SystemPrompt string

	// MaxTurns bounds model round trips; zero means DefaultMaxTurns.
	MaxTurns int

	// StoreInvocations also stores the inner result of template_invoke.
	StoreInvocations bool
}

// DefaultConfig returns the default agent configuration.
func DefaultConfig() Config {
	return Config{
		SystemPrompt: DefaultSystemPrompt,
		MaxTurns:     DefaultMaxTurns,
	}
}

func (c Config) withDefaults() Config {
	if c.SystemPrompt == "" {
		c.SystemPrompt = DefaultSystemPrompt
	}
	if c.MaxTurns <= 0 {
		c.MaxTurns = DefaultMaxTurns
	}
	return c
}
