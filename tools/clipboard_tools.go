// Clipboard pseudo-tools - copy and template_invoke.
//
// Information Hiding:
// - Reference resolution, extraction and slot bookkeeping hidden behind copy
// - Lenient template decoding and dispatch hidden behind template_invoke
// - Failures surface as Go errors wrapping model.ErrNotFound / model.ErrMalformed

package tools

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/clipboard"
	ijson "github.com/richinex/clipagent/internal/json"
	"github.com/richinex/clipagent/extract"
	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/storage"
	"github.com/richinex/clipagent/template"
	"github.com/richinex/clipagent/value"
)

const copyPreviewLen = 200

// CopyTool extracts part of a stored tool result into a clipboard slot.
type CopyTool struct {
	store     *storage.ResultStore
	clipboard *clipboard.Clipboard
	logger    *zap.Logger
}

// NewCopyTool creates the copy pseudo-tool.
func NewCopyTool(store *storage.ResultStore, cb *clipboard.Clipboard, logger *zap.Logger) *CopyTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CopyTool{store: store, clipboard: cb, logger: logger}
}

// Metadata returns the tool metadata.
func (t *CopyTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: model.CopyToolName,
		Description: "Copy content from a previous tool result into a named clipboard slot. " +
			"Use it instead of repeating large content: reference the slot later as {{slot}} in template_invoke.",
		Parameters: []ToolParameter{
			{Name: "slot", ParamType: "string", Description: "Clipboard slot name (e.g. 'config', 'header')", Required: true},
			{Name: "source", ParamType: "string", Description: "Source reference: 'last', a tool name like 'read_file', or indexed like 'read_file:0'", Required: true},
			{Name: "pattern", ParamType: "string", Description: "Regex to extract (dot matches newline, first match wins)"},
			{Name: "start_line", ParamType: "integer", Description: "Start line (1-indexed) for line-based extraction"},
			{Name: "end_line", ParamType: "integer", Description: "End line (1-indexed, inclusive) for line-based extraction"},
			{Name: "json_path", ParamType: "string", Description: "Dot path to extract (e.g. 'content' or 'data.items.0')"},
		},
	}
}

type copyArgs struct {
	Slot      string  `json:"slot"`
	Source    string  `json:"source"`
	Pattern   *string `json:"pattern"`
	StartLine *int    `json:"start_line"`
	EndLine   *int    `json:"end_line"`
	JSONPath  *string `json:"json_path"`
}

// Validate checks args against the tool schema.
func (t *CopyTool) Validate(args json.RawMessage) error {
	if err := ValidateArgs(t.Metadata(), args); err != nil {
		return fmt.Errorf("%w: %v", model.ErrMalformed, err)
	}
	return nil
}

// Execute resolves the source, extracts and fills the slot. It returns
// {success, slot, source, tool, method, bytes_extracted, source_hash, preview}.
func (t *CopyTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a copyArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return ToolResult{}, fmt.Errorf("%w: copy arguments: %v", model.ErrMalformed, err)
	}

	source, err := t.store.Resolve(a.Source)
	if err != nil {
		return ToolResult{}, err
	}

	extracted, err := extract.Extract(source.Value, extract.Spec{
		JSONPath:  a.JSONPath,
		Pattern:   a.Pattern,
		StartLine: a.StartLine,
		EndLine:   a.EndLine,
	})
	if err != nil {
		return ToolResult{}, fmt.Errorf("copy from %s: %w", a.Source, err)
	}

	t.clipboard.Set(a.Slot, extracted.Value)
	size := value.Size(extracted.Value)

	t.logger.Info("copy",
		zap.String("source", a.Source),
		zap.String("tool", source.Tool),
		zap.String("slot", a.Slot),
		zap.String("method", extracted.Method),
		zap.Int("bytes", size),
	)

	return SuccessResult(value.NewMapping().
		Set("success", value.Boolean(true)).
		Set("slot", value.Text(a.Slot)).
		Set("source", value.Text(a.Source)).
		Set("tool", value.Text(source.Tool)).
		Set("method", value.Text(extracted.Method)).
		Set("bytes_extracted", value.Int(int64(size))).
		Set("source_hash", value.Text(source.Hash)).
		Set("preview", value.Text(value.Preview(extracted.Value, copyPreviewLen))),
	), nil
}

// TemplateInvokeTool renders a {tool, parameters} template against the
// clipboard and runs the named tool with the result.
type TemplateInvokeTool struct {
	dispatcher *template.Dispatcher
}

// NewTemplateInvokeTool creates the template_invoke pseudo-tool.
func NewTemplateInvokeTool(dispatcher *template.Dispatcher) *TemplateInvokeTool {
	return &TemplateInvokeTool{dispatcher: dispatcher}
}

// Metadata returns the tool metadata.
func (t *TemplateInvokeTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name: model.TemplateInvokeToolName,
		Description: "Invoke a tool with {{slot}} placeholders replaced by clipboard content. " +
			"A parameter that is exactly {{slot}} receives the slot's value with its type intact.",
		Parameters: []ToolParameter{
			{
				Name:        "template",
				ParamType:   "object",
				Description: "The tool call template",
				Required:    true,
				Properties: []ToolParameter{
					{Name: "tool", ParamType: "string", Description: "Name of the tool to invoke", Required: true},
					{Name: "parameters", ParamType: "object", Description: "Tool parameters; strings may contain {{slot}} placeholders", Required: true},
				},
			},
		},
	}
}

// Validate checks args against the tool schema. The template may also
// arrive as a JSON-encoded string; its fields are checked after decoding.
func (t *TemplateInvokeTool) Validate(args json.RawMessage) error {
	meta := t.Metadata()
	schema := meta.Schema()
	tmpl := schema.Properties["template"]
	tmpl.Type = ""
	tmpl.Types = []string{"object", "string"}

	resolved, err := schema.Resolve(nil)
	if err != nil {
		return fmt.Errorf("tool %q has an invalid schema: %w", meta.Name, err)
	}
	var instance any
	if err := json.Unmarshal(args, &instance); err != nil {
		return fmt.Errorf("%w: invalid arguments: %v", model.ErrMalformed, err)
	}
	if err := resolved.Validate(instance); err != nil {
		return fmt.Errorf("%w: invalid arguments for %s: %v", model.ErrMalformed, meta.Name, err)
	}
	return nil
}

// Execute returns {tool_executed, substitutions_applied, result}.
func (t *TemplateInvokeTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	v, err := value.Parse(args)
	if err != nil {
		return ToolResult{}, fmt.Errorf("%w: template_invoke arguments: %v", model.ErrMalformed, err)
	}
	a, ok := v.(*value.Mapping)
	if !ok {
		return ToolResult{}, fmt.Errorf("%w: template_invoke arguments must be an object", model.ErrMalformed)
	}

	tmpl, ok := a.Get("template")
	if !ok {
		return ToolResult{}, fmt.Errorf("%w: template_invoke requires \"template\"", model.ErrMalformed)
	}
	if text, isText := tmpl.(value.Text); isText {
		parsed, err := ijson.ParseObject(string(text))
		if err != nil {
			return ToolResult{}, fmt.Errorf("%w: template string: %v", model.ErrMalformed, err)
		}
		tmpl = parsed
	}

	inv, err := template.ParseInvocation(tmpl)
	if err != nil {
		return ToolResult{}, err
	}
	outcome, err := t.dispatcher.Invoke(ctx, inv)
	if err != nil {
		return ToolResult{}, err
	}
	return SuccessResult(outcome.Envelope()), nil
}
