// Package tools provides tool management and registration.
//
// Information Hiding:
// - Tool storage and lookup implementation hidden
// - Unknown-tool handling hidden behind a total Execute
// - Registration and discovery mechanisms abstracted

package tools

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/value"
)

// Registry manages available tools with dynamic registration.
// Execute makes it the tool-execution collaborator used by template dispatch.
type Registry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	executor *Executor
	logger   *zap.Logger
}

// NewRegistry creates a new empty tool registry.
func NewRegistry(executor *Executor, logger *zap.Logger) *Registry {
	if executor == nil {
		executor = NewDefaultExecutor()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		tools:    make(map[string]Tool),
		executor: executor,
		logger:   logger,
	}
}

// Register adds a new tool to the registry.
// Returns error if a tool with the same name already exists.
func (r *Registry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Metadata().Name
	if _, exists := r.tools[name]; exists {
		return fmt.Errorf("tool '%s' already registered", name)
	}
	r.tools[name] = tool
	return nil
}

// Get returns a tool by name.
func (r *Registry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tool, exists := r.tools[name]
	return tool, exists
}

// Names returns all registered tool names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToolNames is Names; it lets template dispatch list valid targets.
func (r *Registry) ToolNames() []string {
	return r.Names()
}

// List returns metadata for all registered tools, sorted by name.
func (r *Registry) List() []ToolMetadata {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()

	metadata := make([]ToolMetadata, 0, len(names))
	for _, name := range names {
		metadata = append(metadata, r.tools[name].Metadata())
	}
	return metadata
}

// Execute runs the named tool. It is total: an unknown name yields
// {"error": "Unknown tool: <name>", "available": [...]} and a tool-logic
// failure yields {"success": false, "error": ...}. Only errors raised by the
// tool itself are returned.
func (r *Registry) Execute(ctx context.Context, name string, args value.Value) (value.Value, error) {
	tool, ok := r.Get(name)
	if !ok {
		available := value.Sequence{}
		for _, n := range r.Names() {
			available = append(available, value.Text(n))
		}
		r.logger.Warn("unknown tool", zap.String("tool", name))
		return value.NewMapping().
			Set("error", value.Text("Unknown tool: "+name)).
			Set("available", available), nil
	}

	if args == nil {
		args = value.NewMapping()
	}
	result, err := r.executor.Execute(ctx, tool, value.Encode(args))
	if err != nil {
		return nil, fmt.Errorf("tool %s: %w", name, err)
	}
	return result.Value(), nil
}

// FormatMetadata renders one tool's name, description and parameters.
func FormatMetadata(meta ToolMetadata) string {
	var params []string
	for _, p := range meta.Parameters {
		params = append(params, formatParameter(p, "  "))
	}
	return fmt.Sprintf("Tool: %s\nDescription: %s\nParameters:\n%s",
		meta.Name, meta.Description, strings.Join(params, "\n"))
}

func formatParameter(p ToolParameter, indent string) string {
	required := "optional"
	if p.Required {
		required = "required"
	}
	paramType := p.ParamType
	if paramType == "" {
		paramType = "any"
	}
	line := fmt.Sprintf("%s- %s (%s): %s [%s]", indent, p.Name, paramType, p.Description, required)
	if len(p.Enum) > 0 {
		line += " one of " + strings.Join(p.Enum, "|")
	}
	for _, sub := range p.Properties {
		line += "\n" + formatParameter(sub, indent+"  ")
	}
	return line
}

// WithDefaults creates a registry with the sample tools: read_file,
// create_file and http_request.
func WithDefaults(config ToolConfig, logger *zap.Logger) (*Registry, error) {
	registry := NewRegistry(NewExecutor(config, logger), logger)

	tools := []Tool{
		NewReadFileTool(config.Dir(), config.MaxFileSize(), logger),
		NewCreateFileTool(config.Dir(), config.MaxFileSize(), logger),
		NewHTTPRequestTool(logger),
	}

	for _, t := range tools {
		if err := registry.Register(t); err != nil {
			return nil, fmt.Errorf("failed to register default tools: %w", err)
		}
	}

	return registry, nil
}
