package template

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/value"
)

// Executor runs a tool by name. Implementations must be total: an unknown
// tool yields a structured error value, not a Go error.
type Executor interface {
	Execute(ctx context.Context, tool string, args value.Value) (value.Value, error)
}

// toolLister is implemented by executors that can name their tools.
type toolLister interface {
	ToolNames() []string
}

// Invocation is a parsed template: a tool name and a parameter tree that may
// contain placeholders.
type Invocation struct {
	Tool       string
	Parameters value.Value
}

// ParseInvocation reads {"tool": ..., "parameters": ...} from v. A missing or
// non-text tool, or missing parameters, is model.ErrMalformed.
func ParseInvocation(v value.Value) (Invocation, error) {
	m, ok := v.(*value.Mapping)
	if !ok {
		return Invocation{}, fmt.Errorf("%w: template must be a mapping with tool and parameters, got %s",
			model.ErrMalformed, describeKind(v))
	}

	toolName, ok := m.GetText("tool")
	if !ok || toolName == "" {
		return Invocation{}, fmt.Errorf("%w: template requires a non-empty \"tool\" name (keys: [%s])",
			model.ErrMalformed, strings.Join(m.Keys(), ", "))
	}
	params, ok := m.Get("parameters")
	if !ok {
		return Invocation{}, fmt.Errorf("%w: template for %q requires \"parameters\" (keys: [%s])",
			model.ErrMalformed, toolName, strings.Join(m.Keys(), ", "))
	}
	return Invocation{Tool: toolName, Parameters: params}, nil
}

// Outcome is the result of a dispatched invocation.
type Outcome struct {
	Tool       string
	Parameters value.Value // rendered
	Result     value.Value
}

// Envelope wraps the tool result with the invoked tool's name and a flag
// confirming substitution ran.
func (o Outcome) Envelope() *value.Mapping {
	return value.NewMapping().
		Set("tool_executed", value.Text(o.Tool)).
		Set("substitutions_applied", value.Boolean(true)).
		Set("result", o.Result)
}

// Dispatcher renders invocation parameters and forwards them to an Executor.
type Dispatcher struct {
	renderer *Renderer
	executor Executor
	logger   *zap.Logger
}

// NewDispatcher creates a dispatcher.
func NewDispatcher(renderer *Renderer, executor Executor, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{renderer: renderer, executor: executor, logger: logger}
}

// Invoke renders inv.Parameters and executes inv.Tool with them. Pseudo-tools
// cannot be targets. Render failures abort before execution; executor errors
// propagate unchanged.
func (d *Dispatcher) Invoke(ctx context.Context, inv Invocation) (Outcome, error) {
	if model.IsPseudoTool(inv.Tool) {
		return Outcome{}, fmt.Errorf("%w: %q cannot be invoked from a template. Available: [%s]",
			model.ErrMalformed, inv.Tool, strings.Join(d.toolNames(), ", "))
	}

	d.logger.Info("template invoke",
		zap.String("tool", inv.Tool),
		zap.String("raw_parameters", value.Preview(inv.Parameters, 200)),
	)

	rendered, err := d.renderer.Render(inv.Parameters)
	if err != nil {
		return Outcome{}, fmt.Errorf("render template for %q: %w", inv.Tool, err)
	}

	d.logger.Debug("template rendered",
		zap.String("tool", inv.Tool),
		zap.String("parameters", value.Preview(rendered, 200)),
	)

	result, err := d.executor.Execute(ctx, inv.Tool, rendered)
	if err != nil {
		return Outcome{}, err
	}
	return Outcome{Tool: inv.Tool, Parameters: rendered, Result: result}, nil
}

func (d *Dispatcher) toolNames() []string {
	if l, ok := d.executor.(toolLister); ok {
		return l.ToolNames()
	}
	return nil
}

func describeKind(v value.Value) string {
	if v == nil {
		return "nothing"
	}
	return v.Kind().String()
}
