// Session - per-run state shared by the agent loop and the pseudo-tools.
//
// Information Hiding:
// - Routing between pseudo-tools and registered tools hidden
// - Result Store bookkeeping hidden (which results are stored, under which name)
// - Call recording and statistics aggregation hidden

package agent

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/richinex/clipagent/clipboard"
	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/storage"
	"github.com/richinex/clipagent/template"
	"github.com/richinex/clipagent/tools"
	"github.com/richinex/clipagent/value"
)

// logPreviewLen bounds tool input and result text in log fields.
const logPreviewLen = 100

// Session owns a Result Store, a Clipboard and the pseudo-tools bound to
// them. A session lives for one run; nothing in it is persisted.
type Session struct {
	id               string
	store            *storage.ResultStore
	clipboard        *clipboard.Clipboard
	registry         *tools.Registry
	pseudo           map[string]tools.Tool
	storeInvocations bool
	logger           *zap.Logger

	mu    sync.Mutex
	calls []model.CallRecord
	usage model.TokenUsage
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithLogger sets the session logger. It is passed on to the store,
// clipboard and pseudo-tools.
func WithLogger(logger *zap.Logger) SessionOption {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithStoreInvocations makes the inner result of a template_invoke enter the
// Result Store under the invoked tool's name.
func WithStoreInvocations(enabled bool) SessionOption {
	return func(s *Session) {
		s.storeInvocations = enabled
	}
}

// NewSession creates a session dispatching non-pseudo tools to registry.
func NewSession(registry *tools.Registry, opts ...SessionOption) *Session {
	s := &Session{
		id:       uuid.NewString(),
		registry: registry,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.store = storage.NewResultStore(storage.WithLogger(s.logger))
	s.clipboard = clipboard.New(clipboard.WithLogger(s.logger))
	renderer := template.NewRenderer(s.clipboard, template.WithRendererLogger(s.logger))
	dispatcher := template.NewDispatcher(renderer, registry, s.logger)
	s.pseudo = map[string]tools.Tool{
		model.CopyToolName:           tools.NewCopyTool(s.store, s.clipboard, s.logger),
		model.TemplateInvokeToolName: tools.NewTemplateInvokeTool(dispatcher),
	}
	return s
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// Store returns the session's Result Store.
func (s *Session) Store() *storage.ResultStore { return s.store }

// Clipboard returns the session's Clipboard.
func (s *Session) Clipboard() *clipboard.Clipboard { return s.clipboard }

// Tools returns metadata for the pseudo-tools followed by every registered
// tool.
func (s *Session) Tools() []tools.ToolMetadata {
	metas := []tools.ToolMetadata{
		s.pseudo[model.CopyToolName].Metadata(),
		s.pseudo[model.TemplateInvokeToolName].Metadata(),
	}
	return append(metas, s.registry.List()...)
}

// ExecuteToolCall runs one tool call and records it. Pseudo-tools operate on
// the session; every other name goes to the registry and its result is
// stored for later copy calls. An error means the attempt failed and nothing
// was stored.
func (s *Session) ExecuteToolCall(ctx context.Context, name string, args value.Value) (value.Value, error) {
	if args == nil {
		args = value.NewMapping()
	}
	s.logger.Info("tool call", zap.String("tool", name), zap.String("input", value.Preview(args, logPreviewLen)))

	start := time.Now()
	record := model.CallRecord{Tool: name, Input: args}

	var (
		result value.Value
		err    error
	)
	if tool, ok := s.pseudo[name]; ok {
		record.UsedClipboard = true
		result, err = s.runPseudo(ctx, tool, args)
		if err == nil && name == model.TemplateInvokeToolName && s.storeInvocations {
			s.storeInvocation(result)
		}
	} else {
		result, err = s.registry.Execute(ctx, name, args)
		if err == nil {
			s.store.Store(name, result)
		}
	}

	record.Duration = time.Since(start)
	if err != nil {
		record.Error = err.Error()
		s.logger.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
	} else {
		record.Result = result
		s.logger.Info("tool result", zap.String("tool", name), zap.String("result", value.Preview(result, logPreviewLen)))
	}

	s.mu.Lock()
	s.calls = append(s.calls, record)
	s.mu.Unlock()

	return result, err
}

func (s *Session) runPseudo(ctx context.Context, tool tools.Tool, args value.Value) (value.Value, error) {
	raw := value.Encode(args)
	if err := tool.Validate(raw); err != nil {
		return nil, err
	}
	res, err := tool.Execute(ctx, raw)
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

// storeInvocation records the inner result of a template_invoke envelope.
func (s *Session) storeInvocation(envelope value.Value) {
	m, ok := envelope.(*value.Mapping)
	if !ok {
		return
	}
	toolName, ok := m.GetText("tool_executed")
	if !ok {
		return
	}
	inner, ok := m.Get("result")
	if !ok {
		return
	}
	s.store.Store(toolName, inner)
}

// AddTokenUsage accumulates model token counters.
func (s *Session) AddTokenUsage(input, output int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Input += input
	s.usage.Output += output
}

// CallRecords returns a copy of every recorded call, in call order.
func (s *Session) CallRecords() []model.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]model.CallRecord(nil), s.calls...)
}

// Stats summarises the session.
func (s *Session) Stats() model.Stats {
	s.mu.Lock()
	calls := len(s.calls)
	var copies, invokes int
	for _, c := range s.calls {
		switch c.Tool {
		case model.CopyToolName:
			copies++
		case model.TemplateInvokeToolName:
			invokes++
		}
	}
	usage := s.usage
	s.mu.Unlock()

	return model.Stats{
		TotalToolCalls:      calls,
		CopyCalls:           copies,
		TemplateInvokeCalls: invokes,
		ClipboardSlots:      s.clipboard.ListSlots(),
		StoredResults:       s.store.ListReferences(),
		TokenUsage:          usage,
		TokenSavings:        s.clipboard.EstimateSavings(),
	}
}
