// Tool-calling agent loop.
//
// Information Hiding:
// - Conversation assembly hidden
// - LLM communication and token accounting hidden
// - Tool-call routing delegated to the Session
// - Tool failures fed back to the model as error results

package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	ijson "github.com/richinex/clipagent/internal/json"
	"github.com/richinex/clipagent/llm"
	"github.com/richinex/clipagent/tools"
	"github.com/richinex/clipagent/value"
)

// Agent drives a provider with native tool calling over one Session.
type Agent struct {
	config   Config
	provider llm.Provider
	session  *Session
	logger   *zap.Logger
}

// Response is the outcome of a run.
type Response struct {
	// Text is the model's text from the final turn.
	Text string
	// Turns is the number of model round trips made.
	Turns int
	// MaxTurnsReached is set when the loop stopped while tool calls were
	// still being requested.
	MaxTurnsReached bool
}

// New creates an agent. Prefer NewBuilder.
func New(config Config, provider llm.Provider, session *Session, logger *zap.Logger) *Agent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Agent{
		config:   config.withDefaults(),
		provider: provider,
		session:  session,
		logger:   logger,
	}
}

// Session returns the agent's session.
func (a *Agent) Session() *Session {
	return a.session
}

// Provider returns the model provider.
func (a *Agent) Provider() llm.Provider {
	return a.provider
}

// Run sends prompt and keeps answering tool calls until the model replies
// without any, or MaxTurns is reached. Provider errors end the run; tool
// errors do not.
func (a *Agent) Run(ctx context.Context, prompt string) (Response, error) {
	conversation := []llm.ChatMessage{
		llm.SystemMessage(a.config.SystemPrompt),
		llm.UserMessage(prompt),
	}
	definitions := toolDefinitions(a.session.Tools())

	var resp Response
	for turn := 1; turn <= a.config.MaxTurns; turn++ {
		if err := ctx.Err(); err != nil {
			return resp, fmt.Errorf("execution cancelled: %w", err)
		}
		resp.Turns = turn
		a.logger.Info("turn", zap.Int("turn", turn))

		reply, err := a.provider.ChatWithTools(ctx, conversation, definitions)
		if err != nil {
			return resp, fmt.Errorf("turn %d: %w", turn, err)
		}
		if reply.Usage != nil {
			a.session.AddTokenUsage(int(reply.Usage.PromptTokens), int(reply.Usage.CompletionTokens))
			a.logger.Info("tokens",
				zap.Uint32("input", reply.Usage.PromptTokens),
				zap.Uint32("output", reply.Usage.CompletionTokens),
			)
		}
		if reply.Content != "" {
			a.logger.Debug("assistant text", zap.String("text", reply.Content))
		}

		resp.Text = reply.Content
		conversation = append(conversation, llm.AssistantMessage(reply.Content, reply.ToolCalls...))
		if len(reply.ToolCalls) == 0 {
			return resp, nil
		}

		for _, call := range reply.ToolCalls {
			conversation = append(conversation, a.answer(ctx, call))
		}
	}

	a.logger.Warn("max turns reached", zap.Int("max_turns", a.config.MaxTurns))
	resp.MaxTurnsReached = true
	return resp, nil
}

// answer executes one tool call and builds the tool-result message.
func (a *Agent) answer(ctx context.Context, call llm.ToolCall) llm.ChatMessage {
	result, err := a.session.ExecuteToolCall(ctx, call.Name, decodeArguments(call.Arguments))
	if err != nil {
		failure := value.NewMapping().Set("error", value.Text(err.Error()))
		return llm.ToolResultMessage(call, string(value.Encode(failure)), true)
	}
	return llm.ToolResultMessage(call, string(value.Encode(result)), false)
}

// decodeArguments reads model-produced arguments leniently. Undecodable
// arguments are passed on as text so validation reports them.
func decodeArguments(raw []byte) value.Value {
	if len(raw) == 0 {
		return value.NewMapping()
	}
	v, err := ijson.ParseValue(string(raw))
	if err != nil {
		return value.Text(raw)
	}
	if _, isNull := v.(value.Null); isNull {
		return value.NewMapping()
	}
	return v
}

func toolDefinitions(metas []tools.ToolMetadata) []llm.ToolDefinition {
	defs := make([]llm.ToolDefinition, len(metas))
	for i, m := range metas {
		defs[i] = llm.ToolDefinition{
			Name:        m.Name,
			Description: m.Description,
			Schema:      m.Schema(),
		}
	}
	return defs
}
