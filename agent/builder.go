// Agent builder for fluent configuration.
//
// Information Hiding:
// - Builder state management hidden
// - Default value application hidden
// - Session construction hidden

package agent

import (
	"errors"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/llm"
	"github.com/richinex/clipagent/tools"
)

// Builder provides fluent configuration for creating agents.
// Usage: agent.NewBuilder(provider).Registry(reg).MaxTurns(10).Build()
type Builder struct {
	provider llm.Provider
	registry *tools.Registry
	config   Config
	logger   *zap.Logger
}

// NewBuilder creates a new agent builder driving the given provider.
func NewBuilder(provider llm.Provider) *Builder {
	return &Builder{provider: provider, config: DefaultConfig()}
}

// Registry sets the tools the agent may call besides the pseudo-tools.
func (b *Builder) Registry(registry *tools.Registry) *Builder {
	b.registry = registry
	return b
}

// SystemPrompt replaces the default system prompt.
func (b *Builder) SystemPrompt(prompt string) *Builder {
	b.config.SystemPrompt = prompt
	return b
}

// MaxTurns sets the turn limit.
func (b *Builder) MaxTurns(turns int) *Builder {
	b.config.MaxTurns = turns
	return b
}

// StoreInvocations stores template_invoke inner results as well.
func (b *Builder) StoreInvocations(enabled bool) *Builder {
	b.config.StoreInvocations = enabled
	return b
}

// Logger sets the logger shared by the agent and its session.
func (b *Builder) Logger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// Build creates the agent with a fresh session.
func (b *Builder) Build() (*Agent, error) {
	if b.provider == nil {
		return nil, errors.New("agent requires a provider")
	}
	registry := b.registry
	if registry == nil {
		registry = tools.NewRegistry(nil, b.logger)
	}
	config := b.config.withDefaults()
	session := NewSession(registry,
		WithLogger(b.logger),
		WithStoreInvocations(config.StoreInvocations),
	)
	return New(config, b.provider, session, b.logger), nil
}
