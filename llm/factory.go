// LLM Provider Factory - builder API for creating tool-calling providers.
//
// Quick Start:
//
//	// Defaults, API key from the environment
//	claude, err := llm.ProviderAnthropic.FromEnv() // claude-sonnet-4
//
//	// Full configuration
//	custom, err := llm.ProviderOpenAI.
//	    Model(llm.ModelOpenAIGPT4o).
//	    MaxTokens(8192).
//	    Temperature(0.3).
//	    FromEnv()

package llm

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// ProviderType represents supported LLM providers.
type ProviderType int

const (
	// ProviderOpenAI is the OpenAI provider (GPT models).
	ProviderOpenAI ProviderType = iota
	// ProviderAnthropic is the Anthropic provider (Claude models).
	ProviderAnthropic
	// ProviderDeepSeek is the DeepSeek provider.
	ProviderDeepSeek
	// ProviderGemini is the Google Gemini provider.
	ProviderGemini
)

// Model identifiers.
const (
	ModelOpenAIGPT4o     = "gpt-4o"
	ModelOpenAIGPT4oMini = "gpt-4o-mini"

	ModelAnthropicClaudeSonnet4 = "claude-sonnet-4-20250514"
	ModelAnthropicClaudeOpus4   = "claude-opus-4-20250514"

	ModelDeepSeekChat = "deepseek-chat"

	ModelGeminiFlash25 = "gemini-2.5-flash"
)

// Builder defaults.
const (
	DefaultMaxTokens   = 4096
	DefaultTemperature = 0.7
)

type constructor func(apiKey, model string, maxTokens uint32, temperature float32) Provider

// providerSpec is everything the factory knows about one provider.
type providerSpec struct {
	name         string
	aliases      []string
	defaultModel string
	construct    constructor
}

var providerSpecs = map[ProviderType]providerSpec{
	ProviderOpenAI: {
		name:         "openai",
		aliases:      []string{"gpt"},
		defaultModel: ModelOpenAIGPT4o,
		construct: func(k, m string, n uint32, t float32) Provider {
			return NewOpenAIProvider(k, m, n, t)
		},
	},
	ProviderAnthropic: {
		name:         "anthropic",
		aliases:      []string{"claude"},
		defaultModel: ModelAnthropicClaudeSonnet4,
		construct: func(k, m string, n uint32, t float32) Provider {
			return NewAnthropicProvider(k, m, n, t)
		},
	},
	ProviderDeepSeek: {
		name:         "deepseek",
		defaultModel: ModelDeepSeekChat,
		construct: func(k, m string, n uint32, t float32) Provider {
			return NewDeepSeekProvider(k, m, n, t)
		},
	},
	ProviderGemini: {
		name:         "gemini",
		aliases:      []string{"google"},
		defaultModel: ModelGeminiFlash25,
		construct: func(k, m string, n uint32, t float32) Provider {
			return NewGeminiProvider(k, m, n, t)
		},
	},
}

// ProviderTypes returns every supported provider, ordered by name.
func ProviderTypes() []ProviderType {
	types := make([]ProviderType, 0, len(providerSpecs))
	for p := range providerSpecs {
		types = append(types, p)
	}
	sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
	return types
}

// String returns the canonical provider name.
func (p ProviderType) String() string {
	if spec, ok := providerSpecs[p]; ok {
		return spec.name
	}
	return "unknown"
}

// EnvVar returns the environment variable holding this provider's API key.
func (p ProviderType) EnvVar() string {
	return p.envPrefix() + "_API_KEY"
}

// ModelEnvVar returns the environment variable that overrides the model.
func (p ProviderType) ModelEnvVar() string {
	return p.envPrefix() + "_MODEL"
}

func (p ProviderType) envPrefix() string {
	return strings.ToUpper(p.String())
}

// DefaultModel returns the default model for this provider.
func (p ProviderType) DefaultModel() string {
	return providerSpecs[p].defaultModel
}

// ParseProviderType parses a provider name or alias, ignoring case and
// surrounding space.
func ParseProviderType(s string) (ProviderType, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for p, spec := range providerSpecs {
		if name == spec.name {
			return p, nil
		}
		for _, alias := range spec.aliases {
			if name == alias {
				return p, nil
			}
		}
	}
	return 0, fmt.Errorf("unknown provider: %q", s)
}

// FromEnv creates a provider with defaults, reading API key from environment.
func (p ProviderType) FromEnv() (Provider, error) {
	return NewProviderBuilder(p).FromEnv()
}

// Model starts configuring this provider with a specific model.
func (p ProviderType) Model(model string) *ProviderBuilder {
	return NewProviderBuilder(p).Model(model)
}

// APIKey creates a provider with an explicit API key (uses defaults for everything else).
func (p ProviderType) APIKey(key string) (Provider, error) {
	return NewProviderBuilder(p).APIKey(key)
}

// ProviderBuilder is a builder for configuring LLM providers.
type ProviderBuilder struct {
	providerType ProviderType
	model        string
	maxTokens    uint32
	temperature  *float32
}

// NewProviderBuilder creates a new builder for the given provider.
func NewProviderBuilder(providerType ProviderType) *ProviderBuilder {
	return &ProviderBuilder{providerType: providerType}
}

// Model sets the model; empty keeps the provider default.
func (b *ProviderBuilder) Model(model string) *ProviderBuilder {
	b.model = model
	return b
}

// MaxTokens sets maximum tokens for responses.
func (b *ProviderBuilder) MaxTokens(tokens uint32) *ProviderBuilder {
	b.maxTokens = tokens
	return b
}

// Temperature sets temperature. Zero keeps the provider default.
func (b *ProviderBuilder) Temperature(temp float32) *ProviderBuilder {
	b.temperature = &temp
	return b
}

// FromEnv builds the provider, reading API key from environment.
func (b *ProviderBuilder) FromEnv() (Provider, error) {
	envVar := b.providerType.EnvVar()
	apiKey := os.Getenv(envVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s: %s environment variable not set", b.providerType, envVar)
	}
	return b.build(apiKey)
}

// APIKey builds the provider with an explicit API key.
func (b *ProviderBuilder) APIKey(key string) (Provider, error) {
	return b.build(key)
}

func (b *ProviderBuilder) build(apiKey string) (Provider, error) {
	spec, ok := providerSpecs[b.providerType]
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %d", int(b.providerType))
	}

	model := b.model
	if model == "" {
		model = spec.defaultModel
	}
	maxTokens := b.maxTokens
	if maxTokens == 0 {
		maxTokens = DefaultMaxTokens
	}
	temperature := float32(DefaultTemperature)
	if b.temperature != nil {
		temperature = *b.temperature
	}

	return spec.construct(apiKey, model, maxTokens, temperature), nil
}
