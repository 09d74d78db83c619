// Package config provides application settings loaded from environment variables.
//
// A .env file, if present, is loaded into the environment by main before
// New runs. Provider names, key variables and default models come from the
// llm package; everything else has a fixed default below.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/richinex/clipagent/llm"
	"github.com/richinex/clipagent/tools"
)

// Settings holds all application configuration.
type Settings struct {
	LLM   LLMConfig
	Agent AgentConfig
	Tools ToolsConfig
	Log   LogConfig
}

// LLMConfig holds LLM provider configuration.
type LLMConfig struct {
	Provider    string
	Model       string
	MaxTokens   uint32
	Temperature float64 // 0 keeps the provider default
}

// AgentConfig holds agent execution configuration.
type AgentConfig struct {
	MaxTurns         int
	StoreInvocations bool
}

// ToolsConfig holds sample tool configuration.
type ToolsConfig struct {
	OutputDir    string
	MaxFileBytes int64
	TimeoutSecs  uint64
}

// LogConfig holds run log configuration.
type LogConfig struct {
	DBPath string
}

// ProviderEnv selects the provider when none is given explicitly.
const ProviderEnv = "CLIPAGENT_PROVIDER"

// DefaultProvider is used when neither an argument nor ProviderEnv names one.
const DefaultProvider = "anthropic"

// New creates settings for the specified provider, loading values from environment variables.
// An empty provider falls back to CLIPAGENT_PROVIDER, then to anthropic.
// Every invalid variable is reported in the returned error.
func New(provider string) (Settings, error) {
	if provider == "" {
		provider = os.Getenv(ProviderEnv)
	}
	if provider == "" {
		provider = DefaultProvider
	}
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return Settings{}, err
	}

	var env envReader
	s := Settings{
		LLM: LLMConfig{
			Provider:    pt.String(),
			Model:       env.getString(pt.ModelEnvVar(), pt.DefaultModel()),
			MaxTokens:   uint32(env.getUint("LLM_MAX_TOKENS", llm.DefaultMaxTokens, 32)),
			Temperature: env.getFloat("LLM_TEMPERATURE", llm.DefaultTemperature),
		},
		Agent: AgentConfig{
			MaxTurns:         env.getInt("AGENT_MAX_TURNS", 20),
			StoreInvocations: env.getBool("AGENT_STORE_INVOCATIONS", false),
		},
		Tools: ToolsConfig{
			OutputDir:    env.getString("CLIPAGENT_OUTPUT_DIR", tools.DefaultOutputDir),
			MaxFileBytes: int64(env.getInt("CLIPAGENT_MAX_FILE_SIZE", tools.DefaultMaxFileSize)),
			TimeoutSecs:  env.getUint("CLIPAGENT_TOOL_TIMEOUT", tools.DefaultToolTimeout, 64),
		},
		Log: LogConfig{
			DBPath: env.getString("CLIPAGENT_LOG_DB", "logs/clipagent.db"),
		},
	}
	if env.err != nil {
		return Settings{}, env.err
	}
	return s, nil
}

// ToolConfig converts the tool settings for the tools package.
func (s Settings) ToolConfig() tools.ToolConfig {
	return tools.ToolConfig{
		TimeoutSecs:  s.Tools.TimeoutSecs,
		MaxFileBytes: s.Tools.MaxFileBytes,
		OutputDir:    s.Tools.OutputDir,
	}
}

// APIKeyFor returns the API key for a provider from environment variables.
func APIKeyFor(provider string) (string, error) {
	pt, err := llm.ParseProviderType(provider)
	if err != nil {
		return "", err
	}

	key := os.Getenv(pt.EnvVar())
	if key == "" {
		return "", fmt.Errorf("%s environment variable not set", pt.EnvVar())
	}
	return key, nil
}

// SupportedProviders returns the supported provider names, sorted.
func SupportedProviders() []string {
	types := llm.ProviderTypes()
	names := make([]string, len(types))
	for i, pt := range types {
		names[i] = pt.String()
	}
	return names
}

// envReader reads typed variables, returning the default for unset ones.
// Parse failures accumulate in err; the failing read returns the default.
type envReader struct {
	err error
}

func (r *envReader) lookup(key string) (string, bool) {
	val := os.Getenv(key)
	return val, val != ""
}

func (r *envReader) fail(key, val string, err error) {
	r.err = errors.Join(r.err, fmt.Errorf("invalid value for %s: %q: %w", key, val, err))
}

func (r *envReader) getString(key, def string) string {
	if val, ok := r.lookup(key); ok {
		return val
	}
	return def
}

func (r *envReader) getInt(key string, def int) int {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	i, err := strconv.Atoi(val)
	if err != nil {
		r.fail(key, val, err)
		return def
	}
	return i
}

func (r *envReader) getUint(key string, def uint64, bits int) uint64 {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	u, err := strconv.ParseUint(val, 10, bits)
	if err != nil {
		r.fail(key, val, err)
		return def
	}
	return u
}

func (r *envReader) getFloat(key string, def float64) float64 {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		r.fail(key, val, err)
		return def
	}
	return f
}

func (r *envReader) getBool(key string, def bool) bool {
	val, ok := r.lookup(key)
	if !ok {
		return def
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		r.fail(key, val, err)
		return def
	}
	return b
}
