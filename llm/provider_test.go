package llm

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"google.golang.org/genai"
)

func sampleSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"method": {Type: "string", Enum: []any{"GET", "POST"}},
			"lines":  {Type: "integer"},
			"tags":   {Type: "array"},
		},
		Required: []string{"method"},
	}
}

func TestParseProviderType(t *testing.T) {
	tests := []struct {
		in   string
		want ProviderType
	}{
		{"anthropic", ProviderAnthropic},
		{"Claude", ProviderAnthropic},
		{"gpt", ProviderOpenAI},
		{"google", ProviderGemini},
		{"deepseek", ProviderDeepSeek},
	}
	for _, tt := range tests {
		got, err := ParseProviderType(tt.in)
		if err != nil || got != tt.want {
			t.Errorf("ParseProviderType(%q) = %v, %v", tt.in, got, err)
		}
	}
	if _, err := ParseProviderType("llama"); err == nil {
		t.Error("expected error for unknown provider")
	}
}

func TestDefaultModel(t *testing.T) {
	if got := ProviderAnthropic.DefaultModel(); got != "claude-sonnet-4-20250514" {
		t.Errorf("default anthropic model = %s", got)
	}
}

func TestProviderEnvVars(t *testing.T) {
	if got := ProviderGemini.EnvVar(); got != "GEMINI_API_KEY" {
		t.Errorf("gemini key var = %s", got)
	}
	if got := ProviderDeepSeek.ModelEnvVar(); got != "DEEPSEEK_MODEL" {
		t.Errorf("deepseek model var = %s", got)
	}
	var names []string
	for _, p := range ProviderTypes() {
		names = append(names, p.String())
	}
	if got := strings.Join(names, ","); got != "anthropic,deepseek,gemini,openai" {
		t.Errorf("ProviderTypes() = %s", got)
	}
}

func TestFromEnvMissingKey(t *testing.T) {
	t.Setenv("DEEPSEEK_API_KEY", "")
	_, err := ProviderDeepSeek.FromEnv()
	if err == nil || !strings.Contains(err.Error(), "DEEPSEEK_API_KEY") {
		t.Errorf("expected missing key error, got %v", err)
	}
}

func TestBuilderAppliesModel(t *testing.T) {
	p, err := ProviderOpenAI.Model(ModelOpenAIGPT4oMini).MaxTokens(100).APIKey("sk-test")
	if err != nil {
		t.Fatal(err)
	}
	if p.Name() != "openai" || p.Model() != ModelOpenAIGPT4oMini {
		t.Errorf("got %s/%s", p.Name(), p.Model())
	}
}

func conversation() []ChatMessage {
	read := ToolCall{ID: "t1", Name: "read_file", Arguments: json.RawMessage(`{"path":"a.txt"}`)}
	bad := ToolCall{ID: "t2", Name: "copy", Arguments: json.RawMessage(`{"slot":"x","source":"grep"}`)}
	return []ChatMessage{
		SystemMessage("be brief"),
		UserMessage("read a.txt"),
		AssistantMessage("", read, bad),
		ToolResultMessage(read, `{"success":true,"content":"hi"}`, false),
		ToolResultMessage(bad, `{"error":"no results for tool 'grep'"}`, true),
		AssistantMessage("done"),
	}
}

func TestAnthropicGroupsToolResults(t *testing.T) {
	msgs, system := convertToAnthropicMessages(conversation())
	if system != "be brief" {
		t.Errorf("system = %q", system)
	}
	// user, assistant(tool_use x2), user(tool_result x2), assistant
	if len(msgs) != 4 {
		t.Fatalf("got %d messages, want 4", len(msgs))
	}
	results := msgs[2]
	if len(results.Content) != 2 {
		t.Fatalf("tool results grouped into %d blocks, want 2", len(results.Content))
	}
	second := results.Content[1].OfToolResult
	if second == nil || second.ToolUseID != "t2" {
		t.Fatalf("second block is not the t2 tool result: %+v", results.Content[1])
	}
	if !second.IsError.Value {
		t.Error("error flag not carried to the tool result")
	}
}

func TestAnthropicToolSchema(t *testing.T) {
	tools := convertToAnthropicTools([]ToolDefinition{{Name: "http_request", Description: "d", Schema: sampleSchema()}})
	in := tools[0].OfTool.InputSchema
	if len(in.Required) != 1 || in.Required[0] != "method" {
		t.Errorf("required = %v", in.Required)
	}
	if props, ok := in.Properties.(map[string]*jsonschema.Schema); !ok || len(props) != 3 {
		t.Errorf("properties = %#v", in.Properties)
	}
}

func TestOpenAIMessages(t *testing.T) {
	msgs := convertToOpenAIMessages(conversation())
	if len(msgs) != 6 {
		t.Fatalf("got %d messages", len(msgs))
	}
	if len(msgs[2].ToolCalls) != 2 || msgs[2].ToolCalls[0].Function.Arguments != `{"path":"a.txt"}` {
		t.Errorf("assistant tool calls = %+v", msgs[2].ToolCalls)
	}
	if msgs[4].Role != RoleTool || msgs[4].ToolCallID != "t2" {
		t.Errorf("tool message = %+v", msgs[4])
	}
}

func TestGeminiSchema(t *testing.T) {
	gs := convertToGeminiSchema(sampleSchema())
	if gs.Type != genai.TypeObject {
		t.Errorf("type = %v", gs.Type)
	}
	if got := gs.Properties["lines"].Type; got != genai.TypeInteger {
		t.Errorf("lines type = %v", got)
	}
	if items := gs.Properties["tags"].Items; items == nil || items.Type != genai.TypeString {
		t.Errorf("array items = %+v", items)
	}
	if enum := gs.Properties["method"].Enum; len(enum) != 2 || enum[1] != "POST" {
		t.Errorf("enum = %v", enum)
	}
}

func TestGeminiToolResponses(t *testing.T) {
	contents, _ := convertToGeminiMessages(conversation())
	var responses []*genai.FunctionResponse
	for _, c := range contents {
		for _, p := range c.Parts {
			if p.FunctionResponse != nil {
				responses = append(responses, p.FunctionResponse)
			}
		}
	}
	if len(responses) != 2 {
		t.Fatalf("got %d function responses", len(responses))
	}
	if responses[0].Name != "read_file" || responses[0].Response["output"] == nil {
		t.Errorf("first response = %+v", responses[0])
	}
	if responses[1].Response["error"] == nil {
		t.Errorf("second response = %+v", responses[1])
	}
}

// TestAnthropicErrorNoAPIKeyLeak verifies Anthropic errors don't contain API keys
func TestAnthropicErrorNoAPIKeyLeak(t *testing.T) {
	testKey := "sk-ant-REDACTED"
	provider := NewAnthropicProvider(testKey, ModelAnthropicClaudeSonnet4, 100, 0.7)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := provider.ChatWithTools(ctx, []ChatMessage{UserMessage("test")}, nil)
	if err == nil {
		t.Skip("Expected error with invalid API key, but got success - skipping leak test")
	}

	errStr := err.Error()
	if strings.Contains(errStr, testKey) {
		t.Errorf("Anthropic error message leaked API key: %v", errStr)
	}
}

// TestGeminiInitErrorPreserved verifies Gemini returns initialization errors
func TestGeminiInitErrorPreserved(t *testing.T) {
	t.Setenv("GOOGLE_API_KEY", "")
	t.Setenv("GEMINI_API_KEY", "")
	provider := NewGeminiProvider("", ModelGeminiFlash25, 100, 0.7)

	_, err := provider.ChatWithTools(context.Background(), []ChatMessage{UserMessage("test")}, nil)
	if err == nil || !strings.Contains(err.Error(), "failed to initialize") {
		t.Errorf("Expected initialization error, got: %v", err)
	}
}
