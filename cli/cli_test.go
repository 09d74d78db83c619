package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/richinex/clipagent/llm"
	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/storage"
)

type scriptedProvider struct {
	model   string
	replies []llm.LLMResponse
	err     error
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return p.model }

func (p *scriptedProvider) ChatWithTools(_ context.Context, _ []llm.ChatMessage, _ []llm.ToolDefinition) (llm.LLMResponse, error) {
	if p.err != nil {
		return llm.LLMResponse{}, p.err
	}
	if len(p.replies) == 0 {
		return llm.LLMResponse{Content: "done"}, nil
	}
	reply := p.replies[0]
	p.replies = p.replies[1:]
	return reply, nil
}

func toolCall(id, name, args string) llm.ToolCall {
	return llm.ToolCall{ID: id, Name: name, Arguments: json.RawMessage(args)}
}

// newTestRunner returns a runner writing under a temp dir and logging to a
// temp SQLite file.
func newTestRunner(t *testing.T, provider func(model string) (llm.Provider, error)) (*Runner, *bytes.Buffer, string) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("CLIPAGENT_OUTPUT_DIR", dir)

	r, err := NewRunner(Options{Provider: "anthropic", LogDB: filepath.Join(dir, "runs.db")}, nil)
	if err != nil {
		t.Fatalf("NewRunner: %v", err)
	}
	var out bytes.Buffer
	r.SetOutput(&out)
	r.newProvider = provider
	return r, &out, dir
}

func readRuns(t *testing.T, dir string) []storage.RunEntry {
	t.Helper()
	log, err := storage.OpenSqliteRunLog(filepath.Join(dir, "runs.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer log.Close()
	runs, err := log.ListRuns(context.Background(), 0)
	if err != nil {
		t.Fatal(err)
	}
	return runs
}

func TestRunPrintsReportAndLogs(t *testing.T) {
	r, out, dir := newTestRunner(t, nil)
	src := filepath.Join(dir, "notes.txt")
	if err := os.WriteFile(src, []byte("alpha\nbeta\ngamma"), 0644); err != nil {
		t.Fatal(err)
	}

	r.newProvider = func(string) (llm.Provider, error) {
		return &scriptedProvider{model: "scripted-1", replies: []llm.LLMResponse{
			{ToolCalls: []llm.ToolCall{toolCall("1", "read_file", `{"path":"`+src+`"}`)}, Usage: &llm.TokenUsage{PromptTokens: 50, CompletionTokens: 10}},
			{ToolCalls: []llm.ToolCall{
				toolCall("2", "copy", `{"slot":"body","source":"read_file","json_path":"content"}`),
				toolCall("3", "template_invoke", `{"template":{"tool":"create_file","parameters":{"path":"copy.txt","content":"{{body}}"}}}`),
			}, Usage: &llm.TokenUsage{PromptTokens: 80, CompletionTokens: 20}},
			{Content: "Copied notes.txt.", Usage: &llm.TokenUsage{PromptTokens: 90, CompletionTokens: 5}},
		}}, nil
	}

	if err := r.Run(context.Background(), "copy notes.txt"); err != nil {
		t.Fatalf("Run: %v", err)
	}

	written, err := os.ReadFile(filepath.Join(dir, "copy.txt"))
	if err != nil || string(written) != "alpha\nbeta\ngamma" {
		t.Fatalf("copy.txt = %q, %v", written, err)
	}

	report := out.String()
	for _, want := range []string{
		"Model: scripted-1",
		"Copied notes.txt.",
		"2. copy [CLIPBOARD]",
		"3. template_invoke [CLIPBOARD]",
		"  - other tool calls: 1",
		"Clipboard slots used: body",
		"TOKEN SAVINGS ESTIMATE",
		"  - body: 1 use(s), 16 bytes each = 16 bytes saved",
		"Entry: test_0001",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing %q\n%s", want, report)
		}
	}

	runs := readRuns(t, dir)
	if len(runs) != 1 {
		t.Fatalf("got %d logged runs, want 1", len(runs))
	}
	run := runs[0]
	if !run.Success || run.Model != "scripted-1" || run.Result != "Copied notes.txt." {
		t.Errorf("logged run = %+v", run)
	}
	if len(run.ToolCalls) != 3 || !run.ToolCalls[1].UsedClipboard {
		t.Errorf("logged tool calls = %+v", run.ToolCalls)
	}
	if run.Statistics.TokenUsage != (model.TokenUsage{Input: 220, Output: 35}) {
		t.Errorf("token usage = %+v", run.Statistics.TokenUsage)
	}
	if run.Metadata["turns"] != "3" || run.Metadata["provider"] != "scripted" {
		t.Errorf("metadata = %v", run.Metadata)
	}
}

func TestRunFailureIsLogged(t *testing.T) {
	r, out, dir := newTestRunner(t, func(string) (llm.Provider, error) {
		return &scriptedProvider{model: "scripted-1", err: errors.New("overloaded")}, nil
	})

	err := r.Run(context.Background(), "hello")
	if err == nil || !strings.Contains(err.Error(), "overloaded") {
		t.Fatalf("expected provider error, got %v", err)
	}
	if strings.Contains(out.String(), "AGENT RESPONSE") {
		t.Error("failed run should not print a response")
	}

	runs := readRuns(t, dir)
	if len(runs) != 1 || runs[0].Success || !strings.Contains(runs[0].Error, "overloaded") {
		t.Errorf("logged runs = %+v", runs)
	}
}

func TestRunNoLog(t *testing.T) {
	r, _, dir := newTestRunner(t, func(string) (llm.Provider, error) {
		return &scriptedProvider{model: "scripted-1"}, nil
	})
	r.noLog = true

	if err := r.Run(context.Background(), "hi"); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "runs.db")); !os.IsNotExist(err) {
		t.Errorf("run log should not be created, stat err = %v", err)
	}
}

func TestRunRejectsEmptyPrompt(t *testing.T) {
	r, _, _ := newTestRunner(t, func(string) (llm.Provider, error) {
		t.Fatal("provider should not be created")
		return nil, nil
	})
	if err := r.Run(context.Background(), "  \n"); err == nil {
		t.Error("expected error for empty prompt")
	}
}

func TestParseScenarios(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    []Scenario
		wantErr bool
	}{
		{
			name: "scenarios key",
			input: `
scenarios:
  - name: copy
    prompt: copy a file
  - prompt: post it
    model: gpt-4o-mini
`,
			want: []Scenario{
				{Name: "copy", Prompt: "copy a file"},
				{Name: "scenario_2", Prompt: "post it", Model: "gpt-4o-mini"},
			},
		},
		{
			name:  "top-level list",
			input: "- name: one\n  prompt: first\n",
			want:  []Scenario{{Name: "one", Prompt: "first"}},
		},
		{name: "missing prompt", input: "- name: empty\n", wantErr: true},
		{name: "no scenarios", input: "scenarios: []\n", wantErr: true},
		{name: "not yaml", input: "scenarios: [", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseScenarios([]byte(tt.input))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", got)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("scenarios mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestBatchRunsEachScenario(t *testing.T) {
	var models []string
	r, out, dir := newTestRunner(t, func(m string) (llm.Provider, error) {
		models = append(models, m)
		if m == "" {
			m = "default-model"
		}
		return &scriptedProvider{model: m, replies: []llm.LLMResponse{
			{ToolCalls: []llm.ToolCall{toolCall("1", "http_request", `{"method":"GET","url":"https://example.test"}`)}},
			{Content: "fetched"},
		}}, nil
	})

	batch := filepath.Join(dir, "batch.yaml")
	content := "scenarios:\n  - name: first\n    prompt: fetch\n  - name: second\n    prompt: fetch again\n    model: other-model\n"
	if err := os.WriteFile(batch, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	if err := r.Batch(context.Background(), batch); err != nil {
		t.Fatalf("Batch: %v", err)
	}

	if diff := cmp.Diff([]string{"", "other-model"}, models); diff != "" {
		t.Errorf("requested models (-want +got):\n%s", diff)
	}
	report := out.String()
	if !strings.Contains(report, "[2/2] second") || !strings.Contains(report, "Runs: 2 (2 succeeded, 0 failed)") {
		t.Errorf("unexpected batch output:\n%s", report)
	}

	runs := readRuns(t, dir)
	if len(runs) != 2 || runs[0].Metadata["scenario"] != "second" || runs[0].Model != "other-model" {
		t.Errorf("logged runs = %+v", runs)
	}
}

func TestToolsListing(t *testing.T) {
	r, out, _ := newTestRunner(t, nil)
	if err := r.Tools(false); err != nil {
		t.Fatal(err)
	}
	listing := out.String()
	for _, want := range []string{"  copy\n", "  template_invoke\n", "  read_file\n", "  http_request\n"} {
		if !strings.Contains(listing, want) {
			t.Errorf("listing missing %q\n%s", want, listing)
		}
	}
	if strings.Contains(listing, "Parameters:") {
		t.Error("parameters should only be listed in verbose mode")
	}
	if strings.Index(listing, "template_invoke") > strings.Index(listing, "read_file") {
		t.Error("pseudo-tools should be listed first")
	}
}

func TestToolsListingVerbose(t *testing.T) {
	r, out, _ := newTestRunner(t, nil)
	if err := r.Tools(true); err != nil {
		t.Fatal(err)
	}
	listing := out.String()
	tests := []string{
		"Tool: copy\n",
		"Tool: http_request\n",
		"- slot (string):",
		"[required]",
		"- method (string):",
		"one of GET|POST",
	}
	for _, want := range tests {
		if !strings.Contains(listing, want) {
			t.Errorf("verbose listing missing %q\n%s", want, listing)
		}
	}
}

func TestLogsCommands(t *testing.T) {
	r, out, _ := newTestRunner(t, func(string) (llm.Provider, error) {
		return &scriptedProvider{model: "scripted-1"}, nil
	})
	ctx := context.Background()
	if err := r.Run(ctx, "first run"); err != nil {
		t.Fatal(err)
	}
	out.Reset()

	if err := r.LogsList(ctx, 10); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "test_0001") || !strings.Contains(out.String(), "first run") {
		t.Errorf("list output:\n%s", out.String())
	}

	out.Reset()
	if err := r.LogsSummary(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Runs: 1 (1 succeeded, 0 failed)") {
		t.Errorf("summary output:\n%s", out.String())
	}
}

func TestPrintSavingsSilentWithoutSubstitution(t *testing.T) {
	var buf bytes.Buffer
	printSavings(&buf, model.Stats{TokenSavings: model.Savings{BytesStored: 100}})
	if buf.Len() != 0 {
		t.Errorf("expected no output, got %q", buf.String())
	}
}

func TestSavingsPct(t *testing.T) {
	hyp, pct := savingsPct(100, 25)
	if hyp != 125 || pct != 20 {
		t.Errorf("savingsPct(100, 25) = %d, %v", hyp, pct)
	}
	if _, pct := savingsPct(0, 0); pct != 0 {
		t.Errorf("zero output pct = %v", pct)
	}
}

func TestThousands(t *testing.T) {
	tests := map[int]string{0: "0", 999: "999", 1000: "1,000", 1234567: "1,234,567", -4500: "-4,500"}
	for n, want := range tests {
		if got := thousands(n); got != want {
			t.Errorf("thousands(%d) = %q, want %q", n, got, want)
		}
	}
}

func TestClipMarksTruncation(t *testing.T) {
	if got := clip("short", 10); got != "short" {
		t.Errorf("clip short = %q", got)
	}
	got := clip(strings.Repeat("x", 20), 10)
	if !strings.HasPrefix(got, strings.Repeat("x", 10)+"...") || !strings.HasSuffix(got, "(truncated)") {
		t.Errorf("clip long = %q", got)
	}
}
