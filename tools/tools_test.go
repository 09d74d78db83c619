package tools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/richinex/clipagent/clipboard"
	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/storage"
	"github.com/richinex/clipagent/template"
	"github.com/richinex/clipagent/value"
)

func newTestRegistry(t *testing.T) (*Registry, string) {
	t.Helper()
	dir := t.TempDir()
	reg, err := WithDefaults(ToolConfig{OutputDir: dir}, nil)
	if err != nil {
		t.Fatalf("WithDefaults: %v", err)
	}
	return reg, dir
}

func field(t *testing.T, v value.Value, key string) value.Value {
	t.Helper()
	m, ok := v.(*value.Mapping)
	if !ok {
		t.Fatalf("expected mapping, got %s", value.Stringify(v))
	}
	got, ok := m.Get(key)
	if !ok {
		t.Fatalf("missing key %q in %s", key, value.Stringify(v))
	}
	return got
}

func TestRegistryNames(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got := strings.Join(reg.Names(), ",")
	if got != "create_file,http_request,read_file" {
		t.Errorf("Names() = %s", got)
	}
	if err := reg.Register(NewHTTPRequestTool(nil)); err == nil {
		t.Error("expected duplicate registration to fail")
	}
}

func TestRegistryUnknownTool(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got, err := reg.Execute(context.Background(), "nope", value.NewMapping())
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := `{"error":"Unknown tool: nope","available":["create_file","http_request","read_file"]}`
	if s := value.Stringify(got); s != want {
		t.Errorf("got %s, want %s", s, want)
	}
}

func TestReadFileMissing(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got, err := reg.Execute(context.Background(), "read_file", value.MustParse(`{"path":"missing.txt"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	want := `{"success":false,"error":"File not found: missing.txt"}`
	if s := value.Stringify(got); s != want {
		t.Errorf("got %s, want %s", s, want)
	}
}

func TestCreateThenReadFile(t *testing.T) {
	reg, dir := newTestRegistry(t)
	ctx := context.Background()

	created, err := reg.Execute(ctx, "create_file", value.MustParse(`{"path":"/nested/a.txt","content":"line1\nline2"}`))
	if err != nil {
		t.Fatalf("create_file: %v", err)
	}
	if n := value.Stringify(field(t, created, "bytes_written")); n != "11" {
		t.Errorf("bytes_written = %s", n)
	}
	if _, err := os.Stat(filepath.Join(dir, "nested", "a.txt")); err != nil {
		t.Fatalf("file not written under output dir: %v", err)
	}

	read, err := reg.Execute(ctx, "read_file", value.MustParse(`{"path":"nested/a.txt"}`))
	if err != nil {
		t.Fatalf("read_file: %v", err)
	}
	if c := value.Stringify(field(t, read, "content")); c != "line1\nline2" {
		t.Errorf("content = %q", c)
	}
}

func TestCreateFileRejectsEscape(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got, err := reg.Execute(context.Background(), "create_file", value.MustParse(`{"path":"../x.txt","content":"x"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s := value.Stringify(field(t, got, "success")); s != "false" {
		t.Errorf("expected failure, got %s", value.Stringify(got))
	}
}

func TestHTTPRequestKeepsBodyType(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got, err := reg.Execute(context.Background(), "http_request",
		value.MustParse(`{"method":"POST","url":"https://api.example.com/x","body":{"n":42,"tags":["a"]}}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if msg := value.Stringify(field(t, got, "message")); msg != "Would send POST to https://api.example.com/x" {
		t.Errorf("message = %q", msg)
	}
	body := field(t, field(t, got, "request"), "body")
	if !value.Equal(body, value.MustParse(`{"n":42,"tags":["a"]}`)) {
		t.Errorf("body = %s", value.Stringify(body))
	}
}

func TestValidationFailureIsResult(t *testing.T) {
	reg, _ := newTestRegistry(t)
	got, err := reg.Execute(context.Background(), "http_request", value.MustParse(`{"method":"FETCH","url":"x"}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if s := value.Stringify(field(t, got, "success")); s != "false" {
		t.Errorf("expected failure, got %s", value.Stringify(got))
	}
	if msg := value.Stringify(field(t, got, "error")); !strings.HasPrefix(msg, "validation failed") {
		t.Errorf("error = %q", msg)
	}
}

type blockingTool struct{}

func (blockingTool) Metadata() ToolMetadata          { return ToolMetadata{Name: "block"} }
func (blockingTool) Validate(json.RawMessage) error { return nil }
func (blockingTool) Execute(ctx context.Context, _ json.RawMessage) (ToolResult, error) {
	<-ctx.Done()
	return ToolResult{}, ctx.Err()
}

type failingTool struct{}

var errBoom = errors.New("boom")

func (failingTool) Metadata() ToolMetadata          { return ToolMetadata{Name: "fail"} }
func (failingTool) Validate(json.RawMessage) error { return nil }
func (failingTool) Execute(context.Context, json.RawMessage) (ToolResult, error) {
	return ToolResult{}, errBoom
}

func TestExecutorTimeout(t *testing.T) {
	exec := NewExecutor(ToolConfig{TimeoutSecs: 1}, nil)
	res, err := exec.Execute(context.Background(), blockingTool{}, json.RawMessage(`{}`))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Success() || !strings.Contains(res.Error.Error(), "timed out") {
		t.Errorf("expected timeout failure, got %+v", res)
	}
}

func TestRegistryPropagatesToolErrors(t *testing.T) {
	reg := NewRegistry(nil, nil)
	if err := reg.Register(failingTool{}); err != nil {
		t.Fatal(err)
	}
	_, err := reg.Execute(context.Background(), "fail", nil)
	if !errors.Is(err, errBoom) {
		t.Errorf("expected errBoom, got %v", err)
	}
}

type pseudoFixture struct {
	store *storage.ResultStore
	cb    *clipboard.Clipboard
	copy  *CopyTool
	tmpl  *TemplateInvokeTool
}

func newPseudoFixture(t *testing.T) pseudoFixture {
	t.Helper()
	reg, _ := newTestRegistry(t)
	store := storage.NewResultStore()
	cb := clipboard.New()
	dispatcher := template.NewDispatcher(template.NewRenderer(cb), reg, nil)
	return pseudoFixture{
		store: store,
		cb:    cb,
		copy:  NewCopyTool(store, cb, nil),
		tmpl:  NewTemplateInvokeTool(dispatcher),
	}
}

func run(t *testing.T, tool Tool, args string) (value.Value, error) {
	t.Helper()
	raw := json.RawMessage(args)
	if err := tool.Validate(raw); err != nil {
		return nil, err
	}
	res, err := tool.Execute(context.Background(), raw)
	if err != nil {
		return nil, err
	}
	return res.Value(), nil
}

func TestCopyByJSONPath(t *testing.T) {
	f := newPseudoFixture(t)
	f.store.Store("read_file", value.MustParse(`{"success":true,"content":"hello"}`))

	got, err := run(t, f.copy, `{"slot":"greeting","source":"read_file:0","json_path":"content"}`)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	for key, want := range map[string]string{
		"slot":            "greeting",
		"tool":            "read_file",
		"method":          "json_path=content",
		"bytes_extracted": "5",
		"preview":         "hello",
	} {
		if s := value.Stringify(field(t, got, key)); s != want {
			t.Errorf("%s = %q, want %q", key, s, want)
		}
	}
	if h := value.Stringify(field(t, got, "source_hash")); len(h) == 0 {
		t.Error("source_hash is empty")
	}

	slot, err := f.cb.Get("greeting")
	if err != nil || value.Stringify(slot) != "hello" {
		t.Errorf("slot = %v, %v", slot, err)
	}
}

func TestCopyByLinesFromLast(t *testing.T) {
	f := newPseudoFixture(t)
	f.store.Store("read_file", value.MustParse(`{"content":"a\nb\nc\nd"}`))

	got, err := run(t, f.copy, `{"slot":"mid","source":"last","start_line":2,"end_line":3}`)
	if err != nil {
		t.Fatalf("copy: %v", err)
	}
	if m := value.Stringify(field(t, got, "method")); m != "lines 2-3" {
		t.Errorf("method = %q", m)
	}
	slot, _ := f.cb.Get("mid")
	if value.Stringify(slot) != "b\nc" {
		t.Errorf("slot = %q", value.Stringify(slot))
	}
}

func TestCopyErrors(t *testing.T) {
	f := newPseudoFixture(t)
	f.store.Store("read_file", value.MustParse(`{"content":"abc"}`))

	tests := []struct {
		name string
		args string
		want error
	}{
		{"unknown source", `{"slot":"s","source":"grep"}`, model.ErrNotFound},
		{"bad path", `{"slot":"s","source":"last","json_path":"missing"}`, model.ErrNotFound},
		{"no match", `{"slot":"s","source":"last","pattern":"xyz"}`, model.ErrNotFound},
		{"bad regex", `{"slot":"s","source":"last","pattern":"("}`, model.ErrMalformed},
		{"missing slot", `{"source":"last"}`, model.ErrMalformed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, f.copy, tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
	if f.cb.Has("s") {
		t.Error("failed copy must not fill the slot")
	}
}

func TestTemplateInvoke(t *testing.T) {
	f := newPseudoFixture(t)
	f.cb.Set("payload", value.MustParse(`{"n":42}`))
	f.cb.Set("host", value.Text("api.example.com"))

	got, err := run(t, f.tmpl, `{"template":{"tool":"http_request","parameters":{"method":"POST","url":"https://{{host}}/v1","body":"{{payload}}"}}}`)
	if err != nil {
		t.Fatalf("template_invoke: %v", err)
	}
	if s := value.Stringify(field(t, got, "tool_executed")); s != "http_request" {
		t.Errorf("tool_executed = %q", s)
	}
	req := field(t, field(t, got, "result"), "request")
	if u := value.Stringify(field(t, req, "url")); u != "https://api.example.com/v1" {
		t.Errorf("url = %q", u)
	}
	if b := field(t, req, "body"); !value.Equal(b, value.MustParse(`{"n":42}`)) {
		t.Errorf("body = %s", value.Stringify(b))
	}

	savings := f.cb.EstimateSavings()
	if savings.PerSlotUsage["payload"] != 1 || savings.PerSlotUsage["host"] != 1 {
		t.Errorf("usage = %v", savings.PerSlotUsage)
	}
}

func TestTemplateInvokeStringTemplate(t *testing.T) {
	f := newPseudoFixture(t)
	f.cb.Set("body", value.Text("hi"))

	got, err := run(t, f.tmpl, `{"template":"{\"tool\":\"create_file\",\"parameters\":{\"path\":\"out.txt\",\"content\":\"{{body}}\"}}"}`)
	if err != nil {
		t.Fatalf("template_invoke: %v", err)
	}
	if n := value.Stringify(field(t, field(t, got, "result"), "bytes_written")); n != "2" {
		t.Errorf("bytes_written = %s", n)
	}
}

func TestTemplateInvokeErrors(t *testing.T) {
	f := newPseudoFixture(t)

	tests := []struct {
		name string
		args string
		want error
	}{
		{"missing tool", `{"template":{"parameters":{}}}`, model.ErrMalformed},
		{"missing parameters in string", `{"template":"{\"tool\":\"read_file\"}"}`, model.ErrMalformed},
		{"pseudo target", `{"template":{"tool":"copy","parameters":{}}}`, model.ErrMalformed},
		{"unknown slot", `{"template":{"tool":"read_file","parameters":{"path":"{{nope}}"}}}`, model.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := run(t, f.tmpl, tt.args)
			if !errors.Is(err, tt.want) {
				t.Errorf("got %v, want %v", err, tt.want)
			}
		})
	}
}
