// HTTP Request Tool (mock).
//
// Information Hiding:
// - Request echo format hidden
// - Method normalisation and validation abstracted

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/value"
)

var httpMethods = []string{"GET", "POST", "PUT", "DELETE", "PATCH"}

// HTTPRequestTool records what it would send instead of sending it. The
// echoed request keeps the body's JSON type so structured payloads produced
// by template substitution stay inspectable.
type HTTPRequestTool struct {
	logger *zap.Logger
}

// NewHTTPRequestTool creates a new mock HTTP tool.
func NewHTTPRequestTool(logger *zap.Logger) *HTTPRequestTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HTTPRequestTool{logger: logger}
}

// Metadata returns the tool metadata.
func (t *HTTPRequestTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "http_request",
		Description: "Make an HTTP request (mock implementation - logs what would be sent)",
		Parameters: []ToolParameter{
			{Name: "method", ParamType: "string", Description: "HTTP method", Required: true, Enum: httpMethods},
			{Name: "url", ParamType: "string", Description: "URL to request", Required: true},
			{Name: "headers", ParamType: "object", Description: "Request headers"},
			{Name: "body", Description: "Request body (for POST/PUT/PATCH)"},
		},
	}
}

// Validate checks args against the tool schema.
func (t *HTTPRequestTool) Validate(args json.RawMessage) error {
	return ValidateArgs(t.Metadata(), args)
}

// Execute returns {success, mock, message, request}.
func (t *HTTPRequestTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	v, err := value.Parse(args)
	if err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}
	a, ok := v.(*value.Mapping)
	if !ok {
		return FailureResultf("invalid arguments: expected an object"), nil
	}

	method, _ := a.GetText("method")
	method = strings.ToUpper(method)
	target, _ := a.GetText("url")
	if target == "" {
		return FailureResultf("URL cannot be empty"), nil
	}
	if _, err := url.Parse(target); err != nil {
		return FailureResultf("invalid URL %q: %v", target, err), nil
	}

	headers, ok := a.Get("headers")
	if !ok {
		headers = value.NewMapping()
	}
	body, ok := a.Get("body")
	if !ok {
		body = value.Null{}
	}

	t.logger.Info("http_request",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("headers", value.Preview(headers, 200)),
		zap.String("body", value.Preview(body, 200)),
	)

	return SuccessResult(value.NewMapping().
		Set("success", value.Boolean(true)).
		Set("mock", value.Boolean(true)).
		Set("message", value.Text(fmt.Sprintf("Would send %s to %s", method, target))).
		Set("request", value.NewMapping().
			Set("method", value.Text(method)).
			Set("url", value.Text(target)).
			Set("headers", headers).
			Set("body", body)),
	), nil
}
