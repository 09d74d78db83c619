// Filesystem Tools - read_file and create_file.
//
// Information Hiding:
// - File I/O implementation details hidden
// - Output directory resolution and size checks hidden
// - Error handling for file operations abstracted

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/value"
)

// resolveInOutputDir maps path under outputDir, dropping leading slashes so
// absolute-looking paths stay inside it.
func resolveInOutputDir(outputDir, path string) string {
	return filepath.Join(outputDir, strings.TrimLeft(path, "/"))
}

// ReadFileTool reads file contents.
// A path that does not exist as given is looked up under the output
// directory, so files written by create_file can be read back.
type ReadFileTool struct {
	outputDir    string
	maxSizeBytes int64
	logger       *zap.Logger
}

// NewReadFileTool creates a new read file tool.
func NewReadFileTool(outputDir string, maxSizeBytes int64, logger *zap.Logger) *ReadFileTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReadFileTool{outputDir: outputDir, maxSizeBytes: maxSizeBytes, logger: logger}
}

// Metadata returns the tool metadata.
func (t *ReadFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Parameters: []ToolParameter{
			{Name: "path", ParamType: "string", Description: "Path to the file to read", Required: true},
		},
	}
}

type readFileArgs struct {
	Path string `json:"path"`
}

// Validate validates the arguments.
func (t *ReadFileTool) Validate(args json.RawMessage) error {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	return nil
}

// Execute reads the file and returns {success, path, content}.
func (t *ReadFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a readFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	path := a.Path
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		path = resolveInOutputDir(t.outputDir, a.Path)
		info, err = os.Stat(path)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return FailureResultf("File not found: %s", a.Path), nil
	}
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read file metadata: %w", err)), nil
	}
	if info.IsDir() {
		return FailureResultf("not a file: %s", a.Path), nil
	}

	if info.Size() > t.maxSizeBytes {
		return FailureResultf("file too large: %d bytes (max: %d bytes)", info.Size(), t.maxSizeBytes), nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return FailureResult(fmt.Errorf("failed to read file: %w", err)), nil
	}

	t.logger.Info("read_file", zap.String("path", path), zap.Int("bytes", len(content)))

	return SuccessResult(value.NewMapping().
		Set("success", value.Boolean(true)).
		Set("path", value.Text(path)).
		Set("content", value.Text(content)),
	), nil
}

// CreateFileTool writes content to a file under the output directory.
type CreateFileTool struct {
	outputDir    string
	maxSizeBytes int64
	logger       *zap.Logger
}

// NewCreateFileTool creates a new create file tool.
func NewCreateFileTool(outputDir string, maxSizeBytes int64, logger *zap.Logger) *CreateFileTool {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreateFileTool{outputDir: outputDir, maxSizeBytes: maxSizeBytes, logger: logger}
}

// Metadata returns the tool metadata.
func (t *CreateFileTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        "create_file",
		Description: "Create a file with the given path and content",
		Parameters: []ToolParameter{
			{Name: "path", ParamType: "string", Description: "Path for the new file (relative to output directory)", Required: true},
			{Name: "content", ParamType: "string", Description: "Content to write to the file", Required: true},
		},
	}
}

type createFileArgs struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// Validate checks args against the tool schema.
func (t *CreateFileTool) Validate(args json.RawMessage) error {
	return ValidateArgs(t.Metadata(), args)
}

// Execute writes the file and returns {success, path, bytes_written}.
func (t *CreateFileTool) Execute(ctx context.Context, args json.RawMessage) (ToolResult, error) {
	var a createFileArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResult(fmt.Errorf("invalid arguments: %w", err)), nil
	}

	if strings.Trim(a.Path, "/") == "" {
		return FailureResultf("path cannot be empty"), nil
	}
	if int64(len(a.Content)) > t.maxSizeBytes {
		return FailureResultf("content too large: %d bytes (max: %d bytes)", len(a.Content), t.maxSizeBytes), nil
	}

	path := resolveInOutputDir(t.outputDir, a.Path)
	rel, err := filepath.Rel(t.outputDir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return FailureResultf("access to path '%s' is not allowed", a.Path), nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return FailureResult(fmt.Errorf("failed to create directory: %w", err)), nil
	}
	if err := os.WriteFile(path, []byte(a.Content), 0644); err != nil {
		return FailureResult(fmt.Errorf("failed to write file: %w", err)), nil
	}

	t.logger.Info("create_file", zap.String("path", path), zap.Int("bytes", len(a.Content)))

	return SuccessResult(value.NewMapping().
		Set("success", value.Boolean(true)).
		Set("path", value.Text(path)).
		Set("bytes_written", value.Int(int64(len(a.Content)))),
	), nil
}
