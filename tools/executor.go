// Tool Executor with per-call timeout.
//
// Information Hiding:
// - Validation-before-execution ordering hidden
// - Deadline handling and timeout classification hidden

package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Executor runs a tool once under a per-call deadline. It never retries.
type Executor struct {
	timeout time.Duration
	logger  *zap.Logger
}

// NewExecutor creates a tool executor with the given configuration.
func NewExecutor(config ToolConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{timeout: config.Timeout(), logger: logger}
}

// NewDefaultExecutor creates an executor with default configuration.
func NewDefaultExecutor() *Executor {
	return NewExecutor(ToolConfig{}, nil)
}

// Execute validates args and runs tool. Validation failures and timeouts are
// failed results; other errors from the tool propagate.
func (e *Executor) Execute(ctx context.Context, tool Tool, args json.RawMessage) (ToolResult, error) {
	name := tool.Metadata().Name

	if err := tool.Validate(args); err != nil {
		e.logger.Debug("tool validation failed", zap.String("tool", name), zap.Error(err))
		return FailureResult(fmt.Errorf("validation failed: %w", err)), nil
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		e.logger.Warn("tool timed out", zap.String("tool", name), zap.Duration("timeout", e.timeout))
		return FailureResultf("tool '%s' timed out after %s", name, e.timeout), nil
	}
	if err != nil {
		return ToolResult{}, err
	}

	e.logger.Debug("tool executed",
		zap.String("tool", name),
		zap.Bool("success", result.Success()),
		zap.Duration("elapsed", elapsed),
	)
	return result, nil
}
