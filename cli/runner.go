// Command execution for CLI commands.
//
// Information Hiding:
// - Provider, registry and agent setup hidden
// - Run-log opening and entry assembly hidden
// - Output formatting delegated to report.go

package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/richinex/clipagent/agent"
	"github.com/richinex/clipagent/config"
	"github.com/richinex/clipagent/llm"
	"github.com/richinex/clipagent/storage"
	"github.com/richinex/clipagent/tools"
)

// Options holds CLI execution options. Zero values keep the settings loaded
// from the environment.
type Options struct {
	Provider string
	Model    string
	MaxTurns int
	LogDB    string
	NoLog    bool
}

// Runner executes CLI commands against one set of settings.
type Runner struct {
	settings config.Settings
	noLog    bool
	logger   *zap.Logger
	out      io.Writer

	newProvider func(model string) (llm.Provider, error)
	openLog     func() (storage.RunLog, error)
}

// NewRunner loads settings for opts.Provider and applies the flag overrides.
func NewRunner(opts Options, logger *zap.Logger) (*Runner, error) {
	settings, err := config.New(opts.Provider)
	if err != nil {
		return nil, err
	}
	if opts.Model != "" {
		settings.LLM.Model = opts.Model
	}
	if opts.MaxTurns > 0 {
		settings.Agent.MaxTurns = opts.MaxTurns
	}
	if opts.LogDB != "" {
		settings.Log.DBPath = opts.LogDB
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	r := &Runner{
		settings: settings,
		noLog:    opts.NoLog,
		logger:   logger,
		out:      os.Stdout,
	}
	r.newProvider = func(model string) (llm.Provider, error) {
		return createProvider(r.settings, model)
	}
	r.openLog = func() (storage.RunLog, error) {
		return storage.OpenSqliteRunLog(r.settings.Log.DBPath)
	}
	return r, nil
}

// SetOutput redirects the console report.
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// Run executes one prompt, logs the run and prints the report.
func (r *Runner) Run(ctx context.Context, prompt string) error {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return fmt.Errorf("no prompt provided")
	}

	provider, err := r.newProvider("")
	if err != nil {
		return err
	}
	printHeader(r.out, provider.Model(), prompt)

	res, err := r.runOnce(ctx, provider, prompt, nil)
	if err != nil {
		return err
	}

	if !r.noLog {
		if err := r.withRunLog(func(log storage.RunLog) error {
			logged, err := log.LogRun(ctx, res.entry)
			if err != nil {
				return err
			}
			printLogged(r.out, r.settings.Log.DBPath, logged)
			return nil
		}); err != nil {
			return fmt.Errorf("failed to log run: %w", err)
		}
	}

	if !res.entry.Success {
		return fmt.Errorf("agent failed: %s", res.entry.Error)
	}

	printSeparator(r.out, "AGENT RESPONSE")
	fmt.Fprintln(r.out, res.entry.Result)
	if res.response.MaxTurnsReached {
		fmt.Fprintf(r.out, "\n(stopped after %d turns with tool calls pending)\n", res.response.Turns)
	}

	printToolCalls(r.out, res.entry.ToolCalls)
	printStats(r.out, res.entry.Statistics)
	return nil
}

// runResult pairs the loggable entry with the raw agent response.
type runResult struct {
	entry    storage.RunEntry
	response agent.Response
}

// runOnce runs prompt in a fresh session. Agent failures are reported in the
// entry; only setup failures are returned as errors.
func (r *Runner) runOnce(ctx context.Context, provider llm.Provider, prompt string, metadata map[string]string) (runResult, error) {
	registry, err := tools.WithDefaults(r.settings.ToolConfig(), r.logger)
	if err != nil {
		return runResult{}, err
	}
	a, err := agent.NewBuilder(provider).
		Registry(registry).
		MaxTurns(r.settings.Agent.MaxTurns).
		StoreInvocations(r.settings.Agent.StoreInvocations).
		Logger(r.logger).
		Build()
	if err != nil {
		return runResult{}, err
	}

	resp, runErr := a.Run(ctx, prompt)
	if runErr != nil {
		r.logger.Error("agent run failed", zap.Error(runErr))
	}

	session := a.Session()
	meta := map[string]string{
		"provider":          provider.Name(),
		"session_id":        session.ID(),
		"turns":             strconv.Itoa(resp.Turns),
		"max_turns_reached": strconv.FormatBool(resp.MaxTurnsReached),
	}
	for k, v := range metadata {
		meta[k] = v
	}

	entry := storage.RunEntry{
		Prompt:     prompt,
		Model:      provider.Model(),
		Success:    runErr == nil,
		Result:     resp.Text,
		ToolCalls:  session.CallRecords(),
		Statistics: session.Stats(),
		Metadata:   meta,
	}
	if runErr != nil {
		entry.Error = runErr.Error()
	}
	return runResult{entry: entry, response: resp}, nil
}

// Tools lists the pseudo-tools and the registered sample tools.
func (r *Runner) Tools(verbose bool) error {
	registry, err := tools.WithDefaults(r.settings.ToolConfig(), r.logger)
	if err != nil {
		return err
	}
	session := agent.NewSession(registry)

	fmt.Fprintln(r.out, "Available tools:")
	fmt.Fprintln(r.out)

	for _, meta := range session.Tools() {
		if verbose {
			fmt.Fprintln(r.out, tools.FormatMetadata(meta))
		} else {
			fmt.Fprintf(r.out, "  %s\n", meta.Name)
			fmt.Fprintf(r.out, "    %s\n", oneLine(meta.Description))
		}
		fmt.Fprintln(r.out)
	}
	return nil
}

// LogsSummary prints aggregate statistics over every logged run.
func (r *Runner) LogsSummary(ctx context.Context) error {
	return r.withRunLog(func(log storage.RunLog) error {
		summary, err := log.Summary(ctx)
		if err != nil {
			return err
		}
		printRunSummary(r.out, summary)
		return nil
	})
}

// LogsList prints the most recent runs; limit <= 0 lists all.
func (r *Runner) LogsList(ctx context.Context, limit int) error {
	return r.withRunLog(func(log storage.RunLog) error {
		entries, err := log.ListRuns(ctx, limit)
		if err != nil {
			return err
		}
		printRunList(r.out, entries)
		return nil
	})
}

func (r *Runner) withRunLog(fn func(storage.RunLog) error) error {
	log, err := r.openLog()
	if err != nil {
		return err
	}
	defer log.Close()
	return fn(log)
}

// createProvider builds the configured provider; an empty model keeps the
// model from settings.
func createProvider(settings config.Settings, model string) (llm.Provider, error) {
	providerType, err := llm.ParseProviderType(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	apiKey, err := config.APIKeyFor(settings.LLM.Provider)
	if err != nil {
		return nil, err
	}

	if model == "" {
		model = settings.LLM.Model
	}
	return providerType.
		Model(model).
		MaxTokens(settings.LLM.MaxTokens).
		Temperature(float32(settings.LLM.Temperature)).
		APIKey(apiKey)
}
