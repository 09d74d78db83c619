// Package main provides the clipagent CLI entry point.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/richinex/clipagent/cli"
	"github.com/richinex/clipagent/internal/logging"
)

var (
	// Global flags
	provider string
	model    string
	maxTurns int
	logDB    string
	noLog    bool
	verbose  bool
)

func main() {
	// Load .env file if present (ignore "file not found" errors)
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			fmt.Fprintf(os.Stderr, "Warning: failed to load .env file: %v\n", err)
		}
	}

	rootCmd := &cobra.Command{
		Use:   "clipagent",
		Short: "Tool-calling agent with a zero-copy clipboard",
		Long: `A CLI for running an LLM agent whose tool results are kept in a Result Store.

The model moves data between tools without retyping it:
- copy: extract part of a stored result into a named clipboard slot
- template_invoke: call a tool with {{slot}} placeholders filled from the clipboard`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&provider, "provider", "p", "", "LLM provider (openai, anthropic, deepseek, gemini); defaults to $CLIPAGENT_PROVIDER or anthropic")
	rootCmd.PersistentFlags().StringVarP(&model, "model", "m", "", "Model name (defaults to the provider's configured model)")
	rootCmd.PersistentFlags().IntVar(&maxTurns, "max-turns", 0, "Maximum model turns per run (defaults to $AGENT_MAX_TURNS or 20)")
	rootCmd.PersistentFlags().StringVar(&logDB, "log-db", "", "Run log database path (defaults to $CLIPAGENT_LOG_DB)")
	rootCmd.PersistentFlags().BoolVar(&noLog, "no-log", false, "Do not write runs to the run log")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show debug logging")

	rootCmd.AddCommand(runCmd())
	rootCmd.AddCommand(toolsCmd())
	rootCmd.AddCommand(logsCmd())
	rootCmd.AddCommand(batchCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// newRunner builds a runner from the global flags. The returned cleanup
// flushes the logger.
func newRunner() (*cli.Runner, func(), error) {
	logger, err := logging.New(verbose)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() { _ = logger.Sync() }

	runner, err := cli.NewRunner(cli.Options{
		Provider: provider,
		Model:    model,
		MaxTurns: maxTurns,
		LogDB:    logDB,
		NoLog:    noLog,
	}, logger.Named("clipagent"))
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	logger.Debug("runner ready", zap.String("provider", provider), zap.String("model", model))
	return runner, cleanup, nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run [prompt]",
		Short: "Run one prompt and print the tool-call and savings report",
		Long: `Run one prompt through the agent. The prompt is read from standard input
when no argument is given.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prompt, err := readPrompt(args, cmd.InOrStdin())
			if err != nil {
				return err
			}
			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			return runner.Run(cmd.Context(), prompt)
		},
	}
}

func readPrompt(args []string, stdin io.Reader) (string, error) {
	if len(args) == 1 {
		return args[0], nil
	}
	if f, ok := stdin.(*os.File); ok {
		if info, err := f.Stat(); err == nil && info.Mode()&os.ModeCharDevice != 0 {
			fmt.Fprintln(os.Stderr, "Enter your prompt (Ctrl+D to finish):")
		}
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return "", fmt.Errorf("failed to read prompt: %w", err)
	}
	return string(data), nil
}

func toolsCmd() *cobra.Command {
	var verboseTools bool

	cmd := &cobra.Command{
		Use:   "tools",
		Short: "List available tools",
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			return runner.Tools(verboseTools)
		},
	}

	cmd.Flags().BoolVarP(&verboseTools, "verbose-tools", "V", false, "Show tool parameters")

	return cmd
}

func logsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Inspect the run log",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "summary",
		Short: "Aggregate statistics over all logged runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			return runner.LogsSummary(cmd.Context())
		},
	})

	var limit int
	list := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			return runner.LogsList(cmd.Context(), limit)
		},
	}
	list.Flags().IntVarP(&limit, "limit", "n", 20, "Number of runs to show (0 for all)")
	cmd.AddCommand(list)

	return cmd
}

func batchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "batch <file.yaml>",
		Short: "Run every scenario in a YAML file with a fresh session each",
		Long: `Run scenarios sequentially. The file holds a list of {name, prompt, model}
entries, either at the top level or under a "scenarios" key.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runner, cleanup, err := newRunner()
			if err != nil {
				return err
			}
			defer cleanup()
			return runner.Batch(cmd.Context(), args[0])
		},
	}
}
