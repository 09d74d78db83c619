package cli

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/richinex/clipagent/storage"
)

// Scenario is one prompt in a batch file.
type Scenario struct {
	Name   string `yaml:"name"`
	Prompt string `yaml:"prompt"`
	Model  string `yaml:"model,omitempty"`
}

// batchFile accepts either a top-level list or a "scenarios" key.
type batchFile struct {
	Scenarios []Scenario `yaml:"scenarios"`
}

// ParseScenarios decodes a batch file. Unnamed scenarios are named by
// position; a scenario without a prompt is an error.
func ParseScenarios(data []byte) ([]Scenario, error) {
	var file batchFile
	if err := yaml.Unmarshal(data, &file); err != nil || len(file.Scenarios) == 0 {
		var list []Scenario
		if listErr := yaml.Unmarshal(data, &list); listErr != nil {
			if err != nil {
				return nil, fmt.Errorf("invalid batch file: %w", err)
			}
			return nil, fmt.Errorf("invalid batch file: %w", listErr)
		}
		file.Scenarios = list
	}
	if len(file.Scenarios) == 0 {
		return nil, fmt.Errorf("batch file has no scenarios")
	}

	for i := range file.Scenarios {
		s := &file.Scenarios[i]
		if s.Name == "" {
			s.Name = fmt.Sprintf("scenario_%d", i+1)
		}
		if s.Prompt == "" {
			return nil, fmt.Errorf("scenario %q has no prompt", s.Name)
		}
	}
	return file.Scenarios, nil
}

// Batch runs every scenario in path sequentially, each in a fresh session,
// and logs each run unless logging is disabled.
func (r *Runner) Batch(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read batch file: %w", err)
	}
	scenarios, err := ParseScenarios(data)
	if err != nil {
		return err
	}

	var runLog storage.RunLog
	if !r.noLog {
		runLog, err = r.openLog()
		if err != nil {
			return fmt.Errorf("failed to open run log: %w", err)
		}
		defer runLog.Close()
	}

	failed := 0
	for i, sc := range scenarios {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprintf(r.out, "[%d/%d] %s\n", i+1, len(scenarios), sc.Name)

		entry, err := r.runScenario(ctx, sc)
		if err != nil {
			failed++
			fmt.Fprintf(r.out, "    setup failed: %v\n", err)
			continue
		}
		if !entry.Success {
			failed++
		}

		if runLog != nil {
			logged, err := runLog.LogRun(ctx, entry)
			if err != nil {
				return fmt.Errorf("failed to log scenario %q: %w", sc.Name, err)
			}
			entry = logged
		}
		printScenarioOutcome(r.out, entry)
	}

	if runLog != nil {
		summary, err := runLog.Summary(ctx)
		if err != nil {
			return err
		}
		printRunSummary(r.out, summary)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d scenarios failed", failed, len(scenarios))
	}
	return nil
}

func (r *Runner) runScenario(ctx context.Context, sc Scenario) (storage.RunEntry, error) {
	provider, err := r.newProvider(sc.Model)
	if err != nil {
		return storage.RunEntry{}, err
	}
	r.logger.Info("batch scenario", zap.String("name", sc.Name), zap.String("model", provider.Model()))

	res, err := r.runOnce(ctx, provider, sc.Prompt, map[string]string{"scenario": sc.Name})
	if err != nil {
		return storage.RunEntry{}, err
	}
	return res.entry, nil
}
