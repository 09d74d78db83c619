// Package storage provides the per-session result store and the SQLite run
// log.
//
// Information Hiding:
// - SQLite connection management hidden behind RunLog
// - Schema and JSON column encoding encapsulated
// - Thread-safe via sql.DB's built-in connection pooling

package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"github.com/richinex/clipagent/model"
)

// RunEntry is one logged agent run.
type RunEntry struct {
	ID         string             `json:"id"`
	Label      string             `json:"label"`
	Timestamp  time.Time          `json:"timestamp"`
	Prompt     string             `json:"prompt"`
	Model      string             `json:"model"`
	Success    bool               `json:"success"`
	Result     string             `json:"result"`
	Error      string             `json:"error,omitempty"`
	ToolCalls  []model.CallRecord `json:"tool_calls"`
	Statistics model.Stats        `json:"statistics"`
	Metadata   map[string]string  `json:"metadata"`
}

// RunSummary aggregates every logged run.
type RunSummary struct {
	TotalRuns             int              `json:"total_runs"`
	SuccessfulRuns        int              `json:"successful_runs"`
	FailedRuns            int              `json:"failed_runs"`
	TotalToolCalls        int              `json:"total_tool_calls"`
	TotalTokens           model.TokenUsage `json:"total_tokens"`
	TotalBytesSubstituted int              `json:"total_bytes_substituted"`
	TotalTokensSaved      int              `json:"total_tokens_saved"`
	AverageSavingsPct     float64          `json:"average_savings_pct"`
	ModelsUsed            []string         `json:"models_used"`
}

// RunLog persists run entries.
type RunLog interface {
	// LogRun assigns ID, label and timestamp (when unset) and persists entry.
	LogRun(ctx context.Context, entry RunEntry) (RunEntry, error)
	// ListRuns returns the most recent runs first; limit <= 0 means all.
	ListRuns(ctx context.Context, limit int) ([]RunEntry, error)
	Summary(ctx context.Context) (RunSummary, error)
	Close() error
}

// SqliteRunLog implements RunLog using SQLite.
// Thread-safe: sql.DB handles connection pooling and concurrent access.
type SqliteRunLog struct {
	db *sql.DB
}

// OpenSqliteRunLog opens or creates a run log database at the given path.
// Creates parent directories if they don't exist.
func OpenSqliteRunLog(path string) (*SqliteRunLog, error) {
	dir := filepath.Dir(path)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	return newSqliteRunLog(db)
}

// NewSqliteRunLogInMemory creates an in-memory run log (useful for testing).
func NewSqliteRunLogInMemory() (*SqliteRunLog, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory SQLite: %w", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	return newSqliteRunLog(db)
}

func newSqliteRunLog(db *sql.DB) (*SqliteRunLog, error) {
	l := &SqliteRunLog{db: db}
	if err := l.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return l, nil
}

// Close closes the database connection.
func (l *SqliteRunLog) Close() error {
	return l.db.Close()
}

func (l *SqliteRunLog) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			id TEXT NOT NULL UNIQUE,
			label TEXT NOT NULL,
			timestamp TEXT NOT NULL,
			prompt TEXT NOT NULL,
			model TEXT NOT NULL,
			success INTEGER NOT NULL,
			result TEXT NOT NULL DEFAULT '',
			error TEXT,
			tool_calls TEXT NOT NULL,
			statistics TEXT NOT NULL,
			metadata TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_runs_model
		ON runs(model);
	`
	_, err := l.db.Exec(schema)
	return err
}

// LogRun persists a run. The label is "test_NNNN", numbered from 1 in
// insertion order.
func (l *SqliteRunLog) LogRun(ctx context.Context, entry RunEntry) (RunEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}
	if entry.Model == "" {
		entry.Model = "unknown"
	}
	if entry.ToolCalls == nil {
		entry.ToolCalls = []model.CallRecord{}
	}
	if entry.Metadata == nil {
		entry.Metadata = map[string]string{}
	}

	toolCalls, err := json.Marshal(entry.ToolCalls)
	if err != nil {
		return RunEntry{}, fmt.Errorf("failed to encode tool calls: %w", err)
	}
	stats, err := json.Marshal(entry.Statistics)
	if err != nil {
		return RunEntry{}, fmt.Errorf("failed to encode statistics: %w", err)
	}
	metadata, err := json.Marshal(entry.Metadata)
	if err != nil {
		return RunEntry{}, fmt.Errorf("failed to encode metadata: %w", err)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return RunEntry{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	// defer tx.Rollback() is safe even after Commit() - it becomes a no-op
	defer func() { _ = tx.Rollback() }()

	var count int
	if err := tx.QueryRowContext(ctx, "SELECT COUNT(*) FROM runs").Scan(&count); err != nil {
		return RunEntry{}, fmt.Errorf("failed to count runs: %w", err)
	}
	entry.Label = fmt.Sprintf("test_%04d", count+1)

	var errText interface{}
	if entry.Error != "" {
		errText = entry.Error
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO runs
		(id, label, timestamp, prompt, model, success, result, error, tool_calls, statistics, metadata)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.Label,
		entry.Timestamp.UTC().Format(time.RFC3339Nano),
		entry.Prompt,
		entry.Model,
		entry.Success,
		entry.Result,
		errText,
		string(toolCalls),
		string(stats),
		string(metadata),
	)
	if err != nil {
		return RunEntry{}, fmt.Errorf("failed to insert run: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return RunEntry{}, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return entry, nil
}

// ListRuns returns logged runs, most recent first.
func (l *SqliteRunLog) ListRuns(ctx context.Context, limit int) ([]RunEntry, error) {
	query := `
		SELECT id, label, timestamp, prompt, model, success, result, error, tool_calls, statistics, metadata
		FROM runs
		ORDER BY seq DESC`
	if limit > 0 {
		return l.queryRuns(ctx, query+" LIMIT ?", limit)
	}
	return l.queryRuns(ctx, query)
}

// Summary aggregates all logged runs. Average savings is taken over runs
// with output tokens and a positive net saving, as net/(output+net)*100,
// rounded to one decimal.
func (l *SqliteRunLog) Summary(ctx context.Context) (RunSummary, error) {
	runs, err := l.ListRuns(ctx, 0)
	if err != nil {
		return RunSummary{}, err
	}

	summary := RunSummary{ModelsUsed: []string{}}
	models := make(map[string]bool)
	var pctSum float64
	var pctCount int

	for _, r := range runs {
		summary.TotalRuns++
		if r.Success {
			summary.SuccessfulRuns++
		}
		summary.TotalToolCalls += len(r.ToolCalls)

		usage := r.Statistics.TokenUsage
		savings := r.Statistics.TokenSavings
		summary.TotalTokens.Input += usage.Input
		summary.TotalTokens.Output += usage.Output
		summary.TotalBytesSubstituted += savings.BytesSubstituted
		summary.TotalTokensSaved += savings.NetTokensSaved

		if usage.Output > 0 && savings.NetTokensSaved > 0 {
			hypothetical := usage.Output + savings.NetTokensSaved
			pctSum += float64(savings.NetTokensSaved) / float64(hypothetical) * 100
			pctCount++
		}

		if !models[r.Model] {
			models[r.Model] = true
			summary.ModelsUsed = append(summary.ModelsUsed, r.Model)
		}
	}

	summary.FailedRuns = summary.TotalRuns - summary.SuccessfulRuns
	if pctCount > 0 {
		summary.AverageSavingsPct = math.Round(pctSum/float64(pctCount)*10) / 10
	}
	sort.Strings(summary.ModelsUsed)
	return summary, nil
}

// queryRuns executes a query and scans rows into RunEntry values.
func (l *SqliteRunLog) queryRuns(ctx context.Context, query string, args ...interface{}) ([]RunEntry, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	runs := []RunEntry{}
	for rows.Next() {
		var (
			r                          RunEntry
			timestamp                  string
			errText                    sql.NullString
			toolCalls, stats, metadata string
		)
		err := rows.Scan(
			&r.ID,
			&r.Label,
			&timestamp,
			&r.Prompt,
			&r.Model,
			&r.Success,
			&r.Result,
			&errText,
			&toolCalls,
			&stats,
			&metadata,
		)
		if err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		if r.Timestamp, err = time.Parse(time.RFC3339Nano, timestamp); err != nil {
			return nil, fmt.Errorf("run %s: bad timestamp: %w", r.ID, err)
		}
		r.Error = errText.String
		if err := json.Unmarshal([]byte(toolCalls), &r.ToolCalls); err != nil {
			return nil, fmt.Errorf("run %s: bad tool calls: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(stats), &r.Statistics); err != nil {
			return nil, fmt.Errorf("run %s: bad statistics: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(metadata), &r.Metadata); err != nil {
			return nil, fmt.Errorf("run %s: bad metadata: %w", r.ID, err)
		}
		runs = append(runs, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iteration failed: %w", err)
	}
	return runs, nil
}

// Verify SqliteRunLog implements RunLog
var _ RunLog = (*SqliteRunLog)(nil)
