// Console report for a finished run.
//
// Information Hiding:
// - Section layout and truncation limits hidden
// - Savings percentage arithmetic hidden

package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/richinex/clipagent/model"
	"github.com/richinex/clipagent/storage"
	"github.com/richinex/clipagent/value"
)

const (
	maxInputDisplayLen  = 500
	maxResultDisplayLen = 300
	separatorWidth      = 60
)

func printSeparator(w io.Writer, title string) {
	if title == "" {
		fmt.Fprintf(w, "\n%s\n\n", strings.Repeat("-", separatorWidth))
		return
	}
	rule := strings.Repeat("=", separatorWidth)
	fmt.Fprintf(w, "\n%s\n  %s\n%s\n\n", rule, title, rule)
}

func printHeader(w io.Writer, modelName, prompt string) {
	printSeparator(w, "CLIPBOARD AGENT")
	fmt.Fprintf(w, "Model: %s\n", modelName)
	fmt.Fprintf(w, "Prompt: %s\n", prompt)
	printSeparator(w, "")
}

// printToolCalls lists every call attempt; clipboard calls are marked.
func printToolCalls(w io.Writer, records []model.CallRecord) {
	printSeparator(w, "TOOL CALL SUMMARY")

	for i, call := range records {
		marker := ""
		if call.UsedClipboard {
			marker = " [CLIPBOARD]"
		}
		fmt.Fprintf(w, "%d. %s%s\n", i+1, call.Tool, marker)
		fmt.Fprintf(w, "   Input: %s\n", clip(indentJSON(call.Input), maxInputDisplayLen))
		if call.Succeeded() {
			fmt.Fprintf(w, "   Result: %s\n", clip(indentJSON(call.Result), maxResultDisplayLen))
		} else {
			fmt.Fprintf(w, "   Error: %s\n", call.Error)
		}
		fmt.Fprintln(w)
	}
}

func printStats(w io.Writer, stats model.Stats) {
	printSeparator(w, "STATISTICS")

	other := stats.TotalToolCalls - stats.CopyCalls - stats.TemplateInvokeCalls
	fmt.Fprintf(w, "Total tool calls: %d\n", stats.TotalToolCalls)
	fmt.Fprintf(w, "  - copy calls: %d\n", stats.CopyCalls)
	fmt.Fprintf(w, "  - template_invoke calls: %d\n", stats.TemplateInvokeCalls)
	fmt.Fprintf(w, "  - other tool calls: %d\n", other)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Clipboard slots used: %s\n", formatList(stats.ClipboardSlots))
	fmt.Fprintf(w, "Stored results: %s\n", formatList(stats.StoredResults))
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Token usage:")
	fmt.Fprintf(w, "  - Input tokens:  %s\n", thousands(stats.TokenUsage.Input))
	fmt.Fprintf(w, "  - Output tokens: %s\n", thousands(stats.TokenUsage.Output))
	fmt.Fprintf(w, "  - Total tokens:  %s\n", thousands(stats.TokenUsage.Total()))

	printSavings(w, stats)
}

// printSavings is silent when no placeholder was ever substituted.
func printSavings(w io.Writer, stats model.Stats) {
	s := stats.TokenSavings
	if s.BytesSubstituted == 0 {
		return
	}
	printSeparator(w, "TOKEN SAVINGS ESTIMATE")
	fmt.Fprintf(w, "Bytes stored in clipboard:     %s\n", thousands(s.BytesStored))
	fmt.Fprintf(w, "Bytes substituted via slots:   %s\n", thousands(s.BytesSubstituted))
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Estimated output tokens saved: %s\n", thousands(s.EstimatedTokensSaved))
	fmt.Fprintf(w, "Reference overhead tokens:     %s\n", thousands(s.ReferenceOverheadTokens))
	fmt.Fprintf(w, "Net tokens saved:              %s\n", thousands(s.NetTokensSaved))

	slots := make([]string, 0, len(s.PerSlotUsage))
	for slot, count := range s.PerSlotUsage {
		if count > 0 {
			slots = append(slots, slot)
		}
	}
	sort.Strings(slots)
	if len(slots) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Slot usage breakdown:")
		for _, slot := range slots {
			count, size := s.PerSlotUsage[slot], s.PerSlotBytes[slot]
			fmt.Fprintf(w, "  - %s: %d use(s), %s bytes each = %s bytes saved\n",
				slot, count, thousands(size), thousands(size*count))
		}
	}

	actual := stats.TokenUsage.Output
	if actual > 0 {
		hypothetical, pct := savingsPct(actual, s.NetTokensSaved)
		fmt.Fprintln(w)
		fmt.Fprintf(w, "Actual output tokens:          %s\n", thousands(actual))
		fmt.Fprintf(w, "Hypothetical without copy:     ~%s\n", thousands(hypothetical))
		fmt.Fprintf(w, "Estimated savings:             ~%.1f%% of output tokens\n", pct)
	}
}

// savingsPct estimates what output would have cost without the clipboard
// and the share of it that was saved.
func savingsPct(actualOutput, netSaved int) (hypothetical int, pct float64) {
	hypothetical = actualOutput + netSaved
	if hypothetical <= 0 {
		return hypothetical, 0
	}
	return hypothetical, float64(netSaved) / float64(hypothetical) * 100
}

func printLogged(w io.Writer, path string, entry storage.RunEntry) {
	printSeparator(w, "RUN LOGGED")
	fmt.Fprintf(w, "Log database: %s\n", path)
	fmt.Fprintf(w, "Entry: %s (%s)\n", entry.Label, entry.ID)
}

func printRunSummary(w io.Writer, s storage.RunSummary) {
	printSeparator(w, "RUN LOG SUMMARY")
	fmt.Fprintf(w, "Runs: %d (%d succeeded, %d failed)\n", s.TotalRuns, s.SuccessfulRuns, s.FailedRuns)
	fmt.Fprintf(w, "Tool calls: %s\n", thousands(s.TotalToolCalls))
	fmt.Fprintf(w, "Tokens: %s input, %s output\n", thousands(s.TotalTokens.Input), thousands(s.TotalTokens.Output))
	fmt.Fprintf(w, "Bytes substituted: %s\n", thousands(s.TotalBytesSubstituted))
	fmt.Fprintf(w, "Net tokens saved: %s\n", thousands(s.TotalTokensSaved))
	fmt.Fprintf(w, "Average savings: %.1f%%\n", s.AverageSavingsPct)
	fmt.Fprintf(w, "Models: %s\n", formatList(s.ModelsUsed))
}

func printRunList(w io.Writer, entries []storage.RunEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No runs logged.")
		return
	}
	for _, e := range entries {
		status := "ok"
		if !e.Success {
			status = "FAILED"
		}
		fmt.Fprintf(w, "%s  %s  %-6s  %-28s  calls=%d copy=%d invoke=%d saved=%d\n",
			e.Label,
			e.Timestamp.Local().Format("2006-01-02 15:04:05"),
			status,
			e.Model,
			e.Statistics.TotalToolCalls,
			e.Statistics.CopyCalls,
			e.Statistics.TemplateInvokeCalls,
			e.Statistics.TokenSavings.NetTokensSaved,
		)
		fmt.Fprintf(w, "    %s\n", value.Truncate(oneLine(e.Prompt), 100))
		if e.Error != "" {
			fmt.Fprintf(w, "    error: %s\n", e.Error)
		}
	}
}

func indentJSON(v value.Value) string {
	raw := value.Encode(v)
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "   ", "  "); err != nil {
		return string(raw)
	}
	return buf.String()
}

func clip(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return value.Truncate(s, max) + "\n   (truncated)"
}

func formatList(items []string) string {
	if len(items) == 0 {
		return "(none)"
	}
	return strings.Join(items, ", ")
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// thousands formats n with comma separators.
func thousands(n int) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	digits := fmt.Sprintf("%d", n)
	var out strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			out.WriteByte(',')
		}
		out.WriteRune(d)
	}
	return sign + out.String()
}

func printScenarioOutcome(w io.Writer, e storage.RunEntry) {
	label := e.Label
	if label == "" {
		label = "-"
	}
	if !e.Success {
		fmt.Fprintf(w, "    FAILED (%s): %s\n", label, e.Error)
		return
	}
	st := e.Statistics
	fmt.Fprintf(w, "    ok (%s): calls=%d copy=%d invoke=%d tokens=%s net_saved=%s\n",
		label, st.TotalToolCalls, st.CopyCalls, st.TemplateInvokeCalls,
		thousands(st.TokenUsage.Total()), thousands(st.TokenSavings.NetTokensSaved))
}
