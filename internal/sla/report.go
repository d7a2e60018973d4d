package sla

import (
	"encoding/json"
	"fmt"
	"os"

	"go.uber.org/zap"
)

// ExportReport writes the most recent run (active or sealed) as a JSON
// document at path, optionally including the per-sentence and
// per-language rows, and prints a human-readable summary to stdout. With
// no run it warns and returns nil; a write failure is returned to the
// caller but leaves the in-memory run intact for a retry.
func (t *Tracker) ExportReport(path string, includeSentences, includeLanguages bool) error {
	t.mu.Lock()
	if t.run == nil {
		t.mu.Unlock()
		t.log.Warn("export requested with no run")
		return nil
	}
	// Copy under the lock: the run may still be accumulating metrics.
	report := *t.run
	report.Sentences = append([]SentenceMetric(nil), t.run.Sentences...)
	report.Languages = append([]LanguageMetric(nil), t.run.Languages...)
	t.mu.Unlock()

	if !includeSentences {
		report.Sentences = nil
	}
	if !includeLanguages {
		report.Languages = nil
	}

	data, err := json.MarshalIndent(&report, "", "  ")
	if err != nil {
		t.log.Error("failed to marshal run report", zap.Error(err))
		return fmt.Errorf("failed to marshal run report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.log.Error("failed to write run report",
			zap.String("path", path),
			zap.Error(err))
		return fmt.Errorf("failed to write run report: %w", err)
	}

	printSummary(&report)
	return nil
}

// printSummary writes the operator-facing run summary to stdout.
func printSummary(run *Run) {
	fmt.Printf("Run %s [%s]\n", run.ID, run.Status)
	fmt.Printf("  Duration:    %.2fs (deadline %.0fs)\n", run.DurationSeconds, run.DeadlineSeconds)
	fmt.Printf("  Sentences:   %d across %d languages\n", run.TotalSentences, run.TotalLanguages)
	fmt.Printf("  Tokens:      %d\n", run.TotalTokens)
	fmt.Printf("  Throughput:  %.2f sentences/sec\n", run.Throughput)
	fmt.Printf("  Latency ms:  p50=%.1f p95=%.1f p99=%.1f min=%.1f max=%.1f mean=%.1f\n",
		run.Latency.P50, run.Latency.P95, run.Latency.P99,
		run.Latency.Min, run.Latency.Max, run.Latency.Mean)
	fmt.Printf("  Models:      NMT %d (%.1f%%), LLM %d (%.1f%%)\n",
		run.Models.NMT, run.Models.NMTPercent, run.Models.LLM, run.Models.LLMPercent)
	fmt.Printf("  Infra:       VM %d, Serverless %d, Default %d\n",
		run.Infra.VM, run.Infra.Serverless, run.Infra.Default)
	if run.SLAViolation {
		fmt.Printf("  SLA:         VIOLATED (ran %.2fs over)\n", run.DurationSeconds-run.DeadlineSeconds)
	} else {
		fmt.Printf("  SLA:         met\n")
	}
}
