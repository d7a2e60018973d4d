package sla

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// fixedClockTracker returns a tracker whose clock the test controls.
func fixedClockTracker(start time.Time) (*Tracker, *time.Time) {
	now := start
	t := NewTracker(nil)
	t.now = func() time.Time { return now }
	return t, &now
}

func TestStartRun_GeneratesID(t *testing.T) {
	tr := NewTracker(nil)

	id := tr.StartRun("", nil)
	if id == "" {
		t.Error("StartRun() should generate an id when none is given")
	}

	explicit := tr.StartRun("run-42", nil)
	if explicit != "run-42" {
		t.Errorf("StartRun() = %q, want %q", explicit, "run-42")
	}
}

func TestStartRun_ResetsState(t *testing.T) {
	tr := NewTracker(nil)

	tr.StartRun("first", nil)
	tr.AddSentenceMetric(SentenceMetric{ID: "s1", TokenCount: 10, LatencyMs: 100})
	tr.StartRun("second", nil)

	run := tr.CompleteRun(3600)
	if run == nil {
		t.Fatal("CompleteRun() returned nil for active run")
	}
	if run.TotalSentences != 0 || len(run.Sentences) != 0 {
		t.Errorf("second run inherited metrics: %d sentences", run.TotalSentences)
	}
}

func TestAddSentenceMetric(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	longText := strings.Repeat("a", 80)
	tr.AddSentenceMetric(SentenceMetric{
		ID:         "s1",
		Preview:    longText,
		TextLength: len(longText),
		TokenCount: 20,
		Model:      domain.ModelNMT,
		LatencyMs:  120,
	})
	tr.AddSentenceMetric(SentenceMetric{ID: "s2", TokenCount: 30, Model: domain.ModelLLM, LatencyMs: 800})

	run := tr.CompleteRun(3600)
	if run.TotalSentences != 2 {
		t.Errorf("TotalSentences = %d, want 2", run.TotalSentences)
	}
	if run.TotalTokens != 50 {
		t.Errorf("TotalTokens = %d, want 50", run.TotalTokens)
	}
	if got := len(run.Sentences[0].Preview); got != 50 {
		t.Errorf("preview length = %d, want truncated to 50", got)
	}
}

func TestAddSentenceMetric_PreviewTruncatesOnRunes(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	// 80 three-byte runes; a byte cut at 50 would split one mid-sequence.
	tr.AddSentenceMetric(SentenceMetric{ID: "s1", Preview: strings.Repeat("観", 80)})

	run := tr.CompleteRun(3600)
	preview := run.Sentences[0].Preview
	if got := utf8.RuneCountInString(preview); got != 50 {
		t.Errorf("preview rune count = %d, want 50", got)
	}
	if !utf8.ValidString(preview) {
		t.Error("truncated preview is not valid UTF-8")
	}
}

func TestAddSentenceMetric_NoActiveRun(t *testing.T) {
	tr := NewTracker(nil)
	// Must not panic, just warn.
	tr.AddSentenceMetric(SentenceMetric{ID: "s1"})
}

func TestAddLanguageMetric_Derivations(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	tr.AddLanguageMetric(LanguageMetric{
		Lang:         "fr-FR",
		Segments:     10,
		TotalTokens:  500,
		CompletionMs: 2000,
	})

	run := tr.CompleteRun(3600)
	if run.TotalLanguages != 1 {
		t.Errorf("TotalLanguages = %d, want 1", run.TotalLanguages)
	}
	m := run.Languages[0]
	if m.AvgLatencyMs != 200 {
		t.Errorf("AvgLatencyMs = %v, want 200", m.AvgLatencyMs)
	}
	if m.Throughput != 5 {
		t.Errorf("Throughput = %v, want 5 segments/sec", m.Throughput)
	}
}

func TestCompleteRun_NoActiveRun(t *testing.T) {
	tr := NewTracker(nil)
	if run := tr.CompleteRun(3600); run != nil {
		t.Errorf("CompleteRun() with no run = %+v, want nil", run)
	}
}

func TestCompleteRun_CalledTwice(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	if run := tr.CompleteRun(3600); run == nil {
		t.Fatal("first CompleteRun() returned nil")
	}
	if run := tr.CompleteRun(3600); run != nil {
		t.Error("second CompleteRun() should be a no-op returning nil")
	}
}

func TestCompleteRun_SLAViolation(t *testing.T) {
	tests := []struct {
		name            string
		durationSeconds float64
		deadlineSeconds float64
		expectViolation bool
	}{
		{
			name:            "over deadline violates",
			durationSeconds: 3601,
			deadlineSeconds: 3600,
			expectViolation: true,
		},
		{
			name:            "exactly at deadline does not violate",
			durationSeconds: 3600,
			deadlineSeconds: 3600,
			expectViolation: false,
		},
		{
			name:            "under deadline does not violate",
			durationSeconds: 10,
			deadlineSeconds: 3600,
			expectViolation: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			tr, now := fixedClockTracker(start)

			tr.StartRun("run", nil)
			*now = start.Add(time.Duration(tt.durationSeconds * float64(time.Second)))

			run := tr.CompleteRun(tt.deadlineSeconds)
			if run.SLAViolation != tt.expectViolation {
				t.Errorf("SLAViolation = %v, want %v (duration %vs, deadline %vs)",
					run.SLAViolation, tt.expectViolation, tt.durationSeconds, tt.deadlineSeconds)
			}
			wantStatus := StatusCompleted
			if tt.expectViolation {
				wantStatus = StatusViolation
			}
			if run.Status != wantStatus {
				t.Errorf("Status = %q, want %q", run.Status, wantStatus)
			}
		})
	}
}

func TestComputePercentiles(t *testing.T) {
	p := computePercentiles([]float64{500, 100, 300, 200, 400})

	// index = floor(count * p): floor(5*0.5)=2 -> 300 in sorted order.
	if p.P50 != 300 {
		t.Errorf("P50 = %v, want 300", p.P50)
	}
	// floor(5*0.95)=4 -> 500.
	if p.P95 != 500 {
		t.Errorf("P95 = %v, want 500", p.P95)
	}
	if p.P99 != 500 {
		t.Errorf("P99 = %v, want 500", p.P99)
	}
	if p.Min != 100 || p.Max != 500 || p.Mean != 300 {
		t.Errorf("min/max/mean = %v/%v/%v, want 100/500/300", p.Min, p.Max, p.Mean)
	}
}

func TestComputePercentiles_Empty(t *testing.T) {
	p := computePercentiles(nil)
	if p.P50 != 0 || p.P95 != 0 || p.P99 != 0 || p.Min != 0 || p.Max != 0 || p.Mean != 0 {
		t.Errorf("empty percentiles not all zero: %+v", p)
	}
}

func TestCompleteRun_UsageBreakdowns(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	tr.AddSentenceMetric(SentenceMetric{ID: "s1", Model: domain.ModelNMT, Infrastructure: domain.InfraServerless})
	tr.AddSentenceMetric(SentenceMetric{ID: "s2", Model: domain.ModelNMTFallback, Infrastructure: domain.InfraVM})
	tr.AddSentenceMetric(SentenceMetric{ID: "s3", Model: domain.ModelLLM, Infrastructure: domain.InfraVM})
	tr.AddSentenceMetric(SentenceMetric{ID: "s4", Model: domain.ModelLLM, Infrastructure: domain.InfraDefault})

	run := tr.CompleteRun(3600)
	// NMT family counts the plain and fallback outcomes together.
	if run.Models.NMT != 2 || run.Models.LLM != 2 {
		t.Errorf("model usage NMT/LLM = %d/%d, want 2/2", run.Models.NMT, run.Models.LLM)
	}
	if run.Models.NMTPercent != 50 || run.Models.LLMPercent != 50 {
		t.Errorf("model percentages = %v/%v, want 50/50", run.Models.NMTPercent, run.Models.LLMPercent)
	}
	if run.Infra.VM != 2 || run.Infra.Serverless != 1 || run.Infra.Default != 1 {
		t.Errorf("infra usage = %+v, want VM 2, Serverless 1, Default 1", run.Infra)
	}
}

func TestTracker_ConcurrentAdds(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.AddSentenceMetric(SentenceMetric{
				ID:         fmt.Sprintf("s%d", n),
				TokenCount: 1,
				LatencyMs:  float64(n),
			})
		}(i)
	}
	wg.Wait()

	run := tr.CompleteRun(3600)
	if run.TotalSentences != 100 {
		t.Errorf("TotalSentences = %d, want 100", run.TotalSentences)
	}
	if run.TotalTokens != 100 {
		t.Errorf("TotalTokens = %d, want 100", run.TotalTokens)
	}
}

func TestExportReport(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("report-run", map[string]any{"batching.enabled": true})
	tr.AddSentenceMetric(SentenceMetric{ID: "s1", TokenCount: 5, Model: domain.ModelNMT, LatencyMs: 100})
	tr.AddLanguageMetric(LanguageMetric{Lang: "de-DE", Segments: 1, TotalTokens: 5, CompletionMs: 100})
	tr.CompleteRun(3600)

	path := filepath.Join(t.TempDir(), "report.json")
	if err := tr.ExportReport(path, true, true); err != nil {
		t.Fatalf("ExportReport() error: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("reading report: %v", err)
	}
	var report struct {
		ID        string `json:"id"`
		Status    string `json:"status"`
		Sentences []any  `json:"sentenceMetrics"`
		Languages []any  `json:"languageMetrics"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshalling report: %v", err)
	}
	if report.ID != "report-run" {
		t.Errorf("report id = %q, want %q", report.ID, "report-run")
	}
	if report.Status != string(StatusCompleted) {
		t.Errorf("report status = %q, want %q", report.Status, StatusCompleted)
	}
	if len(report.Sentences) != 1 || len(report.Languages) != 1 {
		t.Errorf("report rows sentences/languages = %d/%d, want 1/1", len(report.Sentences), len(report.Languages))
	}
}

func TestExportReport_ExcludesDetail(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)
	tr.AddSentenceMetric(SentenceMetric{ID: "s1", TokenCount: 5, LatencyMs: 10})
	tr.CompleteRun(3600)

	path := filepath.Join(t.TempDir(), "report.json")
	if err := tr.ExportReport(path, false, false); err != nil {
		t.Fatalf("ExportReport() error: %v", err)
	}

	data, _ := os.ReadFile(path)
	var report struct {
		Sentences      []any `json:"sentenceMetrics"`
		TotalSentences int   `json:"totalSentences"`
	}
	if err := json.Unmarshal(data, &report); err != nil {
		t.Fatalf("unmarshalling report: %v", err)
	}
	if len(report.Sentences) != 0 {
		t.Errorf("report should omit sentence rows, got %d", len(report.Sentences))
	}
	if report.TotalSentences != 1 {
		t.Errorf("totals must survive detail exclusion, got %d", report.TotalSentences)
	}
}

func TestExportReport_DuringActiveRun(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("live", nil)

	dir := t.TempDir()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			tr.AddSentenceMetric(SentenceMetric{ID: fmt.Sprintf("s%d", n), TokenCount: 1, LatencyMs: 10})
			path := filepath.Join(dir, fmt.Sprintf("report-%d.json", n))
			if err := tr.ExportReport(path, true, true); err != nil {
				t.Errorf("ExportReport() during active run: %v", err)
			}
		}(i)
	}
	wg.Wait()

	run := tr.CompleteRun(3600)
	if run.TotalSentences != 20 {
		t.Errorf("TotalSentences = %d, want 20", run.TotalSentences)
	}
}

func TestExportReport_NoRun(t *testing.T) {
	tr := NewTracker(nil)
	if err := tr.ExportReport(filepath.Join(t.TempDir(), "report.json"), true, true); err != nil {
		t.Errorf("ExportReport() with no run should be a warning no-op, got %v", err)
	}
}

func TestExportReport_WriteFailureKeepsRun(t *testing.T) {
	tr := NewTracker(nil)
	tr.StartRun("run", nil)
	tr.CompleteRun(3600)

	badPath := filepath.Join(t.TempDir(), "missing", "report.json")
	if err := tr.ExportReport(badPath, true, true); err == nil {
		t.Fatal("ExportReport() to unwritable path should return error")
	}

	// The run must survive the failed export for a retry.
	goodPath := filepath.Join(t.TempDir(), "report.json")
	if err := tr.ExportReport(goodPath, true, true); err != nil {
		t.Errorf("retry ExportReport() error: %v", err)
	}
}
