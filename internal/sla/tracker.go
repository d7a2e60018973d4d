// Package sla accumulates per-run translation metrics and flags
// service-level-agreement violations.
package sla

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// DefaultDeadlineSeconds is the SLA deadline applied when the caller does
// not supply one.
const DefaultDeadlineSeconds = 3600.0

// previewLength caps the sentence text stored in metrics.
const previewLength = 50

// RunStatus is the lifecycle state of a run.
type RunStatus string

const (
	StatusNotStarted RunStatus = "NotStarted"
	StatusRunning    RunStatus = "Running"
	StatusCompleted  RunStatus = "Completed"
	StatusViolation  RunStatus = "Completed (SLA Violation)"
)

// SentenceMetric records a single segment's translation. Rows are never
// mutated after being appended.
type SentenceMetric struct {
	ID             string                `json:"id"`
	Preview        string                `json:"preview"`
	TextLength     int                   `json:"textLength"`
	TokenCount     int                   `json:"tokenCount"`
	Model          domain.ModelKind      `json:"model"`
	Infrastructure domain.Infrastructure `json:"infrastructure"`
	LatencyMs      float64               `json:"latencyMs"`
	SourceLang     string                `json:"sourceLang"`
	TargetLang     string                `json:"targetLang"`
	Timestamp      time.Time             `json:"timestamp"`
}

// LanguageMetric records one (run, target language) pair.
type LanguageMetric struct {
	Lang         string    `json:"lang"`
	Segments     int       `json:"segments"`
	TotalTokens  int       `json:"totalTokens"`
	CompletionMs float64   `json:"completionMs"`
	AvgLatencyMs float64   `json:"avgLatencyMs"`
	Throughput   float64   `json:"throughputPerSec"`
	Timestamp    time.Time `json:"timestamp"`
}

// Percentiles holds the latency distribution of a completed run.
type Percentiles struct {
	P50  float64 `json:"p50"`
	P95  float64 `json:"p95"`
	P99  float64 `json:"p99"`
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

// ModelUsage breaks translated sentences down by backend family.
type ModelUsage struct {
	NMT        int     `json:"nmt"`
	LLM        int     `json:"llm"`
	NMTPercent float64 `json:"nmtPercent"`
	LLMPercent float64 `json:"llmPercent"`
}

// InfraUsage breaks translated sentences down by execution target.
type InfraUsage struct {
	VM         int `json:"vm"`
	Serverless int `json:"serverless"`
	Default    int `json:"default"`
}

// Run is one pipeline execution, owned by the Tracker from StartRun until
// it is sealed by CompleteRun.
type Run struct {
	ID              string         `json:"id"`
	Status          RunStatus      `json:"status"`
	StartedAt       time.Time      `json:"startedAt"`
	CompletedAt     time.Time      `json:"completedAt,omitempty"`
	DurationSeconds float64        `json:"durationSeconds"`
	TotalSentences  int            `json:"totalSentences"`
	TotalLanguages  int            `json:"totalLanguages"`
	TotalTokens     int            `json:"totalTokens"`
	Latency         Percentiles    `json:"latency"`
	DeadlineSeconds float64        `json:"slaDeadlineSeconds"`
	SLAViolation    bool           `json:"slaViolation"`
	Throughput      float64        `json:"throughputPerSec"`
	Models          ModelUsage     `json:"modelUsage"`
	Infra           InfraUsage     `json:"infrastructureUsage"`
	Config          map[string]any `json:"config,omitempty"`

	Sentences []SentenceMetric `json:"sentenceMetrics,omitempty"`
	Languages []LanguageMetric `json:"languageMetrics,omitempty"`
}

// Tracker owns at most one active run and serializes all metric
// mutations; every method is safe to call concurrently.
type Tracker struct {
	mu  sync.Mutex
	run *Run
	now func() time.Time
	log *zap.Logger
}

// NewTracker creates a Tracker with no active run.
func NewTracker(log *zap.Logger) *Tracker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Tracker{now: time.Now, log: log}
}

// StartRun begins a new run, discarding any previous in-memory state. A
// run id is generated when id is empty. The config snapshot is stored
// verbatim in the run record for the report.
func (t *Tracker) StartRun(id string, configSnapshot map[string]any) string {
	if id == "" {
		id = uuid.NewString()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.run = &Run{
		ID:        id,
		Status:    StatusRunning,
		StartedAt: t.now(),
		Config:    configSnapshot,
	}
	t.log.Info("run started", zap.String("runId", id))
	return id
}

// AddSentenceMetric appends one sentence row and updates running totals.
// Ignored with a warning when no run is active. The preview is truncated
// before storage.
func (t *Tracker) AddSentenceMetric(m SentenceMetric) {
	// Truncation counts runes so multi-byte text survives intact.
	if runes := []rune(m.Preview); len(runes) > previewLength {
		m.Preview = string(runes[:previewLength])
	}
	if m.Timestamp.IsZero() {
		m.Timestamp = t.now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run == nil || t.run.Status != StatusRunning {
		t.log.Warn("sentence metric dropped, no active run", zap.String("id", m.ID))
		return
	}
	t.run.Sentences = append(t.run.Sentences, m)
	t.run.TotalSentences++
	t.run.TotalTokens += m.TokenCount
}

// AddLanguageMetric appends one language row, deriving the average
// latency and throughput fields, and updates the language total.
func (t *Tracker) AddLanguageMetric(m LanguageMetric) {
	if m.Timestamp.IsZero() {
		m.Timestamp = t.now()
	}
	if m.Segments > 0 && m.CompletionMs > 0 {
		m.AvgLatencyMs = m.CompletionMs / float64(m.Segments)
		m.Throughput = float64(m.Segments) / (m.CompletionMs / 1000)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run == nil || t.run.Status != StatusRunning {
		t.log.Warn("language metric dropped, no active run", zap.String("lang", m.Lang))
		return
	}
	t.run.Languages = append(t.run.Languages, m)
	t.run.TotalLanguages++
}

// CompleteRun seals the active run: records the end time, computes the
// latency percentiles and usage breakdowns, and sets the violation flag
// when the run overshot the deadline (strictly greater). A non-positive
// deadline takes the default. With no active run it warns and returns nil.
func (t *Tracker) CompleteRun(deadlineSeconds float64) *Run {
	if deadlineSeconds <= 0 {
		deadlineSeconds = DefaultDeadlineSeconds
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if t.run == nil || t.run.Status != StatusRunning {
		t.log.Warn("complete requested with no active run")
		return nil
	}

	run := t.run
	run.CompletedAt = t.now()
	run.DurationSeconds = run.CompletedAt.Sub(run.StartedAt).Seconds()
	run.DeadlineSeconds = deadlineSeconds
	run.SLAViolation = run.DurationSeconds > deadlineSeconds

	latencies := make([]float64, 0, len(run.Sentences))
	for _, m := range run.Sentences {
		latencies = append(latencies, m.LatencyMs)
	}
	run.Latency = computePercentiles(latencies)

	if run.DurationSeconds > 0 {
		run.Throughput = float64(run.TotalSentences) / run.DurationSeconds
	}

	run.Models = computeModelUsage(run.Sentences)
	run.Infra = computeInfraUsage(run.Sentences)

	run.Status = StatusCompleted
	if run.SLAViolation {
		run.Status = StatusViolation
	}

	t.log.Info("run completed",
		zap.String("runId", run.ID),
		zap.Float64("durationSeconds", run.DurationSeconds),
		zap.Int("totalSentences", run.TotalSentences),
		zap.Int("totalTokens", run.TotalTokens),
		zap.Float64("throughputPerSec", run.Throughput),
		zap.Bool("slaViolation", run.SLAViolation))

	return run
}

// computePercentiles indexes the ascending-sorted latencies with
// floor(count * p). This is intentionally not nearest-rank or
// interpolated: dashboards depend on these exact figures.
func computePercentiles(latencies []float64) Percentiles {
	if len(latencies) == 0 {
		return Percentiles{}
	}

	sorted := make([]float64, len(latencies))
	copy(sorted, latencies)
	sort.Float64s(sorted)

	at := func(p float64) float64 {
		idx := int(float64(len(sorted)) * p)
		if idx >= len(sorted) {
			idx = len(sorted) - 1
		}
		return sorted[idx]
	}

	sum := 0.0
	for _, v := range sorted {
		sum += v
	}

	return Percentiles{
		P50:  at(0.50),
		P95:  at(0.95),
		P99:  at(0.99),
		Min:  sorted[0],
		Max:  sorted[len(sorted)-1],
		Mean: sum / float64(len(sorted)),
	}
}

func computeModelUsage(sentences []SentenceMetric) ModelUsage {
	var u ModelUsage
	for _, m := range sentences {
		if m.Model.IsNMTFamily() {
			u.NMT++
		} else {
			u.LLM++
		}
	}
	if total := u.NMT + u.LLM; total > 0 {
		u.NMTPercent = 100 * float64(u.NMT) / float64(total)
		u.LLMPercent = 100 * float64(u.LLM) / float64(total)
	}
	return u
}

func computeInfraUsage(sentences []SentenceMetric) InfraUsage {
	var u InfraUsage
	for _, m := range sentences {
		switch m.Infrastructure {
		case domain.InfraVM:
			u.VM++
		case domain.InfraServerless:
			u.Serverless++
		default:
			u.Default++
		}
	}
	return u
}
