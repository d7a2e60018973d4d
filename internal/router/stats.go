package router

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// Stats summarizes a sequence of completed routing outcomes in one pass.
type Stats struct {
	Total int `json:"total"`

	NMT      int `json:"nmt"`
	LLM      int `json:"llm"`
	Fallback int `json:"nmtFallback"`

	NMTPercent      float64 `json:"nmtPercent"`
	LLMPercent      float64 `json:"llmPercent"`
	FallbackPercent float64 `json:"nmtFallbackPercent"`

	AvgDurationMs float64 `json:"avgDurationMs"`
	AvgTokens     float64 `json:"avgTokens"`
}

// ComputeStats derives routing statistics from completed results.
func ComputeStats(results []Result) Stats {
	s := Stats{Total: len(results)}
	if len(results) == 0 {
		return s
	}

	var durationSum, tokenSum float64
	for _, r := range results {
		switch r.Model {
		case domain.ModelLLM:
			s.LLM++
		case domain.ModelNMTFallback:
			s.Fallback++
		default:
			s.NMT++
		}
		durationSum += r.DurationMs
		tokenSum += float64(r.TokenCount)
	}

	total := float64(s.Total)
	s.NMTPercent = 100 * float64(s.NMT) / total
	s.LLMPercent = 100 * float64(s.LLM) / total
	s.FallbackPercent = 100 * float64(s.Fallback) / total
	s.AvgDurationMs = durationSum / total
	s.AvgTokens = tokenSum / total
	return s
}

// WriteStats exports routing statistics as a JSON document at path.
func WriteStats(path string, results []Result) error {
	data, err := json.MarshalIndent(ComputeStats(results), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal routing stats: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write routing stats: %w", err)
	}
	return nil
}
