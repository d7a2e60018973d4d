package batcher

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/anshull-saxena/Cloud-Localization/internal/classifier"
)

// Stats summarizes a finalized batch sequence. All fields are derived in a
// single pass; computing them does not modify the batches.
type Stats struct {
	BatchCount int `json:"batchCount"`

	TotalTokens   int     `json:"totalTokens"`
	AvgTokens     float64 `json:"avgTokensPerBatch"`
	MinTokens     int     `json:"minTokensPerBatch"`
	MaxTokens     int     `json:"maxTokensPerBatch"`
	TotalSegments int     `json:"totalSegments"`
	AvgSegments   float64 `json:"avgSegmentsPerBatch"`
	MinSegments   int     `json:"minSegmentsPerBatch"`
	MaxSegments   int     `json:"maxSegmentsPerBatch"`

	SmallSegments int `json:"smallSegments"`
	LargeSegments int `json:"largeSegments"`
}

// ComputeStats derives aggregate statistics from a batch sequence.
func ComputeStats(batches []Batch) Stats {
	s := Stats{BatchCount: len(batches)}
	if len(batches) == 0 {
		return s
	}

	s.MinTokens = batches[0].TotalTokens
	s.MinSegments = batches[0].SegmentCount()

	for _, b := range batches {
		s.TotalTokens += b.TotalTokens
		s.TotalSegments += b.SegmentCount()

		if b.TotalTokens < s.MinTokens {
			s.MinTokens = b.TotalTokens
		}
		if b.TotalTokens > s.MaxTokens {
			s.MaxTokens = b.TotalTokens
		}
		if b.SegmentCount() < s.MinSegments {
			s.MinSegments = b.SegmentCount()
		}
		if b.SegmentCount() > s.MaxSegments {
			s.MaxSegments = b.SegmentCount()
		}

		for _, m := range b.Segments {
			if m.Characterization.Size == classifier.SizeSmall {
				s.SmallSegments++
			} else {
				s.LargeSegments++
			}
		}
	}

	s.AvgTokens = float64(s.TotalTokens) / float64(s.BatchCount)
	s.AvgSegments = float64(s.TotalSegments) / float64(s.BatchCount)
	return s
}

// metadata is the on-disk shape written by WriteMetadata.
type metadata struct {
	BatchCount int            `json:"batchCount"`
	Batches    []batchSummary `json:"batches"`
	Stats      Stats          `json:"stats"`
}

type batchSummary struct {
	ID           int `json:"id"`
	TotalTokens  int `json:"totalTokens"`
	SegmentCount int `json:"segmentCount"`
}

// WriteMetadata exports batch counts, per-batch totals and aggregate
// statistics as a JSON document at path.
func WriteMetadata(path string, batches []Batch) error {
	meta := metadata{
		BatchCount: len(batches),
		Batches:    make([]batchSummary, 0, len(batches)),
		Stats:      ComputeStats(batches),
	}
	for _, b := range batches {
		meta.Batches = append(meta.Batches, batchSummary{
			ID:           b.ID,
			TotalTokens:  b.TotalTokens,
			SegmentCount: b.SegmentCount(),
		})
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal batch metadata: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write batch metadata: %w", err)
	}
	return nil
}
