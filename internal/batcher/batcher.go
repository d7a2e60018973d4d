// Package batcher groups classified segments into token-budget-bounded batches.
package batcher

import (
	"time"

	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/classifier"
	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// DefaultMaxTokens is the default token budget per batch.
const DefaultMaxTokens = 1000

// Budget bounds outside of which a warning is logged. Both are advisory:
// the budget is still honored as given.
const (
	minAdvisableBudget = 10
	maxAdvisableBudget = 100000
)

// Member is a segment annotated with its characterization, as it appears
// inside a batch.
type Member struct {
	domain.Segment
	Characterization classifier.Characterization `json:"characterization"`
}

// Batch is an ordered group of segments assigned to one outbound call.
// Segment order is insertion order and is never rearranged. Its total
// token count stays within the configured budget unless the batch holds a
// single segment whose own count exceeds it (segments are never split).
type Batch struct {
	ID          int       `json:"id"`
	Segments    []Member  `json:"segments"`
	TotalTokens int       `json:"totalTokens"`
	CreatedAt   time.Time `json:"createdAt"`
	SealedAt    time.Time `json:"sealedAt"`
}

// SegmentCount returns the number of segments in the batch.
func (b *Batch) SegmentCount() int {
	return len(b.Segments)
}

// Batcher groups segments into batches using a classifier for token counts.
type Batcher struct {
	cls *classifier.Classifier
	log *zap.Logger
}

// New creates a Batcher.
func New(cls *classifier.Classifier, log *zap.Logger) *Batcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Batcher{cls: cls, log: log}
}

// CreateBatches groups segments in input order into batches whose token
// totals stay within maxTokens. Each segment is kept whole: a segment
// whose own token count exceeds the budget gets its own batch. Batch IDs
// are sequential starting at 1 in sealing order. An empty input yields an
// empty batch list.
func (b *Batcher) CreateBatches(segments []domain.Segment, smallThreshold, maxTokens int) []Batch {
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}
	if maxTokens < minAdvisableBudget {
		b.log.Warn("batch token budget is very small and will likely produce excessive batch counts",
			zap.Int("maxTokens", maxTokens))
	}
	if maxTokens > maxAdvisableBudget {
		b.log.Warn("batch token budget is very large and risks request timeouts",
			zap.Int("maxTokens", maxTokens))
	}
	if len(segments) == 0 {
		return nil
	}

	var batches []Batch
	current := newBatch(len(batches) + 1)

	for _, seg := range segments {
		ch, err := b.cls.Classify(seg.Text, smallThreshold)
		if err != nil {
			b.log.Warn("skipping segment that failed classification",
				zap.String("segment", seg.ID),
				zap.Error(err))
			continue
		}

		// Seal the open batch when the next segment would break the
		// budget. A still-empty batch accepts the segment regardless,
		// which is how an oversized segment ends up alone.
		if current.TotalTokens+ch.TokenCount > maxTokens && len(current.Segments) > 0 {
			batches = append(batches, seal(current))
			current = newBatch(len(batches) + 1)
		}

		current.Segments = append(current.Segments, Member{Segment: seg, Characterization: ch})
		current.TotalTokens += ch.TokenCount
	}

	if len(current.Segments) > 0 {
		batches = append(batches, seal(current))
	}

	return batches
}

func newBatch(id int) Batch {
	return Batch{ID: id, CreatedAt: time.Now()}
}

func seal(b Batch) Batch {
	b.SealedAt = time.Now()
	return b
}
