// Package classifier tags text segments as small or large by token count.
package classifier

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/tokenizer"
)

// Size is the classification of a segment relative to the small threshold.
type Size string

const (
	SizeSmall Size = "small"
	SizeLarge Size = "large"
)

// Characterization is an immutable derived view of a segment.
type Characterization struct {
	TokenCount int       `json:"tokenCount"`
	Size       Size      `json:"size"`
	Threshold  int       `json:"threshold"`
	Timestamp  time.Time `json:"timestamp"`
}

// Classifier classifies texts using a token estimator.
type Classifier struct {
	est *tokenizer.Estimator
	log *zap.Logger
}

// New creates a Classifier.
func New(est *tokenizer.Estimator, log *zap.Logger) *Classifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &Classifier{est: est, log: log}
}

// Classify computes the token count for text and tags it small when the
// count is at or below smallThreshold, large otherwise. The comparison is
// inclusive on the small side: a count equal to the threshold is small.
func (c *Classifier) Classify(text string, smallThreshold int) (Characterization, error) {
	if smallThreshold < 0 {
		return Characterization{}, fmt.Errorf("small threshold must be non-negative, got %d", smallThreshold)
	}

	tokens := c.est.Estimate(text)
	size := SizeLarge
	if tokens <= smallThreshold {
		size = SizeSmall
	}

	return Characterization{
		TokenCount: tokens,
		Size:       size,
		Threshold:  smallThreshold,
		Timestamp:  time.Now(),
	}, nil
}

// ClassifyAll classifies an ordered sequence of texts, preserving input
// order. Entries that fail to classify are skipped with a warning rather
// than failing the whole batch; the returned slice pairs each surviving
// characterization with its original index.
func (c *Classifier) ClassifyAll(texts []string, smallThreshold int) []IndexedCharacterization {
	out := make([]IndexedCharacterization, 0, len(texts))
	for i, text := range texts {
		ch, err := c.Classify(text, smallThreshold)
		if err != nil {
			c.log.Warn("skipping unclassifiable text",
				zap.Int("index", i),
				zap.Error(err))
			continue
		}
		out = append(out, IndexedCharacterization{Index: i, Characterization: ch})
	}
	return out
}

// IndexedCharacterization ties a characterization back to its position in
// the input sequence passed to ClassifyAll.
type IndexedCharacterization struct {
	Index int
	Characterization
}
