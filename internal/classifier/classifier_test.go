package classifier

import (
	"strings"
	"testing"

	"github.com/anshull-saxena/Cloud-Localization/internal/tokenizer"
)

func newTestClassifier() *Classifier {
	return New(tokenizer.New(tokenizer.MethodChar, "", nil), nil)
}

func TestClassify(t *testing.T) {
	c := newTestClassifier()

	tests := []struct {
		name           string
		text           string
		threshold      int
		expectedTokens int
		expectedSize   Size
	}{
		{
			name:           "short text is small",
			text:           "Hi",
			threshold:      100,
			expectedTokens: 1,
			expectedSize:   SizeSmall,
		},
		{
			name:           "long text is large",
			text:           strings.Repeat("x", 600),
			threshold:      100,
			expectedTokens: 150,
			expectedSize:   SizeLarge,
		},
		{
			name:           "exactly at threshold is small",
			text:           strings.Repeat("x", 40), // 10 tokens
			threshold:      10,
			expectedTokens: 10,
			expectedSize:   SizeSmall,
		},
		{
			name:           "one over threshold is large",
			text:           strings.Repeat("x", 44), // 11 tokens
			threshold:      10,
			expectedTokens: 11,
			expectedSize:   SizeLarge,
		},
		{
			name:           "empty text is small",
			text:           "",
			threshold:      0,
			expectedTokens: 0,
			expectedSize:   SizeSmall,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch, err := c.Classify(tt.text, tt.threshold)
			if err != nil {
				t.Fatalf("Classify() unexpected error: %v", err)
			}
			if ch.TokenCount != tt.expectedTokens {
				t.Errorf("TokenCount = %d, want %d", ch.TokenCount, tt.expectedTokens)
			}
			if ch.Size != tt.expectedSize {
				t.Errorf("Size = %q, want %q", ch.Size, tt.expectedSize)
			}
			if ch.Threshold != tt.threshold {
				t.Errorf("Threshold = %d, want %d", ch.Threshold, tt.threshold)
			}
		})
	}
}

func TestClassify_NegativeThreshold(t *testing.T) {
	c := newTestClassifier()

	if _, err := c.Classify("text", -1); err == nil {
		t.Error("Classify() with negative threshold should return error")
	}
}

func TestClassify_Idempotent(t *testing.T) {
	c := newTestClassifier()

	first, err := c.Classify("some repeated text", 5)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}
	second, err := c.Classify("some repeated text", 5)
	if err != nil {
		t.Fatalf("Classify() error: %v", err)
	}

	if first.TokenCount != second.TokenCount {
		t.Errorf("TokenCount differs across calls: %d vs %d", first.TokenCount, second.TokenCount)
	}
	if first.Size != second.Size {
		t.Errorf("Size differs across calls: %q vs %q", first.Size, second.Size)
	}
}

func TestClassifyAll_PreservesOrder(t *testing.T) {
	c := newTestClassifier()

	texts := []string{"a", strings.Repeat("b", 100), "c", strings.Repeat("d", 200)}
	results := c.ClassifyAll(texts, 10)

	if len(results) != len(texts) {
		t.Fatalf("ClassifyAll() returned %d results, want %d", len(results), len(texts))
	}
	for i, r := range results {
		if r.Index != i {
			t.Errorf("result %d has index %d, want %d", i, r.Index, i)
		}
	}
	if results[0].Size != SizeSmall || results[1].Size != SizeLarge {
		t.Errorf("unexpected sizes: %q, %q", results[0].Size, results[1].Size)
	}
}
