// Package tokenizer provides approximate token counting for text segments.
package tokenizer

import (
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// Method selects how tokens are counted.
type Method string

const (
	// MethodChar approximates tokens from character count (~4 chars per token).
	MethodChar Method = "char"
	// MethodAPI asks an external tokenization service; falls back to
	// MethodChar on any failure.
	MethodAPI Method = "api"
)

// apiTimeout bounds calls to the tokenization service.
const apiTimeout = 5 * time.Second

// Estimator computes approximate token counts for texts.
type Estimator struct {
	method   Method
	endpoint string
	http     *resty.Client
	log      *zap.Logger
}

// New creates an Estimator. Unknown methods are accepted here and reported
// at estimation time, where they behave as MethodChar.
func New(method Method, endpoint string, log *zap.Logger) *Estimator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Estimator{
		method:   method,
		endpoint: endpoint,
		http:     resty.New().SetTimeout(apiTimeout),
		log:      log,
	}
}

// Estimate returns the approximate token count for text.
// Empty or whitespace-only input counts as 0 tokens.
func (e *Estimator) Estimate(text string) int {
	if strings.TrimSpace(text) == "" {
		return 0
	}

	switch e.method {
	case MethodChar, "":
		return charEstimate(text)
	case MethodAPI:
		if n, ok := e.apiEstimate(text); ok {
			return n
		}
		return charEstimate(text)
	default:
		e.log.Warn("unknown tokenization method, using character estimate",
			zap.String("method", string(e.method)))
		return charEstimate(text)
	}
}

// charEstimate approximates 1 token per 4 characters, rounded up.
func charEstimate(text string) int {
	return (len(text) + 3) / 4
}

// apiEstimate asks the tokenization service for a count. Any failure
// (transport error, non-2xx, missing field) is logged and reported as
// not-ok so the caller can fall back.
func (e *Estimator) apiEstimate(text string) (int, bool) {
	if e.endpoint == "" {
		e.log.Warn("tokenizer api method selected but no endpoint configured")
		return 0, false
	}

	var result struct {
		TokenCount *int `json:"token_count"`
	}
	resp, err := e.http.R().
		SetHeader("Content-Type", "application/json").
		SetBody(map[string]string{"text": text}).
		SetResult(&result).
		Post(e.endpoint)
	if err != nil {
		e.log.Warn("tokenizer api call failed, using character estimate", zap.Error(err))
		return 0, false
	}
	if resp.IsError() {
		e.log.Warn("tokenizer api returned error status, using character estimate",
			zap.String("status", resp.Status()))
		return 0, false
	}
	if result.TokenCount == nil || *result.TokenCount < 0 {
		e.log.Warn("tokenizer api response missing token_count, using character estimate")
		return 0, false
	}
	return *result.TokenCount, true
}
