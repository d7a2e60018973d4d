// Package router decides which translation backend handles a segment and
// invokes it, falling back from LLM to NMT on failure.
package router

import (
	"context"
	"fmt"
	"time"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	lambdasdk "github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/classifier"
	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
)

// Backend call timeouts.
const (
	nmtTimeout = 30 * time.Second
	llmTimeout = 60 * time.Second
)

// Decision is the outcome of routing one characterized segment.
type Decision struct {
	Model      domain.ModelKind `json:"model"`
	Reason     string           `json:"reason"`
	Size       classifier.Size  `json:"size"`
	TokenCount int              `json:"tokenCount"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Route picks the backend for a characterization: NMT for small segments,
// LLM for large ones. Pure function of the size category.
func Route(ch classifier.Characterization) Decision {
	model := domain.ModelNMT
	if ch.Size == classifier.SizeLarge {
		model = domain.ModelLLM
	}
	return Decision{
		Model:      model,
		Reason:     fmt.Sprintf("%s sentence (%d tokens), routed to %s", ch.Size, ch.TokenCount, model),
		Size:       ch.Size,
		TokenCount: ch.TokenCount,
		Timestamp:  time.Now(),
	}
}

// Result is one completed translation attempt with its routing metadata.
type Result struct {
	TranslatedText string           `json:"translatedText"`
	Model          domain.ModelKind `json:"model"`
	Decision       Decision         `json:"decision"`
	DurationMs     float64          `json:"durationMs"`
	TokenCount     int              `json:"tokenCount"`
	SourceLang     string           `json:"sourceLang"`
	TargetLang     string           `json:"targetLang"`
	Timestamp      time.Time        `json:"timestamp"`
}

// Router translates segments through the NMT and LLM backends.
type Router struct {
	cfg    Config
	cls    *classifier.Classifier
	nmt    *resty.Client
	llm    *resty.Client
	lambda lambdaInvoker
	log    *zap.Logger
}

// New creates a Router. When the NMT backend is configured in lambda mode
// the default AWS configuration is loaded to build the invoker.
func New(ctx context.Context, cfg Config, cls *classifier.Classifier, log *zap.Logger) (*Router, error) {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Router{
		cfg: cfg,
		cls: cls,
		nmt: resty.New().SetTimeout(nmtTimeout),
		llm: resty.New().SetTimeout(llmTimeout),
		log: log,
	}
	if cfg.NMT.Mode == NMTModeLambda {
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		r.lambda = lambdasdk.NewFromConfig(awsCfg)
	}
	return r, nil
}

// Translate classifies text, routes it, and invokes the chosen backend.
// With routing disabled every segment goes to NMT regardless of size.
// An LLM failure (including missing LLM configuration) triggers exactly
// one retry against NMT, reported as NMT (fallback); that retry's own
// failure propagates. A primary NMT failure propagates with no retry.
// Duration covers the whole attempt including any fallback.
func (r *Router) Translate(ctx context.Context, text, sourceLang, targetLang string, routingEnabled bool, smallThreshold int) (Result, error) {
	start := time.Now()

	ch, err := r.cls.Classify(text, smallThreshold)
	if err != nil {
		return Result{}, fmt.Errorf("classification failed: %w", err)
	}

	var decision Decision
	if routingEnabled {
		decision = Route(ch)
	} else {
		decision = Decision{
			Model:      domain.ModelNMT,
			Reason:     "routing disabled, defaulting to NMT",
			Size:       ch.Size,
			TokenCount: ch.TokenCount,
			Timestamp:  time.Now(),
		}
	}

	nmtCall := func(ctx context.Context) (string, error) {
		return r.translateNMT(ctx, text, sourceLang, targetLang)
	}

	model := decision.Model
	var translated string
	switch decision.Model {
	case domain.ModelLLM:
		llmCall := func(ctx context.Context) (string, error) {
			return r.translateLLM(ctx, text, targetLang)
		}
		var fellBack bool
		translated, fellBack, err = orElse(ctx, llmCall, nmtCall, func(llmErr error) {
			r.log.Warn("llm translation failed, falling back to nmt",
				zap.String("targetLang", targetLang),
				zap.Error(llmErr))
		})
		if err != nil {
			return Result{}, fmt.Errorf("nmt fallback failed: %w", err)
		}
		if fellBack {
			model = domain.ModelNMTFallback
		}
	default:
		translated, err = nmtCall(ctx)
		if err != nil {
			return Result{}, fmt.Errorf("nmt translation failed: %w", err)
		}
	}

	return Result{
		TranslatedText: translated,
		Model:          model,
		Decision:       decision,
		DurationMs:     float64(time.Since(start)) / float64(time.Millisecond),
		TokenCount:     ch.TokenCount,
		SourceLang:     sourceLang,
		TargetLang:     targetLang,
		Timestamp:      time.Now(),
	}, nil
}

// attempt is one backend invocation.
type attempt func(context.Context) (string, error)

// orElse runs primary and, if it fails, runs fallback exactly once after
// reporting the primary error through onFallback. The fallback's own error
// is returned unmasked; there is no further retry. The second return value
// reports whether the fallback produced the result.
func orElse(ctx context.Context, primary, fallback attempt, onFallback func(error)) (string, bool, error) {
	out, err := primary(ctx)
	if err == nil {
		return out, false, nil
	}
	onFallback(err)
	out, err = fallback(ctx)
	return out, true, err
}
