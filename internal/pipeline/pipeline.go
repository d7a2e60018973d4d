// Package pipeline orchestrates one translation run: batching, routing,
// translation and SLA tracking per target language.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/anshull-saxena/Cloud-Localization/internal/batcher"
	"github.com/anshull-saxena/Cloud-Localization/internal/classifier"
	"github.com/anshull-saxena/Cloud-Localization/internal/config"
	"github.com/anshull-saxena/Cloud-Localization/internal/domain"
	"github.com/anshull-saxena/Cloud-Localization/internal/infra"
	"github.com/anshull-saxena/Cloud-Localization/internal/router"
	"github.com/anshull-saxena/Cloud-Localization/internal/sla"
	"github.com/anshull-saxena/Cloud-Localization/internal/tokenizer"
)

// Request is the input for one pipeline run: the segments of a source
// file and the target languages to translate them into.
type Request struct {
	SourceLang  string           `json:"sourceLang"`
	TargetLangs []string         `json:"targetLangs"`
	Segments    []domain.Segment `json:"segments"`
}

// Translation is one translated segment in the response.
type Translation struct {
	ID         string `json:"id"`
	TargetLang string `json:"targetLang"`
	Text       string `json:"text"`
	Model      string `json:"model"`
}

// Result is the outcome of one pipeline run.
type Result struct {
	RunID        string        `json:"runId,omitempty"`
	Run          *sla.Run      `json:"run,omitempty"`
	Translations []Translation `json:"translations"`
	Failed       int           `json:"failed"`
}

// Pipeline wires the batching, routing and tracking components together.
// Construct one per process and share it across runs.
type Pipeline struct {
	cfg     *config.Config
	est     *tokenizer.Estimator
	cls     *classifier.Classifier
	batches *batcher.Batcher
	routing *router.Router
	infraRt *infra.Router
	tracker *sla.Tracker
	log     *zap.Logger
}

// New builds a Pipeline from a validated configuration.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*Pipeline, error) {
	if log == nil {
		log = zap.NewNop()
	}

	est := tokenizer.New(tokenizer.Method(cfg.Tokenizer.Method), cfg.Tokenizer.Endpoint, log)
	cls := classifier.New(est, log)

	rt, err := router.New(ctx, router.Config{
		NMT: router.NMTConfig{
			Endpoint: cfg.Routing.NMT.Endpoint,
			APIKey:   cfg.Routing.NMT.APIKey,
			Mode:     cfg.Routing.NMT.Mode,
			Function: cfg.Routing.NMT.Function,
		},
		LLM: router.LLMConfig{
			Endpoint: cfg.Routing.LLM.Endpoint,
			APIKey:   cfg.Routing.LLM.APIKey,
			Model:    cfg.Routing.LLM.Model,
		},
	}, cls, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create model router: %w", err)
	}

	return &Pipeline{
		cfg:     cfg,
		est:     est,
		cls:     cls,
		batches: batcher.New(cls, log),
		routing: rt,
		infraRt: infra.NewRouter(infra.NewLoadTracker(), cfg.Infra.ConcurrencyThreshold, cfg.Infra.TokenLoadThreshold, log),
		tracker: sla.NewTracker(log),
		log:     log,
	}, nil
}

// Run translates every segment into every target language, recording
// metrics along the way. Individual segment failures are logged and
// skipped; the run itself completes.
func (p *Pipeline) Run(ctx context.Context, req Request) (*Result, error) {
	if err := validateRequest(req); err != nil {
		return nil, err
	}

	result := &Result{Translations: []Translation{}}
	if p.cfg.SLA.Enabled {
		result.RunID = p.tracker.StartRun("", p.cfg.Snapshot())
	}

	// Batching shapes the upload; translation below is per segment.
	if p.cfg.Batching.Enabled {
		batches := p.batches.CreateBatches(req.Segments, p.cfg.Classifier.SmallThreshold, p.cfg.Batching.MaxTokens)
		stats := batcher.ComputeStats(batches)
		p.log.Info("segments batched",
			zap.Int("batches", stats.BatchCount),
			zap.Int("totalTokens", stats.TotalTokens),
			zap.Int("smallSegments", stats.SmallSegments),
			zap.Int("largeSegments", stats.LargeSegments))
		if p.cfg.Batching.MetadataPath != "" {
			if err := batcher.WriteMetadata(p.cfg.Batching.MetadataPath, batches); err != nil {
				p.log.Error("failed to export batch metadata", zap.Error(err))
			}
		}
	}

	var outcomes []router.Result
	var executions []infra.Execution

	for _, lang := range req.TargetLangs {
		langStart := time.Now()
		langSegments, langTokens := 0, 0

		for _, seg := range req.Segments {
			tokenCost := p.est.Estimate(seg.Text)

			var res router.Result
			ex, err := p.infraRt.Execute(ctx, tokenCost, p.cfg.Infra.Enabled, func(ctx context.Context) error {
				var terr error
				res, terr = p.routing.Translate(ctx, seg.Text, req.SourceLang, lang,
					p.cfg.Routing.Enabled, p.cfg.Classifier.SmallThreshold)
				return terr
			})
			executions = append(executions, ex)
			if err != nil {
				// Skip the segment; aborting the language or run is
				// the caller's call, not ours.
				p.log.Error("segment translation failed",
					zap.String("segment", seg.ID),
					zap.String("targetLang", lang),
					zap.Error(err))
				result.Failed++
				continue
			}

			outcomes = append(outcomes, res)
			result.Translations = append(result.Translations, Translation{
				ID:         seg.ID,
				TargetLang: lang,
				Text:       res.TranslatedText,
				Model:      res.Model.String(),
			})
			langSegments++
			langTokens += res.TokenCount

			if p.cfg.SLA.Enabled {
				p.tracker.AddSentenceMetric(sla.SentenceMetric{
					ID:             seg.ID,
					Preview:        seg.Text,
					TextLength:     len(seg.Text),
					TokenCount:     res.TokenCount,
					Model:          res.Model,
					Infrastructure: ex.Infrastructure,
					LatencyMs:      res.DurationMs,
					SourceLang:     req.SourceLang,
					TargetLang:     lang,
				})
			}
		}

		if p.cfg.SLA.Enabled {
			p.tracker.AddLanguageMetric(sla.LanguageMetric{
				Lang:         lang,
				Segments:     langSegments,
				TotalTokens:  langTokens,
				CompletionMs: float64(time.Since(langStart)) / float64(time.Millisecond),
			})
		}
	}

	if p.cfg.Routing.StatsPath != "" {
		if err := router.WriteStats(p.cfg.Routing.StatsPath, outcomes); err != nil {
			p.log.Error("failed to export routing stats", zap.Error(err))
		}
	}
	if p.cfg.Infra.StatsPath != "" {
		if err := infra.WriteStats(p.cfg.Infra.StatsPath, executions); err != nil {
			p.log.Error("failed to export infrastructure stats", zap.Error(err))
		}
	}

	if p.cfg.SLA.Enabled {
		result.Run = p.tracker.CompleteRun(p.cfg.SLA.DeadlineSeconds)
		if p.cfg.SLA.ReportPath != "" {
			if err := p.tracker.ExportReport(p.cfg.SLA.ReportPath,
				p.cfg.SLA.IncludeSentenceMetrics, p.cfg.SLA.IncludeLanguageMetrics); err != nil {
				p.log.Error("failed to export run report", zap.Error(err))
			}
		}
	}

	return result, nil
}

// validateRequest checks the request is runnable.
func validateRequest(req Request) error {
	if req.SourceLang == "" {
		return fmt.Errorf("sourceLang is required")
	}
	if len(req.TargetLangs) == 0 {
		return fmt.Errorf("at least one target language is required")
	}
	for _, lang := range req.TargetLangs {
		if lang == req.SourceLang {
			return fmt.Errorf("target language %q must differ from source language", lang)
		}
	}
	if req.Segments == nil {
		return fmt.Errorf("segments is required")
	}
	return nil
}
