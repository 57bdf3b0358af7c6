// Package orchestrator drives one wallpaper run: for every category it gathers
// candidate URLs, processes each one, records successes in the manifest and
// saves the manifest once at the end.
package orchestrator

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/birdwall/internal/asset"
	"github.com/JakeFAU/birdwall/internal/catalog"
	"github.com/JakeFAU/birdwall/internal/metrics"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// CandidateSource yields the URLs to process for a keyword.
type CandidateSource interface {
	Candidates(ctx context.Context, keyword string) ([]string, error)
}

// Index is the manifest surface the run mutates.
type Index interface {
	EnsureCategory(name string)
	Append(name string, record wallpaper.Record)
	Save() error
}

// Config controls pacing.
type Config struct {
	// Throttle is slept after every per-URL operation, success or failure.
	Throttle time.Duration
}

// CategorySummary counts outcomes for one category.
type CategorySummary struct {
	Name       string
	Candidates int
	Succeeded  int
	Failed     int
}

// Summary describes a finished run.
type Summary struct {
	RunID      string
	Categories []CategorySummary
	Duration   time.Duration
	Saved      bool
}

// Succeeded totals successful assets across categories.
func (s Summary) Succeeded() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Succeeded
	}
	return n
}

// Failed totals failed assets across categories.
func (s Summary) Failed() int {
	n := 0
	for _, c := range s.Categories {
		n += c.Failed
	}
	return n
}

// Orchestrator runs the per-category, per-URL loop.
type Orchestrator struct {
	catalog    catalog.Catalog
	source     CandidateSource
	processor  wallpaper.AssetProcessor
	index      Index
	clock      wallpaper.Clock
	ids        wallpaper.IDGenerator
	cfg        Config
	logger     *zap.Logger
}

// New constructs an Orchestrator.
func New(
	cat catalog.Catalog,
	source CandidateSource,
	processor wallpaper.AssetProcessor,
	index Index,
	clock wallpaper.Clock,
	ids wallpaper.IDGenerator,
	cfg Config,
	logger *zap.Logger,
) *Orchestrator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Orchestrator{
		catalog:    cat,
		source:     source,
		processor:  processor,
		index:      index,
		clock:      clock,
		ids:        ids,
		cfg:        cfg,
		logger:     logger,
	}
}

// Run processes every category in order. Search failures and cancellation
// abort the run and leave the manifest on disk untouched; per-asset failures
// are logged and skipped.
func (o *Orchestrator) Run(ctx context.Context) (Summary, error) {
	start := o.clock.Now()
	runID, err := o.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := o.logger.With(zap.String("run_id", runID))
	ctx = asset.WithRunID(ctx, runID)
	summary := Summary{RunID: runID}

	logger.Info("run started", zap.Int("categories", o.catalog.Len()))
	for _, category := range o.catalog.Categories() {
		cs, err := o.runCategory(ctx, logger, category)
		summary.Categories = append(summary.Categories, cs)
		if err != nil {
			summary.Duration = o.clock.Now().Sub(start)
			metrics.ObserveRun(summary.Duration, o.clock.Now(), false)
			logger.Error("run aborted, manifest not saved", zap.String("category", category.Name), zap.Error(err))
			return summary, err
		}
	}

	if err := o.index.Save(); err != nil {
		summary.Duration = o.clock.Now().Sub(start)
		metrics.ObserveRun(summary.Duration, o.clock.Now(), false)
		return summary, fmt.Errorf("save manifest: %w", err)
	}
	finished := o.clock.Now()
	summary.Saved = true
	summary.Duration = finished.Sub(start)
	metrics.ObserveRun(summary.Duration, finished, true)

	logger.Info("run finished",
		zap.Int("succeeded", summary.Succeeded()),
		zap.Int("failed", summary.Failed()),
		zap.Duration("duration", summary.Duration),
	)
	return summary, nil
}

func (o *Orchestrator) runCategory(ctx context.Context, logger *zap.Logger, category wallpaper.Category) (CategorySummary, error) {
	cs := CategorySummary{Name: category.Name}
	logger = logger.With(zap.String("category", category.Name))

	urls, err := o.source.Candidates(ctx, category.Keyword)
	if err != nil {
		return cs, fmt.Errorf("gather candidates for %s: %w", category.Name, err)
	}
	cs.Candidates = len(urls)
	metrics.ObserveCandidates(category.Name, len(urls))
	logger.Info("processing category", zap.String("keyword", category.Keyword), zap.Int("candidates", len(urls)))

	o.index.EnsureCategory(category.Name)
	for _, url := range urls {
		record, err := o.processor.Process(ctx, category.Name, url)
		metrics.ObserveAsset(category.Name, err)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return cs, fmt.Errorf("run canceled: %w", ctxErr)
			}
			cs.Failed++
			logger.Warn("asset failed", zap.String("url", url), zap.Error(err))
		} else {
			cs.Succeeded++
			o.index.Append(category.Name, record)
			logger.Info("asset stored", zap.String("url", url), zap.String("location", record.Location))
		}

		if err := o.clock.Sleep(ctx, o.cfg.Throttle); err != nil {
			return cs, fmt.Errorf("run canceled: %w", err)
		}
	}
	return cs, nil
}
