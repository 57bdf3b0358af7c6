// Package source turns a category keyword into the ordered list of candidate
// image URLs: primary search, fallback when the primary comes up short,
// first-seen deduplication, then optional capping.
package source

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/birdwall/internal/metrics"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Config controls candidate selection.
type Config struct {
	PageSize  int
	MinImages int
	// MaxImages caps the deduplicated list; zero keeps every URL.
	MaxImages int
}

// Gatherer queries the primary source and, when needed, the fallback.
type Gatherer struct {
	primary  wallpaper.Source
	fallback wallpaper.Source
	cfg      Config
	logger   *zap.Logger
}

// NewGatherer builds a Gatherer. fallback may be nil.
func NewGatherer(primary, fallback wallpaper.Source, cfg Config, logger *zap.Logger) *Gatherer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gatherer{
		primary:  primary,
		fallback: fallback,
		cfg:      cfg,
		logger:   logger,
	}
}

// Candidates returns the URLs to process for keyword. Search failures are
// returned unchanged in meaning: the caller treats them as fatal.
func (g *Gatherer) Candidates(ctx context.Context, keyword string) ([]string, error) {
	urls, err := g.search(ctx, g.primary, keyword)
	if err != nil {
		return nil, err
	}

	if len(urls) < g.cfg.MinImages && g.fallback != nil {
		g.logger.Info("primary source short, querying fallback",
			zap.String("keyword", keyword),
			zap.String("primary", g.primary.Name()),
			zap.String("fallback", g.fallback.Name()),
			zap.Int("primary_count", len(urls)),
			zap.Int("min_images", g.cfg.MinImages),
		)
		more, err := g.search(ctx, g.fallback, keyword)
		if err != nil {
			return nil, err
		}
		urls = append(urls, more...)
	}

	urls = Dedupe(urls)
	if len(urls) < g.cfg.MinImages {
		g.logger.Debug("fewer candidates than min_images, processing all",
			zap.String("keyword", keyword),
			zap.Int("count", len(urls)),
		)
	}
	return Select(urls, g.cfg.MaxImages), nil
}

func (g *Gatherer) search(ctx context.Context, src wallpaper.Source, keyword string) ([]string, error) {
	urls, err := src.Search(ctx, keyword, g.cfg.PageSize)
	metrics.ObserveSearch(src.Name(), err)
	if err != nil {
		return nil, fmt.Errorf("search %s: %w", src.Name(), err)
	}
	g.logger.Debug("search complete",
		zap.String("source", src.Name()),
		zap.String("keyword", keyword),
		zap.Int("count", len(urls)),
	)
	return urls, nil
}

// Dedupe drops repeated URLs, keeping each at its first position.
func Dedupe(urls []string) []string {
	out := make([]string, 0, len(urls))
	seen := make(map[string]struct{}, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

// Select applies the optional cap. A zero or negative max keeps everything.
func Select(urls []string, maxImages int) []string {
	if maxImages <= 0 || len(urls) <= maxImages {
		return urls
	}
	return urls[:maxImages]
}
