package asset

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// RehostConfig tunes the Rehost processor.
type RehostConfig struct {
	DownloadTimeout time.Duration
}

// Rehost downloads images and re-uploads them to a wallpaper.Host.
type Rehost struct {
	fetcher wallpaper.Fetcher
	host    wallpaper.Host
	hasher  wallpaper.Hasher
	namer   *Namer
	cfg     RehostConfig
	logger  *zap.Logger
}

// NewRehost wires a Rehost processor. hasher may be nil.
func NewRehost(
	fetcher wallpaper.Fetcher,
	host wallpaper.Host,
	hasher wallpaper.Hasher,
	namer *Namer,
	cfg RehostConfig,
	logger *zap.Logger,
) *Rehost {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Rehost{
		fetcher: fetcher,
		host:    host,
		hasher:  hasher,
		namer:   namer,
		cfg:     cfg,
		logger:  logger,
	}
}

// Process downloads url, uploads it and returns a record pointing at the
// hosted copy. The record carries no source URL.
func (r *Rehost) Process(ctx context.Context, category string, url string) (wallpaper.Record, error) {
	body, err := download(ctx, r.fetcher, url, r.cfg.DownloadTimeout)
	if err != nil {
		return wallpaper.Record{}, err
	}

	filename := r.namer.Filename(category)
	hosted, err := r.host.Upload(ctx, filename, body)
	if err != nil {
		return wallpaper.Record{}, fmt.Errorf("rehost %s: %w", url, err)
	}
	ts := r.namer.Stamp()

	record := wallpaper.Record{
		Location:  hosted,
		Category:  category,
		Timestamp: ts.Format(wallpaper.TimestampLayout),
	}
	if r.hasher != nil {
		if digest, err := r.hasher.Hash(body); err == nil {
			record.ContentHash = digest
		} else {
			r.logger.Debug("skipping content hash", zap.String("url", url), zap.Error(err))
		}
	}
	return record, nil
}
