package asset

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif" // register GIF decoder
	"image/jpeg"
	_ "image/png" // register PNG decoder
	"time"

	"go.uber.org/zap"
	_ "golang.org/x/image/webp" // register WebP decoder

	"github.com/JakeFAU/birdwall/internal/metrics"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// ErrNotImage is returned when downloaded bytes do not decode as a supported image.
var ErrNotImage = errors.New("content is not a supported image")

const jpegQuality = 90

// LocalConfig tunes the Local processor.
type LocalConfig struct {
	DownloadTimeout time.Duration
	// Topic receives an AssetEvent per stored image; empty disables publishing.
	Topic string
}

// Local downloads images and writes them as JPEG through a BlobStore.
type Local struct {
	fetcher   wallpaper.Fetcher
	store     wallpaper.BlobStore
	hasher    wallpaper.Hasher
	publisher wallpaper.Publisher
	namer     *Namer
	cfg       LocalConfig
	logger    *zap.Logger
}

// NewLocal wires a Local processor. publisher may be nil.
func NewLocal(
	fetcher wallpaper.Fetcher,
	store wallpaper.BlobStore,
	hasher wallpaper.Hasher,
	publisher wallpaper.Publisher,
	namer *Namer,
	cfg LocalConfig,
	logger *zap.Logger,
) *Local {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Local{
		fetcher:   fetcher,
		store:     store,
		hasher:    hasher,
		publisher: publisher,
		namer:     namer,
		cfg:       cfg,
		logger:    logger,
	}
}

// Process downloads url, stores it under category and returns its record.
func (l *Local) Process(ctx context.Context, category string, url string) (wallpaper.Record, error) {
	body, err := download(ctx, l.fetcher, url, l.cfg.DownloadTimeout)
	if err != nil {
		return wallpaper.Record{}, err
	}

	data, format, err := normalizeJPEG(body)
	if err != nil {
		return wallpaper.Record{}, fmt.Errorf("decode %s: %w", url, err)
	}
	if format != "jpeg" {
		l.logger.Debug("re-encoded image as jpeg", zap.String("url", url), zap.String("format", format))
	}

	filename := l.namer.Filename(category)
	location, err := l.store.PutObject(ctx, ObjectPath(category, filename), "image/jpeg", bytes.NewReader(data))
	if err != nil {
		return wallpaper.Record{}, fmt.Errorf("store %s: %w", filename, err)
	}
	metrics.ObserveAssetBytes(category, len(data))

	digest, err := l.hasher.Hash(data)
	if err != nil {
		return wallpaper.Record{}, fmt.Errorf("hash %s: %w", filename, err)
	}
	ts := l.namer.Stamp()

	record := wallpaper.Record{
		Location:    location,
		SourceURL:   url,
		Category:    category,
		Timestamp:   ts.Format(wallpaper.TimestampLayout),
		ContentHash: digest,
	}
	l.publish(ctx, record)
	return record, nil
}

func (l *Local) publish(ctx context.Context, record wallpaper.Record) {
	if l.publisher == nil || l.cfg.Topic == "" {
		return
	}
	event := wallpaper.AssetEvent{
		RunID:       RunIDFromContext(ctx),
		Category:    record.Category,
		Location:    record.Location,
		SourceURL:   record.SourceURL,
		ContentHash: record.ContentHash,
		Timestamp:   record.Timestamp,
	}
	if _, err := l.publisher.Publish(ctx, l.cfg.Topic, event); err != nil {
		l.logger.Warn("failed to publish asset event",
			zap.String("location", record.Location),
			zap.String("topic", l.cfg.Topic),
			zap.Error(err),
		)
	}
}

// normalizeJPEG decodes body and returns JPEG bytes plus the detected format.
// JPEG input is returned untouched.
func normalizeJPEG(body []byte) ([]byte, string, error) {
	img, format, err := image.Decode(bytes.NewReader(body))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrNotImage, err)
	}
	if format == "jpeg" {
		return body, format, nil
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: jpegQuality}); err != nil {
		return nil, format, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), format, nil
}
