// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"cloud.google.com/go/pubsub"
	gcsstorage "cloud.google.com/go/storage"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/JakeFAU/birdwall/internal/asset"
	"github.com/JakeFAU/birdwall/internal/catalog"
	"github.com/JakeFAU/birdwall/internal/clock/system"
	"github.com/JakeFAU/birdwall/internal/config"
	collyfetcher "github.com/JakeFAU/birdwall/internal/fetcher/colly"
	"github.com/JakeFAU/birdwall/internal/hash/sha256"
	"github.com/JakeFAU/birdwall/internal/hosting/imgbb"
	"github.com/JakeFAU/birdwall/internal/id/uuid"
	"github.com/JakeFAU/birdwall/internal/metrics"
	"github.com/JakeFAU/birdwall/internal/orchestrator"
	memorypublisher "github.com/JakeFAU/birdwall/internal/publisher/memory"
	pubsubpublisher "github.com/JakeFAU/birdwall/internal/publisher/pubsub"
	"github.com/JakeFAU/birdwall/internal/source"
	"github.com/JakeFAU/birdwall/internal/source/pexels"
	"github.com/JakeFAU/birdwall/internal/source/pixabay"
	"github.com/JakeFAU/birdwall/internal/storage/gcs"
	"github.com/JakeFAU/birdwall/internal/storage/local"
	"github.com/JakeFAU/birdwall/internal/storage/memory"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Option adjusts how New builds cloud clients.
type Option func(*options)

type options struct {
	clientOptions []option.ClientOption
}

// dryRunTopic names the in-memory topic when no Pub/Sub topic is configured.
const dryRunTopic = "birdwall-dry-run"

// WithClientOptions passes extra options to the GCS and Pub/Sub clients.
func WithClientOptions(opts ...option.ClientOption) Option {
	return func(o *options) {
		o.clientOptions = append(o.clientOptions, opts...)
	}
}

// App holds the shared, long-lived services for one CLI invocation.
type App struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   catalog.Catalog
	clock     wallpaper.Clock
	ids       wallpaper.IDGenerator
	fetcher   wallpaper.Fetcher
	gatherer  *source.Gatherer
	processor wallpaper.AssetProcessor
	exporter  metrics.Exporter
	events    *memorypublisher.Publisher
	closers   []func() error
}

// New builds every service the configured strategy needs. It fails fast when
// a backend cannot be initialized.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	a := &App{
		cfg:    cfg,
		logger: logger,
		clock:  system.New(),
		ids:    uuid.New(),
		exporter: metrics.Exporter{
			Textfile:       cfg.Metrics.Textfile,
			PushgatewayURL: cfg.Metrics.PushgatewayURL,
			Job:            cfg.Metrics.Job,
		},
	}
	logger.Debug("initializing application services", zap.String("strategy", cfg.Asset.Strategy))

	cat, err := catalog.New(cfg.Catalog)
	if err != nil {
		return nil, fmt.Errorf("load catalog: %w", err)
	}
	a.catalog = cat

	a.fetcher = collyfetcher.New(collyfetcher.Config{
		UserAgent:    cfg.HTTP.UserAgent,
		Timeout:      cfg.HTTP.SearchTimeout,
		MaxBodyBytes: cfg.HTTP.MaxBodyBytes,
	})

	a.gatherer = source.NewGatherer(
		pexels.New(a.fetcher, pexels.Config{
			BaseURL: cfg.Sources.Pexels.BaseURL,
			KeyEnv:  cfg.Sources.Pexels.KeyEnv,
			Timeout: cfg.HTTP.SearchTimeout,
		}),
		pixabay.New(a.fetcher, pixabay.Config{
			BaseURL: cfg.Sources.Pixabay.BaseURL,
			KeyEnv:  cfg.Sources.Pixabay.KeyEnv,
			Timeout: cfg.HTTP.SearchTimeout,
		}),
		source.Config{
			PageSize:  cfg.Run.PageSize,
			MinImages: cfg.Run.MinImages,
			MaxImages: cfg.Run.MaxImages,
		},
		logger.Named("source"),
	)

	namer := asset.NewNamer(a.clock)
	strategy := cfg.Asset.Strategy
	if cfg.Run.DryRun {
		// Re-hosting would publish images on the host, so dry runs always store locally.
		strategy = config.StrategyLocal
	}
	switch strategy {
	case config.StrategyRehost:
		host := imgbb.New(a.fetcher, imgbb.Config{
			BaseURL: cfg.Hosting.Imgbb.BaseURL,
			KeyEnv:  cfg.Hosting.Imgbb.KeyEnv,
			Timeout: cfg.HTTP.UploadTimeout,
		})
		a.processor = asset.NewRehost(a.fetcher, host, sha256.New(), namer,
			asset.RehostConfig{DownloadTimeout: cfg.DownloadTimeout()}, logger.Named("rehost"))
	case config.StrategyLocal:
		store, err := a.newBlobStore(ctx, o)
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher, err := a.newPublisher(ctx, o)
		if err != nil {
			a.Close()
			return nil, err
		}
		topic := cfg.PubSub.TopicName
		if cfg.Run.DryRun && topic == "" {
			topic = dryRunTopic
		}
		a.processor = asset.NewLocal(a.fetcher, store, sha256.New(), publisher, namer,
			asset.LocalConfig{DownloadTimeout: cfg.DownloadTimeout(), Topic: topic},
			logger.Named("local"))
	default:
		return nil, fmt.Errorf("unknown asset strategy %q", cfg.Asset.Strategy)
	}

	return a, nil
}

func (a *App) newBlobStore(ctx context.Context, o options) (wallpaper.BlobStore, error) {
	if a.cfg.Run.DryRun {
		a.logger.Info("dry run, images kept in memory")
		return memory.NewBlobStore(), nil
	}
	switch a.cfg.Storage.Backend {
	case config.BackendLocal:
		a.logger.Debug("using local blob store", zap.String("base_dir", a.cfg.Storage.Local.BaseDir))
		store, err := local.New(local.Config{BaseDir: a.cfg.Storage.Local.BaseDir})
		if err != nil {
			return nil, fmt.Errorf("init local storage: %w", err)
		}
		return store, nil
	case config.BackendGCS:
		a.logger.Info("using GCS blob store", zap.String("bucket", a.cfg.Storage.GCS.Bucket))
		client, err := gcsstorage.NewClient(ctx, o.clientOptions...)
		if err != nil {
			return nil, fmt.Errorf("create gcs client: %w", err)
		}
		a.closers = append(a.closers, client.Close)
		store, err := gcs.New(client, gcs.Config{Bucket: a.cfg.Storage.GCS.Bucket, Prefix: a.cfg.Storage.GCS.Prefix})
		if err != nil {
			return nil, fmt.Errorf("init gcs storage: %w", err)
		}
		return store, nil
	case config.BackendMemory:
		a.logger.Warn("using in-memory blob store, images will not be persisted")
		return memory.NewBlobStore(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", a.cfg.Storage.Backend)
	}
}

func (a *App) newPublisher(ctx context.Context, o options) (wallpaper.Publisher, error) {
	if a.cfg.Run.DryRun {
		a.events = memorypublisher.New()
		return a.events, nil
	}
	if a.cfg.PubSub.TopicName == "" {
		return nil, nil
	}
	a.logger.Info("publishing asset events",
		zap.String("project", a.cfg.PubSub.ProjectID),
		zap.String("topic", a.cfg.PubSub.TopicName),
	)
	client, err := pubsub.NewClient(ctx, a.cfg.PubSub.ProjectID, o.clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	publisher := pubsubpublisher.New(client, a.cfg.PubSub.TopicName)
	a.closers = append(a.closers, func() error {
		publisher.Close()
		return client.Close()
	})
	return publisher, nil
}

// NewOrchestrator builds a run over index using the configured catalog.
func (a *App) NewOrchestrator(index orchestrator.Index) *orchestrator.Orchestrator {
	return orchestrator.New(
		a.catalog,
		a.gatherer,
		a.processor,
		index,
		a.clock,
		a.ids,
		orchestrator.Config{Throttle: a.cfg.Throttle()},
		a.logger.Named("orchestrator"),
	)
}

// Run executes one wallpaper run against index. A dry run never saves index.
func (a *App) Run(ctx context.Context, index orchestrator.Index) (orchestrator.Summary, error) {
	if a.cfg.Run.DryRun {
		index = unsavedIndex{Index: index}
	}
	summary, err := a.NewOrchestrator(index).Run(ctx)
	if a.events != nil {
		a.logger.Info("dry run finished",
			zap.Int("stored", summary.Succeeded()),
			zap.Int("events", len(a.events.Messages())),
		)
	}
	if err != nil {
		return summary, fmt.Errorf("run: %w", err)
	}
	return summary, nil
}

// unsavedIndex records appends in memory and drops the final save.
type unsavedIndex struct {
	orchestrator.Index
}

func (unsavedIndex) Save() error {
	return nil
}

// ExportMetrics writes or pushes run metrics when configured.
func (a *App) ExportMetrics(ctx context.Context) error {
	return a.exporter.Export(ctx)
}

// Close releases cloud clients. The logger is left for the caller to sync.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.logger.Warn("error closing service", zap.Error(err))
		}
	}
	a.closers = nil
}
