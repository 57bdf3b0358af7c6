// Package config loads and validates birdwall configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/birdwall/internal/catalog"
	"github.com/JakeFAU/birdwall/internal/logging"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Asset strategies.
const (
	StrategyLocal  = "local"
	StrategyRehost = "rehost"
)

// Storage backends for the local strategy.
const (
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// Config captures all knobs loaded via Viper.
type Config struct {
	Logging  logging.Config       `mapstructure:"logging"`
	Catalog  []wallpaper.Category `mapstructure:"catalog"`
	Run      RunConfig            `mapstructure:"run"`
	Manifest ManifestConfig       `mapstructure:"manifest"`
	Asset    AssetConfig          `mapstructure:"asset"`
	HTTP     HTTPConfig           `mapstructure:"http"`
	Storage  StorageConfig        `mapstructure:"storage"`
	Sources  SourcesConfig        `mapstructure:"sources"`
	Hosting  HostingConfig        `mapstructure:"hosting"`
	PubSub   PubSubConfig         `mapstructure:"pubsub"`
	Metrics  MetricsConfig        `mapstructure:"metrics"`
}

// RunConfig governs candidate selection and pacing.
type RunConfig struct {
	MinImages int           `mapstructure:"min_images"`
	MaxImages int           `mapstructure:"max_images"`
	PageSize  int           `mapstructure:"page_size"`
	Throttle  time.Duration `mapstructure:"throttle"`
	// DryRun keeps images and events in memory and never writes the manifest.
	DryRun bool `mapstructure:"dry_run"`
}

// ManifestConfig locates the JSON index.
type ManifestConfig struct {
	Path string `mapstructure:"path"`
}

// AssetConfig picks the asset processing strategy.
type AssetConfig struct {
	Strategy string `mapstructure:"strategy"`
}

// HTTPConfig configures outbound requests.
type HTTPConfig struct {
	UserAgent       string        `mapstructure:"user_agent"`
	SearchTimeout   time.Duration `mapstructure:"search_timeout"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
	UploadTimeout   time.Duration `mapstructure:"upload_timeout"`
	MaxBodyBytes    int           `mapstructure:"max_body_bytes"`
}

// StorageConfig selects where the local strategy writes image bytes.
type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	Local   LocalStorageConfig `mapstructure:"local"`
	GCS     GCSStorageConfig   `mapstructure:"gcs"`
}

// LocalStorageConfig roots the filesystem store.
type LocalStorageConfig struct {
	BaseDir string `mapstructure:"base_dir"`
}

// GCSStorageConfig names the bucket for the GCS store.
type GCSStorageConfig struct {
	Bucket string `mapstructure:"bucket"`
	Prefix string `mapstructure:"prefix"`
}

// SourcesConfig configures the search APIs.
type SourcesConfig struct {
	Pexels  EndpointConfig `mapstructure:"pexels"`
	Pixabay EndpointConfig `mapstructure:"pixabay"`
}

// HostingConfig configures the re-hosting API.
type HostingConfig struct {
	Imgbb EndpointConfig `mapstructure:"imgbb"`
}

// EndpointConfig is a remote API base URL plus the env var holding its key.
type EndpointConfig struct {
	BaseURL string `mapstructure:"base_url"`
	KeyEnv  string `mapstructure:"key_env"`
}

// PubSubConfig holds metadata for asset notifications.
type PubSubConfig struct {
	ProjectID string `mapstructure:"project_id"`
	TopicName string `mapstructure:"topic_name"`
}

// MetricsConfig controls where run metrics are exported.
type MetricsConfig struct {
	Textfile       string `mapstructure:"textfile"`
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string `mapstructure:"job"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("BIRDWALL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "")
	v.SetDefault("catalog", defaultCatalog())
	v.SetDefault("run.min_images", 10)
	v.SetDefault("run.max_images", 0)
	v.SetDefault("run.page_size", 20)
	v.SetDefault("run.throttle", "0s")
	v.SetDefault("run.dry_run", false)
	v.SetDefault("manifest.path", "index.json")
	v.SetDefault("asset.strategy", StrategyLocal)
	v.SetDefault("http.user_agent", "birdwall/0.1")
	v.SetDefault("http.search_timeout", "15s")
	v.SetDefault("http.download_timeout", "0s")
	v.SetDefault("http.upload_timeout", "15s")
	v.SetDefault("http.max_body_bytes", 64*1024*1024)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.local.base_dir", "images")
	v.SetDefault("storage.gcs.bucket", "")
	v.SetDefault("storage.gcs.prefix", "")
	v.SetDefault("sources.pexels.base_url", "https://api.pexels.com/v1/search")
	v.SetDefault("sources.pexels.key_env", "PEXELS_KEY")
	v.SetDefault("sources.pixabay.base_url", "https://pixabay.com/api/")
	v.SetDefault("sources.pixabay.key_env", "PIXABAY_KEY")
	v.SetDefault("hosting.imgbb.base_url", "https://api.imgbb.com/1/upload")
	v.SetDefault("hosting.imgbb.key_env", "IMGBB_KEY")
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic_name", "")
	v.SetDefault("metrics.textfile", "")
	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "birdwall")
}

func defaultCatalog() []map[string]any {
	defaults := catalog.Default()
	out := make([]map[string]any, 0, len(defaults))
	for _, c := range defaults {
		out = append(out, map[string]any{"name": c.Name, "keyword": c.Keyword})
	}
	return out
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if err := catalog.Validate(c.Catalog); err != nil {
		return fmt.Errorf("invalid catalog: %w", err)
	}
	if c.Run.MinImages < 0 {
		return fmt.Errorf("run.min_images must be >= 0")
	}
	if c.Run.MaxImages < 0 {
		return fmt.Errorf("run.max_images must be >= 0")
	}
	if c.Run.PageSize <= 0 {
		return fmt.Errorf("run.page_size must be > 0")
	}
	if c.Run.Throttle < 0 {
		return fmt.Errorf("run.throttle must be >= 0")
	}
	if strings.TrimSpace(c.Manifest.Path) == "" {
		return fmt.Errorf("manifest.path must be set")
	}
	if c.HTTP.SearchTimeout <= 0 {
		return fmt.Errorf("http.search_timeout must be > 0")
	}
	if c.HTTP.DownloadTimeout < 0 {
		return fmt.Errorf("http.download_timeout must be >= 0")
	}
	if c.HTTP.UploadTimeout <= 0 {
		return fmt.Errorf("http.upload_timeout must be > 0")
	}
	if c.HTTP.MaxBodyBytes < 0 {
		return fmt.Errorf("http.max_body_bytes must be >= 0")
	}
	if c.PubSub.TopicName != "" && c.PubSub.ProjectID == "" {
		return fmt.Errorf("pubsub.project_id must be set when pubsub.topic_name is set")
	}
	if c.Sources.Pexels.BaseURL == "" || c.Sources.Pixabay.BaseURL == "" {
		return fmt.Errorf("sources.pexels.base_url and sources.pixabay.base_url must be set")
	}
	switch c.Asset.Strategy {
	case StrategyLocal:
		return c.validateStorage()
	case StrategyRehost:
		if c.Hosting.Imgbb.BaseURL == "" {
			return fmt.Errorf("hosting.imgbb.base_url must be set for the rehost strategy")
		}
	default:
		return fmt.Errorf("asset.strategy must be %q or %q, got %q", StrategyLocal, StrategyRehost, c.Asset.Strategy)
	}
	return nil
}

func (c Config) validateStorage() error {
	switch c.Storage.Backend {
	case BackendLocal:
		if strings.TrimSpace(c.Storage.Local.BaseDir) == "" {
			return fmt.Errorf("storage.local.base_dir must be set")
		}
	case BackendGCS:
		if c.Storage.GCS.Bucket == "" {
			return fmt.Errorf("storage.gcs.bucket must be set when storage.backend is gcs")
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unknown storage.backend %q", c.Storage.Backend)
	}
	return nil
}

// Throttle returns the pause between per-URL operations, falling back to the
// strategy default when unset.
func (c Config) Throttle() time.Duration {
	if c.Run.Throttle > 0 {
		return c.Run.Throttle
	}
	if c.Asset.Strategy == StrategyRehost {
		return time.Second
	}
	return 500 * time.Millisecond
}

// DownloadTimeout returns the per-download timeout, falling back to the
// strategy default when unset.
func (c Config) DownloadTimeout() time.Duration {
	if c.HTTP.DownloadTimeout > 0 {
		return c.HTTP.DownloadTimeout
	}
	if c.Asset.Strategy == StrategyRehost {
		return 15 * time.Second
	}
	return 10 * time.Second
}
