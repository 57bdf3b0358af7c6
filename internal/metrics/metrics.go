// Package metrics exposes Prometheus collectors for wallpaper runs and exports
// them at the end of a run, either to a node_exporter textfile or to a Pushgateway.
package metrics

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdwall_http_requests_total",
			Help: "Total outbound HTTP requests, labeled by site, method and code.",
		},
		[]string{"site", "method", "code"},
	)

	httpRequestDurationSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "birdwall_http_request_duration_seconds",
			Help:    "Histogram of outbound HTTP request latencies, labeled by site.",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 15},
		},
		[]string{"site"},
	)

	searchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdwall_search_requests_total",
			Help: "Total search API calls, labeled by source and status.",
		},
		[]string{"source", "status"},
	)

	candidatesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdwall_candidates_total",
			Help: "Deduplicated candidate URLs selected for processing, labeled by category.",
		},
		[]string{"category"},
	)

	assetsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdwall_assets_total",
			Help: "Assets processed, labeled by category and status.",
		},
		[]string{"category", "status"},
	)

	assetBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "birdwall_asset_bytes_total",
			Help: "Bytes of image data stored, labeled by category.",
		},
		[]string{"category"},
	)

	runDurationSeconds = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "birdwall_run_duration_seconds",
			Help: "Wall time of the last run.",
		},
	)

	lastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "birdwall_last_success_timestamp_seconds",
			Help: "Unix time of the last run that saved its manifest.",
		},
	)
)

// Asset statuses.
const (
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
)

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// ObserveHTTPRequest records one outbound request. A zero code means the
// request failed before a response arrived.
func ObserveHTTPRequest(site, method string, code int, duration time.Duration) {
	label := "error"
	if code > 0 {
		label = strconv.Itoa(code)
	}
	httpRequestsTotal.WithLabelValues(site, method, label).Inc()
	httpRequestDurationSeconds.WithLabelValues(site).Observe(duration.Seconds())
}

// ObserveSearch records one search API call.
func ObserveSearch(source string, err error) {
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	searchRequestsTotal.WithLabelValues(source, status).Inc()
}

// ObserveCandidates records how many URLs a category will process.
func ObserveCandidates(category string, n int) {
	candidatesTotal.WithLabelValues(category).Add(float64(n))
}

// ObserveAsset records one processed asset.
func ObserveAsset(category string, err error) {
	status := StatusSucceeded
	if err != nil {
		status = StatusFailed
	}
	assetsTotal.WithLabelValues(category, status).Inc()
}

// ObserveAssetBytes adds stored bytes for category.
func ObserveAssetBytes(category string, n int) {
	if n > 0 {
		assetBytesTotal.WithLabelValues(category).Add(float64(n))
	}
}

// ObserveRun records the duration of a run and, when it saved, its completion time.
func ObserveRun(duration time.Duration, finished time.Time, saved bool) {
	runDurationSeconds.Set(duration.Seconds())
	if saved {
		lastSuccessTimestamp.Set(float64(finished.Unix()))
	}
}

// Exporter ships the default registry somewhere once a run ends.
type Exporter struct {
	Textfile       string
	PushgatewayURL string
	Job            string
	Gatherer       prometheus.Gatherer
}

// Export writes the textfile and pushes to the gateway, whichever are configured.
func (e Exporter) Export(ctx context.Context) error {
	gatherer := e.Gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	if e.Textfile != "" {
		if err := prometheus.WriteToTextfile(e.Textfile, gatherer); err != nil {
			return fmt.Errorf("write metrics textfile: %w", err)
		}
	}
	if e.PushgatewayURL != "" {
		job := e.Job
		if job == "" {
			job = "birdwall"
		}
		if err := push.New(e.PushgatewayURL, job).Gatherer(gatherer).PushContext(ctx); err != nil {
			return fmt.Errorf("push metrics: %w", err)
		}
	}
	return nil
}
