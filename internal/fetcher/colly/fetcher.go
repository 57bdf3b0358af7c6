// Package collyfetcher implements wallpaper.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"

	"github.com/JakeFAU/birdwall/internal/metrics"
	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

const defaultTimeout = 15 * time.Second

// ErrBodyTooLarge is returned when a response body exceeds Config.MaxBodyBytes.
var ErrBodyTooLarge = errors.New("response body exceeds size limit")

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	// MaxBodyBytes caps response bodies; larger bodies fail with
	// ErrBodyTooLarge. Zero means unlimited.
	MaxBodyBytes int
}

// Fetcher implements wallpaper.Fetcher using the Colly collector. Every
// response is returned whatever its status; callers decide what counts as success.
type Fetcher struct {
	cfg           Config
	transport     http.RoundTripper
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnRequest(colly.RequestCallback)
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config) *Fetcher {
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
		colly.ParseHTTPErrorResponse(),
	)
	transport := newHTTPTransport()
	c.WithTransport(transport)

	return &Fetcher{
		cfg:           cfg,
		transport:     transport,
		baseCollector: c,
	}
}

// Fetch executes a single GET, or a form POST when request.Form is set.
func (f *Fetcher) Fetch(ctx context.Context, request wallpaper.FetchRequest) (wallpaper.FetchResponse, error) {
	var (
		result   wallpaper.FetchResponse
		fetchErr error
	)
	start := time.Now()
	collector := f.buildCollector(request, start, &result, &fetchErr)

	method := http.MethodGet
	if request.Form != nil {
		method = http.MethodPost
	}
	site := metrics.SanitizeSite(request.URL)

	if err := f.runCollector(ctx, collector, request, &fetchErr); err != nil {
		metrics.ObserveHTTPRequest(site, method, 0, time.Since(start))
		return wallpaper.FetchResponse{}, err
	}
	metrics.ObserveHTTPRequest(site, method, result.StatusCode, result.Duration)
	return result, nil
}

func (f *Fetcher) buildCollector(
	request wallpaper.FetchRequest,
	start time.Time,
	result *wallpaper.FetchResponse,
	fetchErr *error,
) *colly.Collector {
	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.MaxBodySize = 0
	if f.cfg.MaxBodyBytes > 0 {
		// One byte past the cap tells a full-size body from a cut-off one.
		collector.MaxBodySize = f.cfg.MaxBodyBytes + 1
	}
	collector.ParseHTTPErrorResponse = true
	collector.AllowURLRevisit = true

	timeout := request.Timeout
	if timeout <= 0 {
		timeout = f.cfg.Timeout
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	collector.SetRequestTimeout(timeout)

	baseTransport := f.transport
	if baseTransport == nil {
		baseTransport = newHTTPTransport()
	}
	collector.WithTransport(baseTransport)

	f.configureCollectorHooks(collector, request, start, result, fetchErr)
	return collector
}

func (f *Fetcher) configureCollectorHooks(
	hooks collectorHooks,
	request wallpaper.FetchRequest,
	start time.Time,
	result *wallpaper.FetchResponse,
	fetchErr *error,
) {
	hooks.OnRequest(func(r *colly.Request) {
		f.copyHeaders(request, r)
	})

	hooks.OnResponse(func(r *colly.Response) {
		if limit := f.cfg.MaxBodyBytes; limit > 0 && len(r.Body) > limit {
			*fetchErr = fmt.Errorf("%w: %s over %d bytes", ErrBodyTooLarge, r.Request.URL, limit)
			return
		}
		var headers http.Header
		if r.Headers != nil {
			headers = r.Headers.Clone()
		}
		*result = wallpaper.FetchResponse{
			URL:        r.Request.URL.String(),
			StatusCode: r.StatusCode,
			Headers:    headers,
			Body:       append([]byte(nil), r.Body...),
			Duration:   time.Since(start),
		}
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(
	ctx context.Context,
	collector *colly.Collector,
	request wallpaper.FetchRequest,
	fetchErr *error,
) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("colly fetch canceled: %w", err)
	}
	done := make(chan error, 1)
	go func() {
		if request.Form != nil {
			done <- collector.Post(request.URL, request.Form)
			return
		}
		done <- collector.Visit(request.URL)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func (f *Fetcher) copyHeaders(request wallpaper.FetchRequest, r *colly.Request) {
	if request.Headers == nil {
		return
	}
	for key, values := range request.Headers {
		for _, v := range values {
			r.Headers.Add(key, v)
		}
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
