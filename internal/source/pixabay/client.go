// Package pixabay searches the Pixabay image API.
package pixabay

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// DefaultBaseURL is the Pixabay search endpoint.
const DefaultBaseURL = "https://pixabay.com/api/"

// Config locates the API and its key.
type Config struct {
	BaseURL string
	// KeyEnv names the environment variable read on every call.
	KeyEnv  string
	Timeout time.Duration
}

// Client implements wallpaper.Source against Pixabay.
type Client struct {
	fetcher wallpaper.Fetcher
	cfg     Config
}

type searchResponse struct {
	Hits []struct {
		ID            int64  `json:"id"`
		LargeImageURL string `json:"largeImageURL"`
	} `json:"hits"`
}

// New returns a Pixabay client.
func New(fetcher wallpaper.Fetcher, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.KeyEnv == "" {
		cfg.KeyEnv = "PIXABAY_KEY"
	}
	return &Client{fetcher: fetcher, cfg: cfg}
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string {
	return "pixabay"
}

// Search returns the large-image URL of each photo hit, in API order.
func (c *Client) Search(ctx context.Context, keyword string, pageSize int) ([]string, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pixabay base url: %w", err)
	}
	key := os.Getenv(c.cfg.KeyEnv)
	q := endpoint.Query()
	q.Set("key", key)
	q.Set("q", keyword)
	q.Set("per_page", strconv.Itoa(pageSize))
	q.Set("image_type", "photo")
	endpoint.RawQuery = q.Encode()

	resp, err := c.fetcher.Fetch(ctx, wallpaper.FetchRequest{
		URL:     endpoint.String(),
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pixabay search %q: %w", keyword, redactKey(err, key))
	}
	if err := wallpaper.ExpectStatus(resp, http.StatusOK); err != nil {
		// The request URL carries the key; keep it out of the error.
		return nil, fmt.Errorf("pixabay search %q: %w: status %d", keyword, wallpaper.ErrUnexpectedStatus, resp.StatusCode)
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode pixabay response: %w", err)
	}

	urls := make([]string, 0, len(body.Hits))
	for i, hit := range body.Hits {
		if hit.LargeImageURL == "" {
			return nil, fmt.Errorf("pixabay hit %d (id %d) has no largeImageURL", i, hit.ID)
		}
		urls = append(urls, hit.LargeImageURL)
	}
	return urls, nil
}

// keyRedactedError hides the API key that transport errors quote as part of
// the request URL. Unwrap still exposes the cause for errors.Is.
type keyRedactedError struct {
	msg string
	err error
}

func (e *keyRedactedError) Error() string {
	return e.msg
}

func (e *keyRedactedError) Unwrap() error {
	return e.err
}

func redactKey(err error, key string) error {
	if key == "" {
		return err
	}
	msg := err.Error()
	msg = strings.ReplaceAll(msg, url.QueryEscape(key), "REDACTED")
	msg = strings.ReplaceAll(msg, key, "REDACTED")
	return &keyRedactedError{msg: msg, err: err}
}
