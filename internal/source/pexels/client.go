// Package pexels searches the Pexels photo API.
package pexels

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// DefaultBaseURL is the Pexels search endpoint.
const DefaultBaseURL = "https://api.pexels.com/v1/search"

// Config locates the API and its key.
type Config struct {
	BaseURL string
	// KeyEnv names the environment variable read on every call.
	KeyEnv  string
	Timeout time.Duration
}

// Client implements wallpaper.Source against Pexels.
type Client struct {
	fetcher wallpaper.Fetcher
	cfg     Config
}

type searchResponse struct {
	Photos []struct {
		ID  int64 `json:"id"`
		Src *struct {
			Original string `json:"original"`
		} `json:"src"`
	} `json:"photos"`
}

// New returns a Pexels client.
func New(fetcher wallpaper.Fetcher, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.KeyEnv == "" {
		cfg.KeyEnv = "PEXELS_KEY"
	}
	return &Client{fetcher: fetcher, cfg: cfg}
}

// Name identifies the source in logs and metrics.
func (c *Client) Name() string {
	return "pexels"
}

// Search returns the original-resolution URL of each photo, in API order.
func (c *Client) Search(ctx context.Context, keyword string, pageSize int) ([]string, error) {
	endpoint, err := url.Parse(c.cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse pexels base url: %w", err)
	}
	q := endpoint.Query()
	q.Set("query", keyword)
	q.Set("per_page", strconv.Itoa(pageSize))
	endpoint.RawQuery = q.Encode()

	resp, err := c.fetcher.Fetch(ctx, wallpaper.FetchRequest{
		URL:     endpoint.String(),
		Headers: http.Header{"Authorization": {os.Getenv(c.cfg.KeyEnv)}},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("pexels search %q: %w", keyword, err)
	}
	if err := wallpaper.ExpectStatus(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("pexels search %q: %w", keyword, err)
	}

	var body searchResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return nil, fmt.Errorf("decode pexels response: %w", err)
	}

	urls := make([]string, 0, len(body.Photos))
	for i, photo := range body.Photos {
		if photo.Src == nil || photo.Src.Original == "" {
			return nil, fmt.Errorf("pexels photo %d (id %d) has no src.original", i, photo.ID)
		}
		urls = append(urls, photo.Src.Original)
	}
	return urls, nil
}
