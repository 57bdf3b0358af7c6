// Package imgbb re-hosts images through the imgbb upload API.
package imgbb

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// DefaultBaseURL is the imgbb upload endpoint.
const DefaultBaseURL = "https://api.imgbb.com/1/upload"

// ErrMissingURL is returned when a successful upload carries no data.url.
var ErrMissingURL = errors.New("imgbb response has no data.url")

// Config locates the API and its key.
type Config struct {
	BaseURL string
	// KeyEnv names the environment variable read on every upload.
	KeyEnv  string
	Timeout time.Duration
}

// Client implements wallpaper.Host.
type Client struct {
	fetcher wallpaper.Fetcher
	cfg     Config
}

type uploadResponse struct {
	Data *struct {
		URL string `json:"url"`
	} `json:"data"`
}

// New returns an imgbb client.
func New(fetcher wallpaper.Fetcher, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.KeyEnv == "" {
		cfg.KeyEnv = "IMGBB_KEY"
	}
	return &Client{fetcher: fetcher, cfg: cfg}
}

// Upload posts data as a base64 form field and returns the hosted URL.
func (c *Client) Upload(ctx context.Context, name string, data []byte) (string, error) {
	resp, err := c.fetcher.Fetch(ctx, wallpaper.FetchRequest{
		URL: c.cfg.BaseURL,
		Form: map[string]string{
			"key":   os.Getenv(c.cfg.KeyEnv),
			"image": base64.StdEncoding.EncodeToString(data),
			"name":  name,
		},
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		return "", fmt.Errorf("imgbb upload %s: %w", name, err)
	}
	if err := wallpaper.ExpectStatus(resp, http.StatusOK); err != nil {
		return "", fmt.Errorf("imgbb upload %s: %w", name, err)
	}

	var body uploadResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return "", fmt.Errorf("decode imgbb response: %w", err)
	}
	if body.Data == nil || body.Data.URL == "" {
		return "", fmt.Errorf("imgbb upload %s: %w", name, ErrMissingURL)
	}
	return body.Data.URL, nil
}
