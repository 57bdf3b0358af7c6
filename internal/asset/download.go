package asset

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

func download(ctx context.Context, fetcher wallpaper.Fetcher, url string, timeout time.Duration) ([]byte, error) {
	resp, err := fetcher.Fetch(ctx, wallpaper.FetchRequest{URL: url, Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if err := wallpaper.ExpectStatus(resp, http.StatusOK); err != nil {
		return nil, fmt.Errorf("download %s: %w", url, err)
	}
	if len(resp.Body) == 0 {
		return nil, fmt.Errorf("download %s: empty body", url)
	}
	return resp.Body, nil
}
