package wallpaper

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// TimestampLayout is the ISO-8601 layout used for record timestamps.
const TimestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// Record is one manifest entry describing a stored asset.
type Record struct {
	Location    string `json:"location"`
	SourceURL   string `json:"source_url,omitempty"`
	Category    string `json:"category"`
	Timestamp   string `json:"timestamp"`
	ContentHash string `json:"content_hash,omitempty"`
}

// UnmarshalJSON also accepts the legacy record keys
// (file, url, downloaded_at) so older manifests carry forward.
func (r *Record) UnmarshalJSON(data []byte) error {
	type plain Record
	var aux struct {
		plain
		File         string `json:"file"`
		URL          string `json:"url"`
		DownloadedAt string `json:"downloaded_at"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Record(aux.plain)
	if r.Location == "" {
		r.Location = aux.File
	}
	if r.SourceURL == "" {
		r.SourceURL = aux.URL
	}
	if r.Timestamp == "" {
		r.Timestamp = aux.DownloadedAt
	}
	return nil
}

// Category pairs a device bucket with the search keyword used to fill it.
type Category struct {
	Name    string `mapstructure:"name" json:"name"`
	Keyword string `mapstructure:"keyword" json:"keyword"`
}

// FetchRequest captures everything needed for one outbound HTTP call.
// A non-nil Form turns the request into a form-encoded POST.
type FetchRequest struct {
	URL     string
	Headers http.Header
	Form    map[string]string
	Timeout time.Duration
}

// FetchResponse is the result returned by a Fetcher implementation.
type FetchResponse struct {
	URL        string
	StatusCode int
	Headers    http.Header
	Body       []byte
	Duration   time.Duration
}

// AssetEvent is published after an asset has been stored.
type AssetEvent struct {
	RunID       string `json:"run_id"`
	Category    string `json:"category"`
	Location    string `json:"location"`
	SourceURL   string `json:"source_url"`
	ContentHash string `json:"content_hash,omitempty"`
	Timestamp   string `json:"timestamp"`
}

// ErrUnexpectedStatus marks a response whose HTTP status was not the one required.
var ErrUnexpectedStatus = errors.New("unexpected http status")

// ExpectStatus returns an ErrUnexpectedStatus-wrapped error unless resp has the wanted status.
func ExpectStatus(resp FetchResponse, want int) error {
	if resp.StatusCode != want {
		return fmt.Errorf("%w: %s returned %d", ErrUnexpectedStatus, resp.URL, resp.StatusCode)
	}
	return nil
}
