package wallpaper

import (
	"context"
	"io"
	"time"
)

// Source searches a stock-photo API and returns candidate image URLs in relevance order.
type Source interface {
	Name() string
	Search(ctx context.Context, keyword string, pageSize int) ([]string, error)
}

// AssetProcessor turns one candidate URL into a stored asset and its manifest record.
type AssetProcessor interface {
	Process(ctx context.Context, category string, url string) (Record, error)
}

// Fetcher performs a single HTTP request and returns the body plus metadata.
type Fetcher interface {
	Fetch(ctx context.Context, request FetchRequest) (FetchResponse, error)
}

// Host re-uploads image bytes to a hosting service and returns the hosted URL.
type Host interface {
	Upload(ctx context.Context, name string, data []byte) (string, error)
}

// BlobStore writes raw artifacts and returns their location.
type BlobStore interface {
	PutObject(ctx context.Context, path string, contentType string, data io.Reader) (string, error)
}

// Publisher pushes asset events to Pub/Sub (or similar).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Hasher computes content digests.
type Hasher interface {
	Hash(data []byte) (string, error)
}

// Clock returns the current time and pauses between operations.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
