// Package sha256 fingerprints stored image bytes.
package sha256

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// ErrEmptyContent is returned when asked to fingerprint zero bytes.
var ErrEmptyContent = errors.New("empty content")

// Hasher implements wallpaper.Hasher using SHA-256.
type Hasher struct{}

// New returns a SHA-256 hasher.
func New() *Hasher {
	return &Hasher{}
}

// Hash returns the hex digest of data. Assets are never stored empty, so
// an empty input is reported rather than hashed.
func (h *Hasher) Hash(data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyContent
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}
