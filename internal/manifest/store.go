// Package manifest persists the per-category JSON index of stored wallpapers.
//
// The manifest is loaded once, mutated in memory through EnsureCategory and
// Append, and written back wholesale by Save. Malformed state on disk is not
// fatal: it degrades to an empty manifest and a warning is logged.
package manifest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

// Store holds the category → records mapping backed by a JSON file.
type Store struct {
	mu      sync.RWMutex
	path    string
	entries map[string][]wallpaper.Record
	logger  *zap.Logger
}

// New returns an empty store that will save to path.
func New(path string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{
		path:    path,
		entries: make(map[string][]wallpaper.Record),
		logger:  logger,
	}
}

// Load reads the manifest at path. A missing, unreadable, empty, malformed or
// non-object file yields an empty store; a category whose value is not a list
// of records is reset to empty. Problems are logged, never returned.
func Load(path string, logger *zap.Logger) *Store {
	s := New(path, logger)

	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return s
	}
	if err != nil {
		s.logger.Warn("manifest unreadable, starting empty", zap.String("path", path), zap.Error(err))
		return s
	}

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		s.logger.Warn("manifest is empty, starting empty", zap.String("path", path))
		return s
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &raw); err != nil {
		if trimmed[0] != '{' {
			s.logger.Warn("manifest is not a JSON object, resetting it", zap.String("path", path))
		} else {
			s.logger.Warn("manifest is invalid, resetting it", zap.String("path", path), zap.Error(err))
		}
		return s
	}
	// A literal null decodes into a nil map without error.
	if raw == nil {
		s.logger.Warn("manifest is not a JSON object, resetting it", zap.String("path", path))
		return s
	}

	for category, value := range raw {
		var records []wallpaper.Record
		if err := json.Unmarshal(value, &records); err != nil {
			s.logger.Warn("manifest category is malformed, resetting it",
				zap.String("path", path),
				zap.String("category", category),
				zap.Error(err),
			)
			records = nil
		}
		if records == nil {
			records = []wallpaper.Record{}
		}
		s.entries[category] = records
	}
	return s
}

// Path returns the file the store saves to.
func (s *Store) Path() string {
	return s.path
}

// EnsureCategory makes sure name has an entry, initialising it to an empty list.
func (s *Store) EnsureCategory(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[name]; !ok {
		s.entries[name] = []wallpaper.Record{}
	}
}

// Append adds record to the list for name. Existing records are not checked for duplicates.
func (s *Store) Append(name string, record wallpaper.Record) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[name] = append(s.entries[name], record)
}

// Records returns a copy of the records stored for name.
func (s *Store) Records(name string) []wallpaper.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	records := s.entries[name]
	out := make([]wallpaper.Record, len(records))
	copy(out, records)
	return out
}

// Categories returns the category names present, sorted.
func (s *Store) Categories() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.entries))
	for name := range s.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of records across categories.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := 0
	for _, records := range s.entries {
		total += len(records)
	}
	return total
}

// Save overwrites the manifest file with the full mapping, indented by two spaces.
// The write is not atomic.
func (s *Store) Save() error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create manifest dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(s.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o644); err != nil { //nolint:gosec // manifest is meant to be world readable
		return fmt.Errorf("write manifest %s: %w", s.path, err)
	}
	return nil
}
