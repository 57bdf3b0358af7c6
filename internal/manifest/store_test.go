package manifest

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.DebugLevel)
	s := Load(filepath.Join(t.TempDir(), "index.json"), zap.New(core))
	assert.Zero(t, s.Count())
	assert.Empty(t, s.Categories())
	assert.Zero(t, logs.Len(), "a missing manifest is not worth a warning")
}

func TestLoadDegradesToEmpty(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		content string
	}{
		{"empty file", ""},
		{"whitespace", "  \n"},
		{"invalid json", "{not json"},
		{"array", `[{"location":"a"}]`},
		{"string", `"mobile"`},
		{"number", `42`},
		{"null", `null`},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			path := writeFile(t, tc.content)
			core, logs := observer.New(zapcore.WarnLevel)
			s := Load(path, zap.New(core))
			assert.Zero(t, s.Count())
			assert.Empty(t, s.Categories())
			assert.Equal(t, 1, logs.Len())
		})
	}
}

func TestLoadResetsMalformedCategoryOnly(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `{"mobile":[{"location":"a.jpg","category":"mobile","timestamp":"t"}],"tablet":5,"empty":null}`)
	core, logs := observer.New(zapcore.WarnLevel)
	s := Load(path, zap.New(core))

	assert.Equal(t, []string{"empty", "mobile", "tablet"}, s.Categories())
	assert.Len(t, s.Records("mobile"), 1)
	assert.Empty(t, s.Records("tablet"))
	assert.Empty(t, s.Records("empty"))
	require.Equal(t, 1, logs.Len())
	assert.Equal(t, "tablet", logs.All()[0].ContextMap()["category"])
}

func TestLoadLegacyRecords(t *testing.T) {
	t.Parallel()

	path := writeFile(t, `{
  "mobile": [
    {
      "file": "images/mobile/mobile-20240101-010203-000004-1234.jpg",
      "url": "https://images.pexels.com/photos/1/a.jpeg",
      "category": "mobile",
      "downloaded_at": "2024-01-01T01:02:03.000004"
    }
  ]
}`)
	s := Load(path, zap.NewNop())
	records := s.Records("mobile")
	require.Len(t, records, 1)
	assert.Equal(t, "images/mobile/mobile-20240101-010203-000004-1234.jpg", records[0].Location)
	assert.Equal(t, "https://images.pexels.com/photos/1/a.jpeg", records[0].SourceURL)
	assert.Equal(t, "2024-01-01T01:02:03.000004", records[0].Timestamp)
}

func TestEnsureCategoryIdempotent(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "index.json"), nil)
	s.EnsureCategory("mobile")
	s.Append("mobile", record("a"))
	s.EnsureCategory("mobile")

	assert.Equal(t, []wallpaper.Record{record("a")}, s.Records("mobile"))
}

func TestAppendDoesNotDeduplicate(t *testing.T) {
	t.Parallel()

	s := New(filepath.Join(t.TempDir(), "index.json"), nil)
	s.Append("mobile", record("a"))
	s.Append("mobile", record("a"))
	assert.Len(t, s.Records("mobile"), 2)
	assert.Equal(t, 2, s.Count())
}

func TestSaveWritesEmptyCategoriesAsArrays(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "index.json")
	s := New(path, nil)
	s.EnsureCategory("tablet")
	require.NoError(t, s.Save())

	data, err := os.ReadFile(path) // #nosec G304 -- test reads from its temp dir.
	require.NoError(t, err)
	assert.Equal(t, "{\n  \"tablet\": []\n}", string(data))
}

func TestSaveLoadRoundTrip(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.json")
	s := New(path, nil)
	s.EnsureCategory("mobile")
	s.Append("mobile", record("a"))
	s.Append("mobile", record("b"))
	s.Append("tablet", wallpaper.Record{Location: "https://i.host/t.jpg", Category: "tablet", Timestamp: "t"})
	s.EnsureCategory("other_mobile")
	require.NoError(t, s.Save())

	loaded := Load(path, zap.NewNop())
	assert.Equal(t, s.Categories(), loaded.Categories())
	for _, name := range s.Categories() {
		assert.Equal(t, s.Records(name), loaded.Records(name), name)
	}
}

func TestAppendAfterExistingEntries(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "index.json")
	first := New(path, nil)
	first.Append("mobile", record("old"))
	require.NoError(t, first.Save())

	second := Load(path, zap.NewNop())
	second.EnsureCategory("mobile")
	second.Append("mobile", record("new"))
	require.NoError(t, second.Save())

	var onDisk map[string][]wallpaper.Record
	data, err := os.ReadFile(path) // #nosec G304 -- test reads from its temp dir.
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, []wallpaper.Record{record("old"), record("new")}, onDisk["mobile"])
}

func TestSaveFailsWhenPathIsDirectory(t *testing.T) {
	t.Parallel()

	s := New(t.TempDir(), nil)
	assert.Error(t, s.Save())
}

func record(name string) wallpaper.Record {
	return wallpaper.Record{
		Location:  "images/mobile/" + name + ".jpg",
		SourceURL: "https://example.test/" + name,
		Category:  "mobile",
		Timestamp: "2024-01-01T00:00:00.000000Z",
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
