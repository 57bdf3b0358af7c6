package pexels

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/birdwall/internal/wallpaper"
)

func TestSearchExtractsOriginalURLs(t *testing.T) {
	t.Setenv("TEST_PEXELS_KEY", "pexels-secret")

	fetcher := &fakeFetcher{resp: wallpaper.FetchResponse{
		StatusCode: http.StatusOK,
		Body: []byte(`{"photos":[
			{"id":1,"src":{"original":"https://images.pexels.com/1.jpeg","large":"x"}},
			{"id":2,"src":{"original":"https://images.pexels.com/2.jpeg"}}
		]}`),
	}}
	c := New(fetcher, Config{BaseURL: "https://api.test/v1/search", KeyEnv: "TEST_PEXELS_KEY"})

	urls, err := c.Search(context.Background(), "mobile wallpaper bird", 20)
	require.NoError(t, err)
	assert.Equal(t, []string{"https://images.pexels.com/1.jpeg", "https://images.pexels.com/2.jpeg"}, urls)

	require.Len(t, fetcher.requests, 1)
	req := fetcher.requests[0]
	assert.Equal(t, "pexels-secret", req.Headers.Get("Authorization"))
	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	assert.Equal(t, "api.test", u.Host)
	assert.Equal(t, "mobile wallpaper bird", u.Query().Get("query"))
	assert.Equal(t, "20", u.Query().Get("per_page"))
	assert.Equal(t, "pexels", c.Name())
}

func TestSearchReadsKeyPerCall(t *testing.T) {
	fetcher := &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"photos":[]}`)}}
	c := New(fetcher, Config{KeyEnv: "TEST_PEXELS_ROTATE"})

	t.Setenv("TEST_PEXELS_ROTATE", "one")
	_, err := c.Search(context.Background(), "bird", 5)
	require.NoError(t, err)
	t.Setenv("TEST_PEXELS_ROTATE", "two")
	_, err = c.Search(context.Background(), "bird", 5)
	require.NoError(t, err)

	assert.Equal(t, "one", fetcher.requests[0].Headers.Get("Authorization"))
	assert.Equal(t, "two", fetcher.requests[1].Headers.Get("Authorization"))
}

func TestSearchErrors(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		fetcher *fakeFetcher
	}{
		{"transport", &fakeFetcher{err: errors.New("dial tcp: refused")}},
		{"unauthorized", &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusUnauthorized, Body: []byte(`{}`)}}},
		{"malformed json", &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"photos":`)}}},
		{"missing src", &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"photos":[{"id":3}]}`)}}},
		{"missing original", &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"photos":[{"id":3,"src":{}}]}`)}}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			_, err := New(tc.fetcher, Config{}).Search(context.Background(), "bird", 10)
			assert.Error(t, err)
		})
	}
}

func TestSearchNoPhotosKey(t *testing.T) {
	t.Parallel()

	fetcher := &fakeFetcher{resp: wallpaper.FetchResponse{StatusCode: http.StatusOK, Body: []byte(`{"total_results":0}`)}}
	urls, err := New(fetcher, Config{}).Search(context.Background(), "bird", 10)
	require.NoError(t, err)
	assert.Empty(t, urls)
}

type fakeFetcher struct {
	resp     wallpaper.FetchResponse
	err      error
	requests []wallpaper.FetchRequest
}

func (f *fakeFetcher) Fetch(_ context.Context, req wallpaper.FetchRequest) (wallpaper.FetchResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return wallpaper.FetchResponse{}, f.err
	}
	resp := f.resp
	resp.URL = req.URL
	return resp, nil
}
