package coverart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetMissesOnEmptyCache(t *testing.T) {
	c := New(time.Hour, 10)
	_, ok := c.Get("http://device/art.png")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Misses)
}

func TestSetThenGetHits(t *testing.T) {
	c := New(time.Hour, 10)
	c.Set("http://device/art.png", []byte("bytes"))

	data, ok := c.Get("http://device/art.png")
	require.True(t, ok)
	assert.Equal(t, []byte("bytes"), data)
	assert.Equal(t, int64(1), c.Stats().Hits)
}

func TestEntryExpiresAfterTTL(t *testing.T) {
	c := New(time.Millisecond, 10)
	c.Set("http://device/art.png", []byte("bytes"))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("http://device/art.png")
	assert.False(t, ok)
	assert.Equal(t, int64(1), c.Stats().Evicted)
}

func TestCapacityEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(time.Hour, 2)
	c.Set("a", []byte("1"))
	c.Set("b", []byte("2"))
	// touch "a" so "b" becomes the LRU entry.
	c.Get("a")
	c.Set("c", []byte("3"))

	_, ok := c.Get("b")
	assert.False(t, ok, "b should have been evicted as least-recently-used")

	_, ok = c.Get("a")
	assert.True(t, ok)
	_, ok = c.Get("c")
	assert.True(t, ok)

	assert.Equal(t, 2, c.Stats().Entries)
}

func TestInvalidateRemovesEntry(t *testing.T) {
	c := New(time.Hour, 10)
	c.Set("a", []byte("1"))
	c.Invalidate("a")

	_, ok := c.Get("a")
	assert.False(t, ok)
}

func TestFetcherResolvesDataURLWithoutNetwork(t *testing.T) {
	c := New(time.Hour, 10)
	f := NewFetcher(c, nil)

	data, err := f.Resolve(context.Background(), "data:image/png;base64,aGVsbG8=")
	require.NoError(t, err)
	assert.Equal(t, []byte("hello"), data)
	assert.Equal(t, 0, c.Stats().Entries, "sentinel data URLs bypass the cache")
}

func TestFetcherCachesSuccessfulFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("art-bytes"))
	}))
	defer srv.Close()

	c := New(time.Hour, 10)
	f := NewFetcher(c, srv.Client())

	data, err := f.Resolve(context.Background(), srv.URL+"/art.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("art-bytes"), data)

	cached, ok := c.Get(srv.URL + "/art.png")
	require.True(t, ok)
	assert.Equal(t, data, cached)
}

func TestFetcherPropagatesNonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New(time.Hour, 10)
	f := NewFetcher(c, srv.Client())

	_, err := f.Resolve(context.Background(), srv.URL+"/missing.png")
	assert.Error(t, err)
	assert.Equal(t, 0, c.Stats().Entries)
}
