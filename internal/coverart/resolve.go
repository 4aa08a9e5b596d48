package coverart

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// fetchTimeout bounds a single artwork GET; artwork lives on the player's
// LAN or a streaming service's CDN, never behind a slow chain of redirects.
const fetchTimeout = 5 * time.Second

// Fetcher resolves artwork bytes for a URL, checking cache first and
// populating it on a successful network fetch. data: URLs (the embedded
// sentinel) are decoded in place and never touch the cache or network.
type Fetcher struct {
	cache  *Cache
	client *http.Client
}

// NewFetcher builds a Fetcher backed by cache, using client if non-nil or a
// fetchTimeout-bounded default otherwise.
func NewFetcher(cache *Cache, client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: fetchTimeout}
	}
	return &Fetcher{cache: cache, client: client}
}

// Resolve returns the image bytes for url, fetching over HTTP(S) on a cache
// miss. A data: URL sentinel is decoded directly and bypasses the cache.
func (f *Fetcher) Resolve(ctx context.Context, url string) ([]byte, error) {
	if strings.HasPrefix(url, "data:") {
		return decodeDataURL(url)
	}

	if data, ok := f.cache.Get(url); ok {
		return data, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("coverart: fetch %s: unexpected status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	f.cache.Set(url, data)
	return data, nil
}

func decodeDataURL(raw string) ([]byte, error) {
	_, encoded, found := strings.Cut(raw, ",")
	if !found {
		return nil, fmt.Errorf("coverart: malformed data URL")
	}
	return base64.StdEncoding.DecodeString(encoded)
}
