package adapters

import (
	"context"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"gradle-sources-list/internal/ports"
	"gradle-sources-list/internal/shared"
)

// The original transport had no explicit deadline; an unresponsive
// host could hang a run indefinitely.
const defaultFetchTimeout = 30 * time.Second

// HTTPFetcher probes and downloads remote files. Every URL is probed
// or fetched at most once per instance: results are memoized and
// concurrent requests for the same URL collapse into a single network
// operation. Failures are never retried here; the resolver's
// repository fallback is the retry mechanism.
type HTTPFetcher struct {
	client *http.Client

	probeFlight singleflight.Group
	fetchFlight singleflight.Group

	mu      sync.RWMutex
	probes  map[string]bool
	fetches map[string]fetchResult
}

type fetchResult struct {
	data []byte
	ok   bool
}

func NewHTTPFetcher() *HTTPFetcher {
	return &HTTPFetcher{
		client:  &http.Client{Timeout: defaultFetchTimeout},
		probes:  map[string]bool{},
		fetches: map[string]fetchResult{},
	}
}

// Probe issues a HEAD request following redirects. It returns true
// only for a success status; any transport error means the file does
// not exist at this location.
func (f *HTTPFetcher) Probe(ctx context.Context, url string) bool {
	f.mu.RLock()
	valid, ok := f.probes[url]
	f.mu.RUnlock()
	if ok {
		return valid
	}

	result, _, _ := f.probeFlight.Do(url, func() (interface{}, error) {
		valid := f.probeOnce(ctx, url)
		f.mu.Lock()
		f.probes[url] = valid
		f.mu.Unlock()
		return valid, nil
	})
	return result.(bool)
}

func (f *HTTPFetcher) probeOnce(ctx context.Context, url string) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return false
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("url", url).Msg("probe failed")
		return false
	}
	defer resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// Fetch downloads the complete body of url. A cache hit returns the
// previously fetched bytes, or the previously recorded absence,
// without touching the network again.
func (f *HTTPFetcher) Fetch(ctx context.Context, url string) ([]byte, bool) {
	f.mu.RLock()
	cached, ok := f.fetches[url]
	f.mu.RUnlock()
	if ok {
		return cached.data, cached.ok
	}

	result, _, _ := f.fetchFlight.Do(url, func() (interface{}, error) {
		fetched := f.fetchOnce(ctx, url)
		f.mu.Lock()
		f.fetches[url] = fetched
		f.mu.Unlock()
		return fetched, nil
	})
	fetched := result.(fetchResult)
	return fetched.data, fetched.ok
}

func (f *HTTPFetcher) fetchOnce(ctx context.Context, url string) fetchResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fetchResult{}
	}
	resp, err := f.client.Do(req)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("url", url).Msg("fetch failed")
		return fetchResult{}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		log.Ctx(ctx).Debug().Err(shared.HTTPStatusError(resp.StatusCode, url)).Msg("fetch rejected")
		return fetchResult{}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Ctx(ctx).Debug().Err(err).Str("url", url).Msg("fetch body read failed")
		return fetchResult{}
	}
	return fetchResult{data: data, ok: true}
}

var _ ports.FetcherPort = (*HTTPFetcher)(nil)
