package ports

import "context"

// FetcherPort performs remote existence probes and downloads. Both
// operations are memoized per URL for the lifetime of the instance:
// concurrent calls for the same URL collapse into one network
// operation and observe the same result. A failed attempt means the
// file does not exist at that location; the resolver's repository
// fallback loop is the retry mechanism.
type FetcherPort interface {
	// Probe issues a header-only request, following redirects.
	// It returns true only on a success status.
	Probe(ctx context.Context, url string) bool
	// Fetch downloads the complete body. It returns false on any
	// failure (malformed URL, connection error, non-2xx status).
	Fetch(ctx context.Context, url string) ([]byte, bool)
}
