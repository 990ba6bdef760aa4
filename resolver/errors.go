package resolver

import "errors"

var (
	// ErrConfig means the resolver cannot run at all, typically because the
	// Data API key is missing. No partial work is attempted.
	ErrConfig         = errors.New("configuration error")
	ErrInvalidRequest = errors.New("invalid request")
	// ErrDiscoveryUnavailable is returned by the structured discovery path and
	// triggers the scraping fallback.
	ErrDiscoveryUnavailable = errors.New("structured discovery unavailable")
	ErrDiscoveryExhausted   = errors.New("no videos found for channel")
	// ErrPageFetch marks a single failed pagination request. It never leaves
	// the package.
	ErrPageFetch   = errors.New("page fetch failed")
	ErrBatchLookup = errors.New("batch video lookup failed")
)
