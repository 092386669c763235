// Package processor dispatches due URLs to one of three family-specific
// handlers — blacklisted hosts, HTTP(S) probing, and an inert fallback — and
// forwards each outcome to the updater.
package processor

import "context"

// Processor handles a batch of URLs it claims via Taste.
type Processor interface {
	// Taste reports whether this processor handles rawURL.
	Taste(rawURL string) bool

	// Process checks or otherwise handles every URL in urls, persisting a
	// result for each via the updater.
	Process(ctx context.Context, urls []string) error
}
