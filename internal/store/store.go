// Package store defines the persistence boundary the checking engine
// consumes: a source of due URLs and a sink for completed results. The
// actual database schema and SQL access are out of scope; this package also
// provides an in-memory implementation used by tests and suited to local
// experimentation.
package store

import (
	"context"
	"time"

	"github.com/repology/repology-linkchecker/internal/status"
)

// Update is a single URL's completed check, ready to persist.  A nil family
// result means that family was not probed and leaves the row's
// last_success/last_failure for that family untouched.
type Update struct {
	// URL is the checked URL.
	URL string

	// CheckTime is when the check was performed.
	CheckTime time.Time

	// NextCheckTime is when the URL becomes due for an ordinary recheck.
	NextCheckTime time.Time

	// PriorityNextCheckTime is when the URL becomes due for a priority
	// recheck.
	PriorityNextCheckTime time.Time

	// IPv4 is the IPv4 probe's outcome, or nil if it was not probed.
	IPv4 *status.Url

	// IPv6 is the IPv6 probe's outcome, or nil if it was not probed.
	IPv6 *status.Url

	// CheckDurationSeconds is the wall-clock time the probe took, zero if
	// no probe was actually performed (e.g. a blacklisted or skipped
	// host).
	CheckDurationSeconds float64

	// Priority marks this URL as due for a priority recheck, so
	// NextCheckTime should be taken from PriorityNextCheckTime instead of
	// the ordinary next-check time.
	Priority bool
}

// Store is the persistence boundary the core depends on.
type Store interface {
	// URLsDue streams URLs due for a recheck.  The returned channel is
	// closed when the store has no more due URLs to offer, or ctx is
	// canceled.  Ordering is opaque but expected to be host-fair and
	// bounded in size.
	URLsDue(ctx context.Context) (<-chan string, error)

	// Update persists a completed check.
	Update(ctx context.Context, u Update) (err error)

	// BumpStats atomically increments the store-wide checked-URL counter
	// by n.
	BumpStats(ctx context.Context, n int) (err error)
}
