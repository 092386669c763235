// Package updater computes jittered next-check deadlines for a completed
// probe and forwards the result to the store.
package updater

import (
	"context"
	"fmt"

	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/lcrand"
	"github.com/repology/repology-linkchecker/internal/lctime"
	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/repology/repology-linkchecker/internal/store"
)

// Updater computes next-check timestamps, with jitter, and persists a
// completed check via a [store.Store].
type Updater struct {
	st     store.Store
	policy *hostpolicy.Policy
	rand   *lcrand.Rand
	clock  lctime.Clock
}

// Config is the configuration for [New].
type Config struct {
	Store  store.Store
	Policy *hostpolicy.Policy

	// Rand supplies the jitter for next-check computation.  If nil, a
	// freshly seeded [lcrand.Rand] is created.
	Rand *lcrand.Rand

	// Clock supplies the current time.  If nil, [lctime.SystemClock] is
	// used.
	Clock lctime.Clock
}

// New returns a new *Updater.
func New(c *Config) (u *Updater) {
	r := c.Rand
	if r == nil {
		r = lcrand.NewRand()
	}

	clock := c.Clock
	if clock == nil {
		clock = lctime.SystemClock{}
	}

	return &Updater{
		st:     c.Store,
		policy: c.Policy,
		rand:   r,
		clock:  clock,
	}
}

// Result is a single completed URL check, as produced by a processor.
type Result struct {
	// URL is the checked URL.
	URL string

	// IPv4 is the IPv4 probe's outcome, or nil if it was not probed.
	IPv4 *status.Url

	// IPv6 is the IPv6 probe's outcome, or nil if it was not probed.
	IPv6 *status.Url

	// CheckDurationSeconds is the wall-clock time the probe took.
	CheckDurationSeconds float64

	// Priority marks this URL for a priority recheck schedule.
	Priority bool
}

// Update computes this URL's next-check deadlines and persists res via the
// store, then bumps the checked-URL counter by one.
func (u *Updater) Update(ctx context.Context, res Result) (err error) {
	normal, priority := u.policy.Rechecks(res.URL)

	now := u.clock.Now()

	upd := store.Update{
		URL:                   res.URL,
		CheckTime:             now,
		NextCheckTime:         now.Add(u.rand.UniformDuration(normal.Min, normal.Max)),
		PriorityNextCheckTime: now.Add(u.rand.UniformDuration(priority.Min, priority.Max)),
		IPv4:                  res.IPv4,
		IPv6:                  res.IPv6,
		CheckDurationSeconds:  res.CheckDurationSeconds,
		Priority:              res.Priority,
	}

	if err = u.st.Update(ctx, upd); err != nil {
		return fmt.Errorf("persisting result for %q: %w", res.URL, err)
	}

	if err = u.st.BumpStats(ctx, 1); err != nil {
		return fmt.Errorf("bumping statistics: %w", err)
	}

	return nil
}
