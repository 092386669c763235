package processor

import (
	"context"
	"fmt"

	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/repology/repology-linkchecker/internal/updater"
)

// Blacklisted handles URLs whose host is blacklisted or skipped by policy,
// without ever touching the network.  A skipped host's row is simply
// advanced to its next check time with no status; a blacklisted host's row
// records an explicit [status.Blacklisted] failure for both families.
type Blacklisted struct {
	updater *updater.Updater
	policy  *hostpolicy.Policy
}

// NewBlacklisted returns a new *Blacklisted.
func NewBlacklisted(u *updater.Updater, p *hostpolicy.Policy) (b *Blacklisted) {
	return &Blacklisted{updater: u, policy: p}
}

// Taste implements the [Processor] interface for *Blacklisted.
func (b *Blacklisted) Taste(rawURL string) (ok bool) {
	return b.policy.HostStatus(rawURL) != hostpolicy.StatusOK
}

// Process implements the [Processor] interface for *Blacklisted.
func (b *Blacklisted) Process(ctx context.Context, urls []string) (err error) {
	for _, u := range urls {
		res := updater.Result{URL: u}

		if b.policy.HostStatus(u) == hostpolicy.StatusBlacklisted {
			blacklisted := &status.Url{Success: false, Code: status.Blacklisted}
			res.IPv4 = blacklisted
			res.IPv6 = blacklisted
		}

		if err = b.updater.Update(ctx, res); err != nil {
			return fmt.Errorf("blacklisted processor: %w", err)
		}
	}

	return nil
}
