package processor

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Dispatcher partitions a batch of URLs across three processors — checked
// in this fixed order: blacklisted hosts, HTTP(S) probing, and the inert
// fallback — and runs each partition's Process concurrently.
type Dispatcher struct {
	blacklisted Processor
	http        Processor
	dummy       Processor
}

// NewDispatcher returns a new *Dispatcher.  dummy must taste every URL, as
// it is tried last and serves as the fallback for anything blacklisted and
// http do not claim.
func NewDispatcher(blacklisted, http, dummy Processor) (d *Dispatcher) {
	return &Dispatcher{blacklisted: blacklisted, http: http, dummy: dummy}
}

// Taste implements the [Processor] interface for *Dispatcher.  It always
// matches: every URL belongs to exactly one of its three partitions.
func (d *Dispatcher) Taste(_ string) (ok bool) {
	return true
}

// Process implements the [Processor] interface for *Dispatcher.  It buckets
// urls once, by the first of blacklisted, http, dummy (in that order) to
// taste each URL, then runs the three partitions' Process concurrently.
func (d *Dispatcher) Process(ctx context.Context, urls []string) (err error) {
	var blacklistedURLs, httpURLs, dummyURLs []string

	for _, u := range urls {
		switch {
		case d.blacklisted.Taste(u):
			blacklistedURLs = append(blacklistedURLs, u)
		case d.http.Taste(u):
			httpURLs = append(httpURLs, u)
		default:
			dummyURLs = append(dummyURLs, u)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() (err error) { return d.blacklisted.Process(gctx, blacklistedURLs) })
	g.Go(func() (err error) { return d.http.Process(gctx, httpURLs) })
	g.Go(func() (err error) { return d.dummy.Process(gctx, dummyURLs) })

	return g.Wait()
}

// type check
var _ Processor = (*Dispatcher)(nil)
