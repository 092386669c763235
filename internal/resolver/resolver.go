// Package resolver implements the pre-cached, per-batch DNS resolution used
// by the probing pipeline: independent A and AAAA lookups, issued
// concurrently and memoized by host name for the lifetime of one scheduler
// iteration.
package resolver

import (
	"context"
	"fmt"
	"net/netip"
	"sync"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/miekg/dns"
	gocache "github.com/patrickmn/go-cache"
)

// Family is a DNS record family: A or AAAA.
type Family int

// Family values.
const (
	IPv4 Family = iota
	IPv6
)

// String implements the fmt.Stringer interface for Family.
func (f Family) String() (s string) {
	switch f {
	case IPv4:
		return "ipv4"
	case IPv6:
		return "ipv6"
	default:
		return "unknown"
	}
}

// dnsType returns the question type to use for a lookup of this family.
func (f Family) dnsType() (qt uint16) {
	if f == IPv6 {
		return dns.TypeAAAA
	}

	return dns.TypeA
}

// ErrNoAddressRecord is returned by a per-family lookup that received a
// successful, but empty, answer.
const ErrNoAddressRecord errors.Error = "no address record"

// ErrIPv4MappedInAAAA is returned when an AAAA answer contains an
// IPv4-mapped IPv6 address, which is invalid in this context.
const ErrIPv4MappedInAAAA errors.Error = "ipv4-mapped address in aaaa record"

// RcodeError is returned when a DNS response carries a non-success RCODE.
type RcodeError struct {
	Rcode int
}

// Error implements the error interface for *RcodeError.
func (err *RcodeError) Error() (msg string) {
	return fmt.Sprintf("dns server returned %s", dns.RcodeToString[err.Rcode])
}

// AddrResult is the outcome of resolving one family for one host: either a
// non-empty address list or an error.
type AddrResult struct {
	Err       error
	Addresses []netip.Addr
}

// HostResolution is the memoized per-host result of a resolution batch: the
// independent IPv4 and IPv6 outcomes.
type HostResolution struct {
	IPv4 AddrResult
	IPv6 AddrResult
}

// Exchanger is the subset of *dns.Client's API the resolver depends on,
// extracted so that callers can substitute an alternative DNS transport —
// or, in tests, a canned responder that performs no real network I/O.
type Exchanger interface {
	ExchangeContext(ctx context.Context, m *dns.Msg, address string) (r *dns.Msg, rtt time.Duration, err error)
}

// Config is the configuration for [New].
type Config struct {
	// Server is the address, in "host:port" form, of the upstream DNS
	// server to query.
	Server string

	// Timeout is the per-query timeout.
	Timeout time.Duration
}

// Resolver issues concurrent A/AAAA lookups and memoizes the result by host
// for as long as the resolver lives.  A new Resolver should be created for
// each scheduler iteration, as described in the package documentation.
type Resolver struct {
	client  Exchanger
	server  string
	cache   *gocache.Cache
	ctx     context.Context
	cancel  context.CancelFunc
	mu      *sync.Mutex
	pending map[string]chan struct{}
}

// New returns a new *Resolver that queries c.Server over a plain *dns.Client.
// c must not be nil.
func New(c *Config) (r *Resolver) {
	return NewWithExchanger(c.Server, &dns.Client{Timeout: c.Timeout})
}

// NewWithExchanger returns a new *Resolver that issues queries through
// exchange instead of constructing its own *dns.Client, addressing them to
// server.  This is the seam adapters for alternative DNS transports (and
// tests substituting a canned responder) hook into.
func NewWithExchanger(server string, exchange Exchanger) (r *Resolver) {
	ctx, cancel := context.WithCancel(context.Background())

	return &Resolver{
		client:  exchange,
		server:  server,
		cache:   gocache.New(gocache.NoExpiration, gocache.NoExpiration),
		ctx:     ctx,
		cancel:  cancel,
		mu:      &sync.Mutex{},
		pending: map[string]chan struct{}{},
	}
}

// Resolve returns the memoized [HostResolution] for host, issuing the A and
// AAAA lookups concurrently the first time host is seen.  Concurrent callers
// resolving the same host that hasn't been seen yet share a single pair of
// in-flight queries.
func (r *Resolver) Resolve(ctx context.Context, host string) (res HostResolution) {
	if v, ok := r.cache.Get(host); ok {
		return v.(HostResolution)
	}

	r.mu.Lock()
	if done, inflight := r.pending[host]; inflight {
		r.mu.Unlock()

		<-done

		v, _ := r.cache.Get(host)

		return v.(HostResolution)
	}

	done := make(chan struct{})
	r.pending[host] = done
	r.mu.Unlock()

	lookupCtx, lookupCancel := r.withCancellation(ctx)
	defer lookupCancel()

	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()

		res.IPv4 = r.lookup(lookupCtx, host, IPv4)
	}()

	go func() {
		defer wg.Done()

		res.IPv6 = r.lookup(lookupCtx, host, IPv6)
	}()

	wg.Wait()

	r.cache.SetDefault(host, res)

	r.mu.Lock()
	delete(r.pending, host)
	r.mu.Unlock()

	close(done)

	return res
}

// withCancellation returns a context derived from ctx that is also canceled
// when the resolver itself is closed.
func (r *Resolver) withCancellation(
	ctx context.Context,
) (out context.Context, cancel context.CancelFunc) {
	out, cancel = context.WithCancel(ctx)

	go func() {
		select {
		case <-r.ctx.Done():
			cancel()
		case <-out.Done():
		}
	}()

	return out, cancel
}

// lookup performs a single-family DNS query for host.
func (r *Resolver) lookup(ctx context.Context, host string, family Family) (res AddrResult) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(host), family.dnsType())
	m.RecursionDesired = true

	resp, _, err := r.client.ExchangeContext(ctx, m, r.server)
	if err != nil {
		return AddrResult{Err: fmt.Errorf("exchanging %s query for %q: %w", family, host, err)}
	}

	if resp.Rcode != dns.RcodeSuccess {
		return AddrResult{Err: &RcodeError{Rcode: resp.Rcode}}
	}

	addrs := make([]netip.Addr, 0, len(resp.Answer))
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			if a, ok := netip.AddrFromSlice(rec.A.To4()); ok {
				addrs = append(addrs, a)
			}
		case *dns.AAAA:
			if a, ok := netip.AddrFromSlice(rec.AAAA.To16()); ok {
				addrs = append(addrs, a)
			}
		}
	}

	if len(addrs) == 0 {
		return AddrResult{Err: ErrNoAddressRecord}
	}

	if family == IPv6 {
		for _, a := range addrs {
			if a.Is4In6() {
				return AddrResult{Err: ErrIPv4MappedInAAAA}
			}
		}
	}

	return AddrResult{Addresses: addrs}
}

// Close cancels any in-flight queries.  The scheduler calls it only on
// the resolver that is current when the scheduler shuts down; the
// resolvers of earlier iterations are dropped without being closed.
func (r *Resolver) Close() (err error) {
	r.cancel()

	return nil
}
