package processor

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/repology/repology-linkchecker/internal/classify"
	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/metrics"
	"github.com/repology/repology-linkchecker/internal/probe"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/repology/repology-linkchecker/internal/updater"
	"golang.org/x/time/rate"
)

// HttpConfig is the configuration for [NewHttp].
type HttpConfig struct {
	Updater  *updater.Updater
	Policy   *hostpolicy.Policy
	Resolver *resolver.Resolver

	// IPv4 and IPv6 probe http(s) URLs exclusively over their respective
	// address family.
	IPv4 *probe.Client
	IPv6 *probe.Client

	// SkipIPv6 disables the IPv6 probe entirely.
	SkipIPv6 bool

	// SatisfyWithIPv6 skips the IPv4 probe when the IPv6 probe already
	// succeeded.
	SatisfyWithIPv6 bool
}

// Http probes http(s) URLs over both address families, per host policy.
type Http struct {
	updater  *updater.Updater
	policy   *hostpolicy.Policy
	resolver atomic.Pointer[resolver.Resolver]
	ipv4     *probe.Client
	ipv6     *probe.Client

	skipIPv6        bool
	satisfyWithIPv6 bool
}

// NewHttp returns a new *Http.
func NewHttp(c *HttpConfig) (h *Http) {
	h = &Http{
		updater:         c.Updater,
		policy:          c.Policy,
		ipv4:            c.IPv4,
		ipv6:            c.IPv6,
		skipIPv6:        c.SkipIPv6,
		satisfyWithIPv6: c.SatisfyWithIPv6,
	}
	h.resolver.Store(c.Resolver)

	return h
}

// SetResolver atomically replaces the resolver used by subsequent checks.
// The scheduler calls this at the start of every iteration with a freshly
// created *resolver.Resolver, so memoized DNS answers never outlive the
// batch they were resolved for.
func (h *Http) SetResolver(r *resolver.Resolver) {
	h.resolver.Store(r)
}

// Taste implements the [Processor] interface for *Http.
func (h *Http) Taste(rawURL string) (ok bool) {
	return strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://")
}

// Process implements the [Processor] interface for *Http.
func (h *Http) Process(ctx context.Context, urls []string) (err error) {
	for _, u := range urls {
		res := h.check(ctx, u)

		if err = h.updater.Update(ctx, res); err != nil {
			return fmt.Errorf("http processor: %w", err)
		}
	}

	return nil
}

// check probes a single URL over both address families, applying the
// skip-ipv6 and satisfy-with-ipv6 policies: IPv6 is probed first (unless
// disabled), and gates the IPv4 probe when satisfy-with-ipv6 is set and the
// IPv6 probe already succeeded.  A family whose DNS lookup failed is never
// dialed; its outcome is synthesised straight from the DNS error.
func (h *Http) check(ctx context.Context, rawURL string) (res updater.Result) {
	start := time.Now()
	res.URL = rawURL

	host, err := hostOf(rawURL)
	if err != nil {
		invalid := &status.Url{Success: false, Code: status.InvalidURL}
		res.IPv4, res.IPv6 = invalid, invalid
		res.CheckDurationSeconds = time.Since(start).Seconds()

		return res
	}

	hr := h.resolver.Load().Resolve(ctx, host)
	delay := h.policy.Delay(rawURL)

	var ipv6 *status.Url
	if !h.skipIPv6 {
		ipv6 = h.probeFamily(ctx, "ipv6", rawURL, hr.IPv6, h.ipv6, delay)
	}

	var ipv4 *status.Url
	if h.satisfyWithIPv6 && ipv6 != nil && ipv6.Success {
		ipv4 = nil
	} else if hr.IPv4.Err != nil {
		ipv4 = &status.Url{Success: false, Code: classify.DNS(hr.IPv4.Err)}
	} else {
		ipv4 = h.probeFamily(ctx, "ipv4", rawURL, hr.IPv4, h.ipv4, delay)
	}

	res.IPv4 = ipv4
	res.IPv6 = ipv6
	res.CheckDurationSeconds = time.Since(start).Seconds()

	return res
}

// probeFamily checks rawURL over a single family, given that family's DNS
// resolution ar.  It never dials out when ar carries a DNS error.  family
// labels the duration histogram and status counter this records.
func (h *Http) probeFamily(
	ctx context.Context,
	family, rawURL string,
	ar resolver.AddrResult,
	client *probe.Client,
	delay time.Duration,
) (u *status.Url) {
	if ar.Err != nil {
		code := classify.DNS(ar.Err)
		metrics.StatusTotal.WithLabelValues(family, strconv.Itoa(int(code))).Inc()

		return &status.Url{Success: false, Code: code}
	}

	limiter := rate.NewLimiter(rate.Every(delay), 1)
	// Spend the initial token, so that the wait before the HEAD request
	// also lasts delay, and not only the one before the GET fallback.
	limiter.Allow()

	start := time.Now()
	result, err := client.Probe(ctx, rawURL, limiter)
	metrics.ProbeDurationSeconds.WithLabelValues(family).Observe(time.Since(start).Seconds())

	if err != nil {
		code := classify.HTTP(err)
		metrics.StatusTotal.WithLabelValues(family, strconv.Itoa(int(code))).Inc()

		return &status.Url{Success: false, Code: code}
	}

	metrics.StatusTotal.WithLabelValues(family, strconv.Itoa(int(result.Code))).Inc()

	return &result
}

// hostOf returns the hostname component of rawURL, failing if rawURL
// doesn't parse or has no host.
func hostOf(rawURL string) (host string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}

	if u.Hostname() == "" {
		return "", fmt.Errorf("no host in %q", rawURL)
	}

	return u.Hostname(), nil
}
