package hostpolicy

import (
	"net/url"
	"strings"
	"time"

	"github.com/AdguardTeam/golibs/timeutil"
	"github.com/repology/repology-linkchecker/internal/cache"
)

// HostStatus is the outcome of checking a host against the policy's
// blacklist/skip configuration.
type HostStatus int

// HostStatus values.  Blacklisted dominates Skipped; absent either, a host
// is OK.
const (
	StatusOK HostStatus = iota
	StatusBlacklisted
	StatusSkipped
)

// builtinDelaySeeds are hardcoded per-host politeness overrides applied
// before the configured default, for hosts known ahead of time to need
// gentler treatment.  A host's own configured delay, if any, always takes
// precedence over this table.
var builtinDelaySeeds = map[string]float64{
	"github.com":  1,
	"notabug.org": 30,
	"npmjs.com":   10,
	"npmjs.org":   10,
}

// gatherCacheSize bounds the memoized per-host gather result so that a
// store with many distinct hosts cannot grow this cache unboundedly.
const gatherCacheSize = 100_000

// Policy answers per-URL policy questions (delay, recheck windows,
// blacklist/skip status, aggregation key) derived from a [Config] by
// walking host suffixes from most specific to least, as described in
// [Config.Hosts].
type Policy struct {
	conf  *Config
	cache *cache.Default[string, Settings]
}

// New returns a new *Policy backed by conf.  conf must not be nil.
func New(conf *Config) (p *Policy) {
	c, err := cache.New[string, Settings](&cache.Config{
		Clock: timeutil.SystemClock{},
		Count: gatherCacheSize,
	})
	if err != nil {
		// Only possible with a non-positive Count, which gatherCacheSize
		// never is.
		panic(err)
	}

	return &Policy{
		conf:  conf,
		cache: c,
	}
}

// parentHost returns the parent of host by stripping the leading label, or
// "" if host has no more labels.
func parentHost(host string) (parent string) {
	i := strings.IndexByte(host, '.')
	if i == -1 {
		return ""
	}

	return host[i+1:]
}

// hostFromURL returns the host component of rawURL, or "" if rawURL does not
// parse or has no host.
func hostFromURL(rawURL string) (host string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return u.Hostname()
}

// gather walks from host towards the root domain, collecting every
// configured suffix's [Settings], and merges them field-by-field: a deeper
// (more specific) suffix overrides a shallower one.  The result is
// memoized per host for the policy's lifetime.
func (p *Policy) gather(host string) (s Settings, ok bool) {
	if cached, hit := p.cache.Get(host); hit {
		return cached, true
	}

	// queue[0] is the most specific suffix with a configured entry;
	// queue[len-1] is the shallowest.
	var queue []Settings

	for cur := host; cur != ""; cur = parentHost(cur) {
		if entry, found := p.conf.Hosts[cur]; found {
			queue = append(queue, entry)
		}
	}

	if len(queue) == 0 {
		return Settings{}, false
	}

	res := queue[len(queue)-1]
	for i := len(queue) - 2; i >= 0; i-- {
		res = res.update(queue[i])
	}

	p.cache.Set(host, res)

	return res, true
}

// HostStatus returns whether the host of rawURL is blacklisted, skipped, or
// OK.  Blacklisted dominates skipped.
func (p *Policy) HostStatus(rawURL string) (status HostStatus) {
	s, ok := p.gather(hostFromURL(rawURL))
	if !ok {
		return StatusOK
	}

	if s.Blacklist != nil && *s.Blacklist {
		return StatusBlacklisted
	}

	if s.Skip != nil && *s.Skip {
		return StatusSkipped
	}

	return StatusOK
}

// Delay returns the effective politeness delay for rawURL's host: the
// host's own configured delay if any, else a built-in seed for a handful of
// known-slow hosts, else the configured default.
func (p *Policy) Delay(rawURL string) (delay time.Duration) {
	host := hostFromURL(rawURL)

	if s, ok := p.gather(host); ok && s.Delay != nil {
		return *s.Delay
	}

	if seed, ok := builtinDelaySeeds[host]; ok {
		return time.Duration(seed * float64(time.Second))
	}

	return p.conf.Defaults.Delay
}

// Rechecks returns the effective (normal, priority) recheck ranges for
// rawURL's host.
func (p *Policy) Rechecks(rawURL string) (normal, priority Range) {
	s, ok := p.gather(hostFromURL(rawURL))
	if !ok {
		return p.conf.Defaults.Recheck, p.conf.Defaults.PriorityRecheck
	}

	normal = p.conf.Defaults.Recheck
	if s.Recheck != nil {
		normal = *s.Recheck
	}

	priority = p.conf.Defaults.PriorityRecheck
	if s.PriorityRecheck != nil {
		priority = *s.PriorityRecheck
	}

	return normal, priority
}

// AggregationKey returns the host-aggregation-key of rawURL: the host with
// any leading "www." stripped, further narrowed to the shallowest
// configured suffix with aggregate=true found while walking from that
// stripped host towards the root.  This walk deliberately does not stop at
// the first match: it mirrors the reference implementation's behavior of
// letting every subsequent match along the way overwrite the previous one,
// and that asymmetry (this walk strips "www.") versus the other lookups in
// this file (which do not) is preserved as-is rather than "fixed".
func (p *Policy) AggregationKey(rawURL string) (key string) {
	host := hostFromURL(rawURL)
	key = strings.TrimPrefix(host, "www.")

	for cur := key; cur != ""; cur = parentHost(cur) {
		if entry, ok := p.conf.Hosts[cur]; ok && entry.Aggregate {
			key = cur
		}
	}

	return key
}
