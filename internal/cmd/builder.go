package cmd

import (
	"fmt"
	"net"
	"os"

	"github.com/AdguardTeam/golibs/log"
	"github.com/miekg/dns"
	"github.com/repology/repology-linkchecker/internal/errcoll"
	"github.com/repology/repology-linkchecker/internal/hostpolicy"
	"github.com/repology/repology-linkchecker/internal/probe"
	"github.com/repology/repology-linkchecker/internal/processor"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/scheduler"
	"github.com/repology/repology-linkchecker/internal/store"
	"github.com/repology/repology-linkchecker/internal/updater"
	"github.com/repology/repology-linkchecker/internal/workerpool"
)

// defaultResolvConf is the system resolver configuration file consulted when
// no DNS server is configured explicitly.
const defaultResolvConf = "/etc/resolv.conf"

// builder wires every component built from envs and rtc into a running
// scheduler, the way [internal/cmd/builder.go] in the teacher wires its own,
// much larger, set of subsystems from *environments and *configuration.
type builder struct {
	envs *environments
	rtc  *runtimeConfig

	errColl errcoll.Interface
}

// newBuilder returns a new *builder.
func newBuilder(envs *environments, rtc *runtimeConfig, errColl errcoll.Interface) (b *builder) {
	return &builder{envs: envs, rtc: rtc, errColl: errColl}
}

// build constructs every component and returns a ready-to-[lc.Service.Start]
// *scheduler.Scheduler.
func (b *builder) build() (sched *scheduler.Scheduler, err error) {
	policy, err := b.buildPolicy()
	if err != nil {
		return nil, fmt.Errorf("loading host policy: %w", err)
	}

	dnsServer, err := b.resolveDNSServer()
	if err != nil {
		return nil, fmt.Errorf("resolving dns server: %w", err)
	}

	newResolver := func() (r *resolver.Resolver) {
		return resolver.New(&resolver.Config{
			Server:  dnsServer,
			Timeout: b.rtc.Timeout,
		})
	}

	initialResolver := newResolver()

	probeConf := &probe.Config{
		Timeout:   b.rtc.Timeout,
		StrictSSL: b.rtc.StrictSSL,
	}

	ipv4 := probe.New(resolver.IPv4, initialResolver, probeConf)
	ipv6 := probe.New(resolver.IPv6, initialResolver, probeConf)

	// store.NewMemoryStore is always used, regardless of --dsn: wiring a
	// real SQL-backed store is out of scope (see DESIGN.md). The DSN and
	// connection pool size are still parsed (and the pool size validated)
	// for operational visibility, and logged here so a misconfigured operator notices.
	if b.rtc.DSN != "" {
		log.Info(
			"builder: dsn %q and max-db-connections %d configured but unused: "+
				"storing rows in memory only",
			b.rtc.DSN, b.rtc.MaxDBConnections,
		)
	}

	st := store.NewMemoryStore()

	up := updater.New(&updater.Config{Store: st, Policy: policy})

	blacklisted := processor.NewBlacklisted(up, policy)
	httpProc := processor.NewHttp(&processor.HttpConfig{
		Updater:         up,
		Policy:          policy,
		Resolver:        initialResolver,
		IPv4:            ipv4,
		IPv6:            ipv6,
		SkipIPv6:        b.rtc.SkipIPv6,
		SatisfyWithIPv6: b.rtc.SatisfyWithIPv6,
	})
	dummy := processor.NewDummy(up)
	dispatcher := processor.NewDispatcher(blacklisted, httpProc, dummy)

	pool := workerpool.New(&workerpool.Config{
		Processor:      dispatcher,
		MaxWorkers:     b.rtc.MaxWorkers,
		MaxHostQueue:   b.rtc.MaxHostQueue,
		AggregationKey: policy.AggregationKey,
	})

	sched = scheduler.New(&scheduler.Config{
		Store:        st,
		Pool:         pool,
		ErrColl:      b.errColl,
		SingleRun:    b.rtc.SingleRun,
		SnapshotPath: b.envs.StatsSnapshotPath,
		NewResolver:  newResolver,
		SetResolver: func(r *resolver.Resolver) {
			httpProc.SetResolver(r)
			ipv4.SetResolver(r)
			ipv6.SetResolver(r)
		},
	})

	return sched, nil
}

// buildPolicy loads and parses the host policy file at b.rtc.HostsPath.
func (b *builder) buildPolicy() (policy *hostpolicy.Policy, err error) {
	f, err := os.Open(b.rtc.HostsPath)
	if err != nil {
		return nil, fmt.Errorf("opening %q: %w", b.rtc.HostsPath, err)
	}
	defer f.Close()

	conf, err := hostpolicy.LoadConfig(f)
	if err != nil {
		return nil, err
	}

	return hostpolicy.New(conf), nil
}

// resolveDNSServer returns the "host:port" address of the nameserver to
// query: b.envs.DNSServer if set, otherwise the first nameserver listed in
// the system's resolv.conf.
func (b *builder) resolveDNSServer() (server string, err error) {
	if b.envs.DNSServer != "" {
		return b.envs.DNSServer, nil
	}

	cfg, err := dns.ClientConfigFromFile(defaultResolvConf)
	if err != nil {
		return "", fmt.Errorf("reading %q: %w", defaultResolvConf, err)
	}

	if len(cfg.Servers) == 0 {
		return "", fmt.Errorf("%q: no nameservers configured", defaultResolvConf)
	}

	return net.JoinHostPort(cfg.Servers[0], cfg.Port), nil
}
