package cmd

import (
	"flag"
	"time"

	"github.com/AdguardTeam/golibs/errors"
)

// runtimeConfig is the per-run configuration, driven entirely by command
// line flags: unlike [environments], these describe what a single run of
// the checker should do, not how the process as a whole behaves.
type runtimeConfig struct {
	// DSN is the database connection string.  Accepted, but not validated,
	// for operational visibility; this repository always stores rows in an
	// in-process [github.com/repology/repology-linkchecker/internal/store.MemoryStore]
	// regardless of its value, since wiring a real SQL-backed store is out
	// of scope (see DESIGN.md).
	DSN string

	// HostsPath is the path to the host policy YAML file.
	HostsPath string

	// MaxDBConnections bounds the (currently unused) database connection
	// pool size.
	MaxDBConnections int

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration

	// MaxWorkers bounds the number of live per-host workers.
	MaxWorkers int

	// MaxHostQueue bounds how many URLs may queue behind a single busy
	// host worker; further URLs for that worker are dropped silently.
	MaxHostQueue int

	// SingleRun makes the scheduler perform exactly one iteration and
	// exit instead of looping forever.
	SingleRun bool

	// SkipIPv6 disables the IPv6 probe entirely.
	SkipIPv6 bool

	// SatisfyWithIPv6 skips the IPv4 probe when the IPv6 probe already
	// succeeded.
	SatisfyWithIPv6 bool

	// StrictSSL pins the TLS handshake to TLS 1.2 exactly.
	StrictSSL bool
}

// parseFlags parses the command line arguments args (typically
// os.Args[1:]) into a *runtimeConfig.
func parseFlags(args []string) (c *runtimeConfig, err error) {
	fs := flag.NewFlagSet("repology-linkchecker", flag.ContinueOnError)

	c = &runtimeConfig{}

	fs.StringVar(&c.DSN, "dsn", "", "database connection string")
	fs.StringVar(&c.HostsPath, "hosts", "./hosts.yaml", "path to host policy config")
	fs.IntVar(&c.MaxDBConnections, "max-db-connections", 5, "maximum number of database connections")
	fs.DurationVar(&c.Timeout, "timeout", 60*time.Second, "per-request HTTP timeout")
	fs.IntVar(&c.MaxWorkers, "max-workers", 100, "maximum number of concurrent per-host workers")
	fs.IntVar(&c.MaxHostQueue, "max-host-queue", 100, "maximum number of URLs queued per host worker")
	fs.BoolVar(&c.SingleRun, "single-run", false, "perform a single iteration and exit")
	fs.BoolVar(&c.SkipIPv6, "skip-ipv6", false, "disable IPv6 probes")
	fs.BoolVar(&c.SatisfyWithIPv6, "satisfy-with-ipv6", false, "skip IPv4 probe when IPv6 already succeeded")
	fs.BoolVar(&c.StrictSSL, "strict-ssl", false, "require TLS 1.2")

	err = fs.Parse(args)
	if err != nil {
		return nil, err
	}

	return c, nil
}

// errNilConfig signals that a config is empty.
const errNilConfig errors.Error = "nil config"

// validate returns an error if the configuration is invalid.
func (c *runtimeConfig) validate() (err error) {
	if c == nil {
		return errNilConfig
	}

	// Keep this in the same order as the flags are declared above.
	validators := []struct {
		validate func() (err error)
		name     string
	}{{
		validate: func() (err error) { return validateNotEmpty("hosts", c.HostsPath) },
		name:     "hosts",
	}, {
		validate: func() (err error) { return validatePositiveInt("max-db-connections", c.MaxDBConnections) },
		name:     "max-db-connections",
	}, {
		validate: func() (err error) { return validatePositiveDuration("timeout", c.Timeout) },
		name:     "timeout",
	}, {
		validate: func() (err error) { return validatePositiveInt("max-workers", c.MaxWorkers) },
		name:     "max-workers",
	}, {
		validate: func() (err error) { return validatePositiveInt("max-host-queue", c.MaxHostQueue) },
		name:     "max-host-queue",
	}}

	for _, v := range validators {
		if err = v.validate(); err != nil {
			return errors.Annotate(err, "%s: %w", v.name)
		}
	}

	return nil
}
