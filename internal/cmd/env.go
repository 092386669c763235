package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/AdguardTeam/golibs/log"
	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/caarlos0/env/v7"
	"github.com/getsentry/sentry-go"
	"github.com/repology/repology-linkchecker/internal/errcoll"
	"github.com/repology/repology-linkchecker/internal/version"
)

// environments represents the configuration that is kept in the process
// environment rather than on the command line: settings that describe how
// the process itself behaves, as opposed to what a single run should do.
type environments struct {
	// SentryDSN is the DSN to send errors to, or "stderr" to write them to
	// stderr instead.
	SentryDSN string `env:"LINKCHECKER_SENTRY_DSN" envDefault:"stderr"`

	// StatsSnapshotPath, if non-empty, is where the scheduler atomically
	// writes a JSON statistics snapshot at the end of every iteration.
	StatsSnapshotPath string `env:"LINKCHECKER_STATS_SNAPSHOT_PATH"`

	// DNSServer overrides the nameserver the resolver queries.  If empty,
	// the resolver reads the system's /etc/resolv.conf instead.
	DNSServer string `env:"LINKCHECKER_DNS_SERVER"`

	LogVerbose strictBool `env:"LINKCHECKER_LOG_VERBOSE" envDefault:"0"`
}

// readEnvs reads the configuration from the process environment.
func readEnvs() (envs *environments, err error) {
	envs = &environments{}
	err = env.Parse(envs)
	if err != nil {
		return nil, fmt.Errorf("parsing environments: %w", err)
	}

	return envs, nil
}

// configureLogs sets the configuration for the plain text logs and returns a
// [slog.Logger] for code that wants structured attributes.
func (envs *environments) configureLogs() (slogLogger *slog.Logger) {
	log.SetOutput(os.Stdout)

	if envs.LogVerbose {
		log.SetLevel(log.DEBUG)
	}

	return slogutil.New(&slogutil.Config{
		Output:  os.Stdout,
		Format:  slogutil.FormatAdGuardLegacy,
		Verbose: bool(envs.LogVerbose),
	})
}

// buildErrColl builds and returns an error collector from environment.
func (envs *environments) buildErrColl() (errColl errcoll.Interface, err error) {
	if envs.SentryDSN == "stderr" {
		return errcoll.NewWriterErrorCollector(os.Stderr), nil
	}

	cli, err := sentry.NewClient(sentry.ClientOptions{
		Dsn:              envs.SentryDSN,
		AttachStacktrace: true,
		Release:          version.Version(),
	})
	if err != nil {
		return nil, fmt.Errorf("initializing sentry: %w", err)
	}

	return errcoll.NewSentryErrorCollector(cli), nil
}

// strictBool is a type for booleans that are parsed from the environment more
// strictly than the usual bool.  It only accepts "0" and "1" as valid values.
type strictBool bool

// UnmarshalText implements the encoding.TextUnmarshaler interface for
// *strictBool.
func (sb *strictBool) UnmarshalText(b []byte) (err error) {
	if len(b) == 1 {
		switch b[0] {
		case '0':
			*sb = false

			return nil
		case '1':
			*sb = true

			return nil
		default:
			// Go on and return an error.
		}
	}

	return fmt.Errorf("invalid value %q, supported: %q, %q", b, "0", "1")
}
