package errcoll

import (
	"context"
	"io"
	"net"
	"os"
	"time"

	"github.com/AdguardTeam/golibs/errors"
	"github.com/AdguardTeam/golibs/log"
	"github.com/getsentry/sentry-go"
	"github.com/repology/repology-linkchecker/internal/version"
	"golang.org/x/sys/unix"
)

// SentryErrorCollector is an [Interface] implementation that sends errors to a
// Sentry-like HTTP API.  It is used to surface the errors the scheduler
// reports and panics in the command for later triage.
type SentryErrorCollector struct {
	sentry *sentry.Client
}

// NewSentryErrorCollector returns a new SentryErrorCollector.  cli must be
// non-nil.
func NewSentryErrorCollector(cli *sentry.Client) (c *SentryErrorCollector) {
	return &SentryErrorCollector{
		sentry: cli,
	}
}

// type check
var _ Interface = (*SentryErrorCollector)(nil)

// Collect implements the [Interface] interface for *SentryErrorCollector.
func (c *SentryErrorCollector) Collect(ctx context.Context, err error) {
	if !isReportable(err) {
		log.Debug("errcoll: sentry: non-reportable error: %s", err)

		return
	}

	scope := sentry.NewScope()
	tags := tagsFromCtx(ctx)
	scope.SetTags(tags)

	_ = c.sentry.CaptureException(err, &sentry.EventHint{
		Context: ctx,
	}, scope)
}

// ErrorFlushCollector collects information about errors, possibly sending them
// to a remote location.  The collected errors should be flushed with Flush.
type ErrorFlushCollector interface {
	Interface

	// Flush waits until the underlying transport sends any buffered events to
	// the sentry server, blocking for at most the predefined timeout.
	Flush()
}

// type check
var _ ErrorFlushCollector = (*SentryErrorCollector)(nil)

// flushTimeout is the timeout for flushing sentry errors.
const flushTimeout = 1 * time.Second

// Flush implements the [ErrorFlushCollector] interface for
// *SentryErrorCollector.
func (c *SentryErrorCollector) Flush() {
	_ = c.sentry.Flush(flushTimeout)
}

// SentryReportableError is the interface for errors and wrappers that can
// tell whether they should be reported or not.
type SentryReportableError interface {
	error

	IsSentryReportable() (ok bool)
}

// isReportable returns true if the error is worth reporting.  Most probe
// failures are ordinary network noise (a host being down, a connection
// being reset) and are classified into an extended status code instead of
// being sent anywhere; this keeps routine connectivity errors that do reach
// a collector from flooding Sentry.
func isReportable(err error) (ok bool) {
	var sentryRepErr SentryReportableError
	if errors.As(err, &sentryRepErr) {
		return sentryRepErr.IsSentryReportable()
	}

	return isReportableNetwork(err)
}

// isReportableNetwork returns true if err is a network error that should be
// reported.
func isReportableNetwork(err error) (ok bool) {
	if isConnectionBreak(err) {
		return false
	}

	var netErr net.Error

	return !errors.As(err, &netErr) || !netErr.Timeout()
}

// isConnectionBreak returns true if err is an error about connection breaking
// or timing out, which are expected and frequent outcomes of probing
// arbitrary third-party hosts.
func isConnectionBreak(err error) (ok bool) {
	switch {
	case
		errors.Is(err, io.EOF),
		errors.Is(err, net.ErrClosed),
		errors.Is(err, os.ErrDeadlineExceeded),
		errors.Is(err, unix.ECONNREFUSED),
		errors.Is(err, unix.ECONNRESET),
		errors.Is(err, unix.EHOSTUNREACH),
		errors.Is(err, unix.ENETUNREACH),
		errors.Is(err, unix.EPIPE),
		errors.Is(err, unix.ETIMEDOUT):
		return true
	default:
		return false
	}
}

// sentryTags is a convenient alias for map[string]string.
type sentryTags = map[string]string

// tagsFromCtx returns Sentry tags based on the probe context carried in ctx.
func tagsFromCtx(ctx context.Context) (tags sentryTags) {
	tags = sentryTags{
		"git_revision": version.Revision(),
	}

	if url, ok := URLFromContext(ctx); ok {
		tags["url"] = url
	}

	if host, ok := HostFromContext(ctx); ok {
		tags["host"] = host
	}

	if family, ok := FamilyFromContext(ctx); ok {
		tags["family"] = family
	}

	return tags
}
