// Package errcoll contains implementations of error collectors, most notably
// Sentry, used to surface errors the scheduler reports and panics in the
// command without interrupting the scheduler loop.  Classifier fallbacks
// (UNKNOWN_ERROR) are only logged by the classifier and are not collected.
package errcoll

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/AdguardTeam/golibs/logutil/slogutil"
	"github.com/repology/repology-linkchecker/internal/lc"
)

// Interface is the interface for error collectors that process information
// about errors, possibly sending them to a remote location.
type Interface = lc.ErrorCollector

// Collectf is a helper method for reporting non-critical errors.  It writes
// the resulting error into the log and also into errColl.
func Collectf(ctx context.Context, errColl Interface, format string, args ...any) {
	lc.Collectf(ctx, errColl, format, args...)
}

// Collect is a helper method for reporting non-critical errors using a
// structured logger.
func Collect(ctx context.Context, errColl Interface, l *slog.Logger, msg string, err error) {
	l.ErrorContext(ctx, msg, slogutil.KeyError, err)
	errColl.Collect(ctx, fmt.Errorf("%s: %w", msg, err))
}

// ctxKey is the type for context keys used by this package.
type ctxKey int

const (
	ctxKeyURL ctxKey = iota
	ctxKeyHost
	ctxKeyFamily
)

// WithURL returns a copy of ctx carrying the url of the probe that produced
// the error being collected.
func WithURL(ctx context.Context, url string) (out context.Context) {
	return context.WithValue(ctx, ctxKeyURL, url)
}

// URLFromContext returns the url previously stored in ctx by [WithURL].
func URLFromContext(ctx context.Context) (url string, ok bool) {
	url, ok = ctx.Value(ctxKeyURL).(string)

	return url, ok
}

// WithHost returns a copy of ctx carrying the host being probed.
func WithHost(ctx context.Context, host string) (out context.Context) {
	return context.WithValue(ctx, ctxKeyHost, host)
}

// HostFromContext returns the host previously stored in ctx by [WithHost].
func HostFromContext(ctx context.Context) (host string, ok bool) {
	host, ok = ctx.Value(ctxKeyHost).(string)

	return host, ok
}

// WithFamily returns a copy of ctx carrying the address family ("ipv4" or
// "ipv6") of the probe that produced the error being collected.
func WithFamily(ctx context.Context, family string) (out context.Context) {
	return context.WithValue(ctx, ctxKeyFamily, family)
}

// FamilyFromContext returns the family previously stored in ctx by
// [WithFamily].
func FamilyFromContext(ctx context.Context) (family string, ok bool) {
	family, ok = ctx.Value(ctxKeyFamily).(string)

	return family, ok
}
