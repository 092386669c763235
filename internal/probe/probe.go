// Package probe implements the family-bound HTTP checking of a single URL:
// HEAD with an automatic GET fallback, manual redirect following that
// extracts the target of a leading chain of permanent (301/308) redirects,
// and politeness pacing of consecutive requests to the same host.
package probe

import (
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"time"

	"github.com/c2h5oh/datasize"
	"github.com/repology/repology-linkchecker/internal/classify"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/status"
	"golang.org/x/net/idna"
	"golang.org/x/time/rate"
)

// DefaultUserAgent is the identifying string sent on every probe request.
const DefaultUserAgent = "repology-linkchecker/1 (+https://repology.org/docs/bots)"

// maxRedirects bounds the number of hops a single attempt follows before
// giving up with a [classify.TooManyRedirectsError].
const maxRedirects = 20

// Config is the configuration for [New].
type Config struct {
	// Timeout is the overall per-request timeout, covering connection,
	// TLS handshake, and header exchange.
	Timeout time.Duration

	// StrictSSL pins the TLS handshake to TLS 1.2 exactly, instead of
	// letting the runtime negotiate the highest mutually supported
	// version.
	StrictSSL bool

	// UserAgent overrides [DefaultUserAgent] when non-empty.
	UserAgent string

	// MaxBodyBytes bounds how much of a response body is read before the
	// connection is recycled; the status code is already known from the
	// headers, so the body itself is always discarded.
	MaxBodyBytes datasize.ByteSize
}

// Client probes URLs over one address family, dialing exclusively against
// the addresses a [*resolver.Resolver] already resolved for the batch.
type Client struct {
	http      *http.Client
	resolver  atomic.Pointer[resolver.Resolver]
	userAgent string
	maxBody   datasize.ByteSize
}

// New returns a new *Client bound to family, dialing through res.  res may
// later be replaced with [Client.SetResolver].
func New(family resolver.Family, res *resolver.Resolver, conf *Config) (c *Client) {
	dialer := &net.Dialer{Timeout: conf.Timeout}

	network := "tcp4"
	if family == resolver.IPv6 {
		network = "tcp6"
	}

	c = &Client{}
	c.resolver.Store(res)

	transport := &http.Transport{
		DialContext: func(ctx context.Context, _, addr string) (conn net.Conn, err error) {
			return dialFamily(ctx, dialer, c.resolver.Load(), family, network, addr)
		},
		MaxConnsPerHost: 1,
	}

	if conf.StrictSSL {
		transport.TLSClientConfig = &tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		}
	}

	ua := conf.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	c.http = &http.Client{
		Transport: transport,
		Timeout:   conf.Timeout,
		CheckRedirect: func(_ *http.Request, _ []*http.Request) (err error) {
			return http.ErrUseLastResponse
		},
	}
	c.userAgent = ua
	c.maxBody = conf.MaxBodyBytes

	return c
}

// SetResolver atomically replaces the resolver this client dials against.
// The scheduler calls this at the start of every iteration, in lockstep with
// [github.com/repology/repology-linkchecker/internal/processor.Http.SetResolver],
// so the client never dials against a resolver whose memoized batch has
// already moved on to the next iteration.
func (c *Client) SetResolver(r *resolver.Resolver) {
	c.resolver.Store(r)
}

// dialFamily resolves the host component of addr against res's memoized
// batch and dials the first cached address of family, never issuing a new
// DNS query.
func dialFamily(
	ctx context.Context,
	dialer *net.Dialer,
	res *resolver.Resolver,
	family resolver.Family,
	network, addr string,
) (conn net.Conn, err error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, &classify.InvalidURLError{URL: addr, Err: err}
	}

	asciiHost, err := idna.Lookup.ToASCII(host)
	if err != nil {
		return nil, &classify.InvalidURLError{URL: host, Err: err}
	}

	hr := res.Resolve(ctx, asciiHost)

	ar := hr.IPv4
	if family == resolver.IPv6 {
		ar = hr.IPv6
	}

	if ar.Err != nil {
		return nil, ar.Err
	}

	if len(ar.Addresses) == 0 {
		return nil, resolver.ErrNoAddressRecord
	}

	return dialer.DialContext(ctx, network, net.JoinHostPort(ar.Addresses[0].String(), port))
}

// waitLimiter blocks on limiter, if any, for the politeness delay before a
// request is sent.
func waitLimiter(ctx context.Context, limiter *rate.Limiter) (err error) {
	if limiter == nil {
		return nil
	}

	return limiter.Wait(ctx)
}

// Probe checks rawURL: a HEAD request, following redirects, falling back to
// a GET if the HEAD did not end in a successful status.  limiter, if
// non-nil, is waited on before each of the (at most two) requests this
// issues, implementing this host's politeness delay.
func (c *Client) Probe(ctx context.Context, rawURL string, limiter *rate.Limiter) (u status.Url, err error) {
	if err = waitLimiter(ctx, limiter); err != nil {
		return status.Url{}, err
	}

	u, err = c.attempt(ctx, http.MethodHead, rawURL)
	if err != nil {
		return status.Url{}, err
	}

	if u.Success {
		return u, nil
	}

	if err = waitLimiter(ctx, limiter); err != nil {
		return status.Url{}, err
	}

	return c.attempt(ctx, http.MethodGet, rawURL)
}

// attempt performs a single method (HEAD or GET), manually following
// redirects so that the target of a leading chain of permanent redirects can
// be extracted: a contiguous run of 301/308 hops, starting at the original
// URL, breaks as soon as a non-permanent redirect hop is seen, and no
// further hop updates the target even if later hops are themselves
// permanent redirects.
func (c *Client) attempt(ctx context.Context, method, rawURL string) (u status.Url, err error) {
	current := rawURL

	var target string
	chainBroken := false

	for i := 0; ; i++ {
		if i > maxRedirects {
			return status.Url{}, &classify.TooManyRedirectsError{Count: maxRedirects}
		}

		req, rerr := http.NewRequestWithContext(ctx, method, current, nil)
		if rerr != nil {
			return status.Url{}, &classify.InvalidURLError{URL: current, Err: rerr}
		}

		req.Header.Set("User-Agent", c.userAgent)

		resp, derr := c.http.Do(req)
		if derr != nil {
			return status.Url{}, classifyDoErr(derr)
		}

		drainAndClose(resp.Body, c.maxBody)

		if !isRedirect(resp.StatusCode) {
			return status.Url{
				Code:                    status.Code(resp.StatusCode),
				Success:                 status.Code(resp.StatusCode).Success(),
				PermanentRedirectTarget: target,
			}, nil
		}

		next, nerr := resolveLocation(current, resp.Header.Get("Location"))
		if nerr != nil {
			return status.Url{}, nerr
		}

		if !chainBroken {
			if resp.StatusCode == http.StatusMovedPermanently || resp.StatusCode == http.StatusPermanentRedirect {
				target = next
			} else {
				chainBroken = true
			}
		}

		current = next
	}
}

// isRedirect reports whether code is one of the HTTP redirect statuses this
// package follows automatically.
func isRedirect(code int) (ok bool) {
	switch code {
	case http.StatusMovedPermanently,
		http.StatusFound,
		http.StatusSeeOther,
		http.StatusTemporaryRedirect,
		http.StatusPermanentRedirect:
		return true
	default:
		return false
	}
}

// resolveLocation resolves a redirect's Location header against the URL it
// was received from, rejecting a target that isn't an absolute http(s) URL.
func resolveLocation(base, loc string) (resolved string, err error) {
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", &classify.InvalidURLError{URL: base, Err: err}
	}

	locURL, err := url.Parse(loc)
	if err != nil {
		return "", &classify.BadHTTPError{Err: fmt.Errorf("parsing redirect location %q: %w", loc, err)}
	}

	target := baseURL.ResolveReference(locURL)
	if target.Scheme != "http" && target.Scheme != "https" {
		return "", &classify.InvalidURLError{
			URL: target.String(),
			Err: fmt.Errorf("can redirect only to http or https, got %q", target.Scheme),
		}
	}

	return target.String(), nil
}

// drainAndClose discards resp's body, up to max bytes if max is positive,
// and closes it so the underlying connection can be reused or released.
func drainAndClose(body io.ReadCloser, maxBody datasize.ByteSize) {
	if maxBody > 0 {
		_, _ = io.CopyN(io.Discard, body, int64(maxBody))
	} else {
		_, _ = io.Copy(io.Discard, body)
	}

	_ = body.Close()
}

// classifyDoErr recognizes the error shapes (*http.Client).Do produces that
// have no typed equivalent in net/http, wrapping them into the
// classify-package sum type so [classify.HTTP] can place them correctly.
// Errors that already carry enough structure (net.Error, x509 types, a raw
// errno) are passed through unchanged.
func classifyDoErr(err error) (out error) {
	msg := err.Error()

	switch {
	case strings.Contains(msg, "EOF"):
		return &classify.ServerDisconnectedError{Err: err}
	case strings.Contains(msg, "malformed HTTP"), strings.Contains(msg, "malformed MIME"):
		return &classify.BadHTTPError{Err: err}
	default:
		return err
	}
}
