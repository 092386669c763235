package probe_test

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"
	"time"

	"github.com/miekg/dns"
	"github.com/repology/repology-linkchecker/internal/classify"
	"github.com/repology/repology-linkchecker/internal/probe"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// staticExchanger resolves every A query to loopback and fails every AAAA
// query, so tests exercise an IPv4-only client without touching the
// network's real DNS.
type staticExchanger struct {
	addr netip.Addr
}

func (e *staticExchanger) ExchangeContext(
	_ context.Context,
	m *dns.Msg,
	_ string,
) (r *dns.Msg, rtt time.Duration, err error) {
	r = new(dns.Msg)
	r.SetReply(m)

	q := m.Question[0]
	switch q.Qtype {
	case dns.TypeA:
		r.Rcode = dns.RcodeSuccess
		r.Answer = []dns.RR{&dns.A{
			Hdr: dns.RR_Header{Name: q.Name, Rrtype: dns.TypeA, Class: dns.ClassINET},
			A:   e.addr.AsSlice(),
		}}
	default:
		r.Rcode = dns.RcodeNameError
	}

	return r, time.Millisecond, nil
}

// newLoopbackClient starts srv and returns a probe.Client dialing it over
// IPv4 via "localhost", resolved through a fake DNS table rather than the
// system resolver.
func newLoopbackClient(t *testing.T, srv *httptest.Server) (c *probe.Client, hostURL func(path string) string) {
	t.Helper()

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)

	_, port, err := net.SplitHostPort(u.Host)
	require.NoError(t, err)

	res := resolver.NewWithExchanger("127.0.0.1:53", &staticExchanger{
		addr: netip.MustParseAddr("127.0.0.1"),
	})
	t.Cleanup(func() { _ = res.Close() })

	c = probe.New(resolver.IPv4, res, &probe.Config{Timeout: 5 * time.Second})

	return c, func(path string) string {
		return fmt.Sprintf("http://localhost:%s%s", port, path)
	}
}

func TestClient_Probe_success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	u, err := c.Probe(context.Background(), hostURL("/"), nil)
	require.NoError(t, err)
	assert.True(t, u.Success)
	assert.EqualValues(t, http.StatusOK, u.Code)
	assert.Empty(t, u.PermanentRedirectTarget)
}

func TestClient_Probe_headGetFallback(t *testing.T) {
	t.Parallel()

	var headSeen, getSeen bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			headSeen = true
			w.WriteHeader(http.StatusForbidden)
		case http.MethodGet:
			getSeen = true
			w.WriteHeader(http.StatusOK)
		}
	}))
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	u, err := c.Probe(context.Background(), hostURL("/"), nil)
	require.NoError(t, err)
	assert.True(t, headSeen)
	assert.True(t, getSeen)
	assert.True(t, u.Success)
}

func TestClient_Probe_headSuccessNoGet(t *testing.T) {
	t.Parallel()

	var getSeen bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			getSeen = true
		}

		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	_, err := c.Probe(context.Background(), hostURL("/"), nil)
	require.NoError(t, err)
	assert.False(t, getSeen)
}

func TestClient_Probe_permanentRedirectChain(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/c", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/d", http.StatusFound)
	})
	mux.HandleFunc("/d", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	u, err := c.Probe(context.Background(), hostURL("/a"), nil)
	require.NoError(t, err)
	assert.True(t, u.Success)
	assert.Equal(t, hostURL("/c"), u.PermanentRedirectTarget)
}

func TestClient_Probe_nonPermanentThenPermanent(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/a", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/b", http.StatusFound)
	})
	mux.HandleFunc("/b", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/c", http.StatusMovedPermanently)
	})
	mux.HandleFunc("/c", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	u, err := c.Probe(context.Background(), hostURL("/a"), nil)
	require.NoError(t, err)
	assert.True(t, u.Success)
	assert.Empty(t, u.PermanentRedirectTarget)
}

func TestClient_Probe_tooManyRedirects(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/loop", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/loop", http.StatusFound)
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	c, hostURL := newLoopbackClient(t, srv)

	_, err := c.Probe(context.Background(), hostURL("/loop"), nil)
	require.Error(t, err)

	var tooMany *classify.TooManyRedirectsError
	require.ErrorAs(t, err, &tooMany)
	assert.Equal(t, status.TooManyRedirects, classify.HTTP(err))
}
