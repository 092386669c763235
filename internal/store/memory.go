package store

import (
	"context"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/repology/repology-linkchecker/internal/status"
)

// Row is the in-memory representation of one tracked URL, shaped after the
// reference "links" table's columns.
type Row struct {
	URL          string
	Priority     bool
	NextCheck    time.Time
	LastChecked  time.Time
	CheckDuration float64

	IPv4Success                bool
	IPv4StatusCode              status.Code
	IPv4PermanentRedirectTarget string
	IPv4LastSuccess             time.Time
	IPv4LastFailure             time.Time

	IPv6Success                bool
	IPv6StatusCode              status.Code
	IPv6PermanentRedirectTarget string
	IPv6LastSuccess             time.Time
	IPv6LastFailure             time.Time
}

// maxPerHost mirrors the reference query's "num_for_host <= 100" fairness
// cap: no single host may dominate one batch of due URLs.
const maxPerHost = 100

// maxBatch mirrors the reference query's overall LIMIT.
const maxBatch = 20_000

// MemoryStore is an in-memory [Store], useful for tests and local
// experimentation.  It is not a substitute for the SQL-backed production
// store, which is out of this package's scope.
type MemoryStore struct {
	mu       sync.Mutex
	rows     map[string]*Row
	numChecked int
}

// NewMemoryStore returns a new, empty *MemoryStore.
func NewMemoryStore() (s *MemoryStore) {
	return &MemoryStore{rows: map[string]*Row{}}
}

// Add registers url as due for checking, creating its row if there is none;
// an existing row is left as it is.
func (s *MemoryStore) Add(rawURL string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rows[rawURL]; !ok {
		s.rows[rawURL] = &Row{URL: rawURL}
	}
}

// Row returns a copy of url's current row, and whether it exists.
func (s *MemoryStore) Row(rawURL string) (row Row, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[rawURL]
	if !ok {
		return Row{}, false
	}

	return *r, true
}

// NumChecked returns the store-wide checked-URL counter.
func (s *MemoryStore) NumChecked() (n int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.numChecked
}

// hostOf returns the authority component of rawURL, or "" if it doesn't
// parse.
func hostOf(rawURL string) (host string) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}

	return u.Host
}

// URLsDue implements the [Store] interface for *MemoryStore.
func (s *MemoryStore) URLsDue(ctx context.Context) (out <-chan string, err error) {
	now := time.Now()

	s.mu.Lock()
	due := make([]string, 0, len(s.rows))
	for u, r := range s.rows {
		if r.NextCheck.IsZero() || r.NextCheck.Before(now) {
			due = append(due, u)
		}
	}
	s.mu.Unlock()

	// Deterministic ordering keeps tests reproducible; the real contract
	// only promises host fairness, not a specific order.
	sort.Strings(due)

	perHost := map[string]int{}
	bounded := make([]string, 0, len(due))
	for _, u := range due {
		h := hostOf(u)
		if perHost[h] >= maxPerHost {
			continue
		}

		perHost[h]++
		bounded = append(bounded, u)

		if len(bounded) >= maxBatch {
			break
		}
	}

	ch := make(chan string)
	go func() {
		defer close(ch)

		for _, u := range bounded {
			select {
			case ch <- u:
			case <-ctx.Done():
				return
			}
		}
	}()

	return ch, nil
}

// Update implements the [Store] interface for *MemoryStore.
func (s *MemoryStore) Update(_ context.Context, u Update) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.rows[u.URL]
	if !ok {
		r = &Row{URL: u.URL}
		s.rows[u.URL] = r
	}

	if u.Priority {
		r.NextCheck = u.PriorityNextCheckTime
	} else {
		r.NextCheck = u.NextCheckTime
	}

	r.LastChecked = u.CheckTime
	r.CheckDuration = u.CheckDurationSeconds

	if u.IPv4 != nil {
		r.IPv4Success = u.IPv4.Success
		r.IPv4StatusCode = u.IPv4.Code
		r.IPv4PermanentRedirectTarget = u.IPv4.PermanentRedirectTarget

		if u.IPv4.Success {
			r.IPv4LastSuccess = u.CheckTime
		} else {
			r.IPv4LastFailure = u.CheckTime
		}
	}

	if u.IPv6 != nil {
		r.IPv6Success = u.IPv6.Success
		r.IPv6StatusCode = u.IPv6.Code
		r.IPv6PermanentRedirectTarget = u.IPv6.PermanentRedirectTarget

		if u.IPv6.Success {
			r.IPv6LastSuccess = u.CheckTime
		} else {
			r.IPv6LastFailure = u.CheckTime
		}
	}

	return nil
}

// BumpStats implements the [Store] interface for *MemoryStore.
func (s *MemoryStore) BumpStats(_ context.Context, n int) (err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.numChecked += n

	return nil
}

// type check
var _ Store = (*MemoryStore)(nil)
