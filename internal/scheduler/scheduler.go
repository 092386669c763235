// Package scheduler implements the iteration loop that streams due URLs
// from the store into the worker pool, once per run.
package scheduler

import (
	"context"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/repology/repology-linkchecker/internal/errcoll"
	"github.com/repology/repology-linkchecker/internal/lc"
	"github.com/repology/repology-linkchecker/internal/metrics"
	"github.com/repology/repology-linkchecker/internal/resolver"
	"github.com/repology/repology-linkchecker/internal/store"
	"github.com/repology/repology-linkchecker/internal/workerpool"
)

// iterationTarget bounds how long a single iteration streams URLs from the
// store before moving on; with --single-run unset, an iteration that
// finishes early sleeps out the remainder so runs start on a roughly
// regular cadence.
const iterationTarget = 60 * time.Second

// Config is the configuration for [New].
type Config struct {
	Store store.Store
	Pool  *workerpool.Pool

	// ErrColl collects errors encountered while streaming due URLs.
	ErrColl errcoll.Interface

	// SingleRun, if true, makes the scheduler perform exactly one
	// iteration, await the pool's drainage, and stop.
	SingleRun bool

	// SnapshotPath, if non-empty, is where a JSON statistics snapshot is
	// atomically written at the end of every iteration and on demand (see
	// [Scheduler.WriteSnapshot]).
	SnapshotPath string

	// NewResolver builds a fresh *resolver.Resolver for each iteration, so
	// memoized DNS answers never outlive the batch they were resolved for.
	// Optional; if nil, no resolver swapping is performed.
	NewResolver func() *resolver.Resolver

	// SetResolver installs the resolver NewResolver just built into the
	// http processor. Required if NewResolver is set.
	SetResolver func(*resolver.Resolver)
}

// Scheduler is a [lc.Service] that runs [iterationTarget]-paced iterations
// of: reset statistics, stream due URLs into the pool, wait out the rest of
// the iteration (unless single-run).
type Scheduler struct {
	st           store.Store
	pool         *workerpool.Pool
	errColl      errcoll.Interface
	singleRun    bool
	snapshotPath string
	newResolver  func() *resolver.Resolver
	setResolver  func(*resolver.Resolver)

	done     chan struct{}
	finished chan struct{}
	runNum   int

	// curResolver is the resolver currently installed into the http
	// processor, closed on Shutdown to cancel any still in-flight DNS
	// queries.
	curResolver *resolver.Resolver

	// prevStats is the last pool snapshot already folded into the
	// cumulative metrics counters, so only the delta since prevStats is
	// added on each poll.
	prevStats workerpool.Stats
}

// New returns a new *Scheduler.
func New(c *Config) (s *Scheduler) {
	return &Scheduler{
		st:           c.Store,
		pool:         c.Pool,
		errColl:      c.ErrColl,
		singleRun:    c.SingleRun,
		snapshotPath: c.SnapshotPath,
		newResolver:  c.NewResolver,
		setResolver:  c.SetResolver,
		done:         make(chan struct{}),
		finished:     make(chan struct{}),
	}
}

// type check
var _ lc.Service = (*Scheduler)(nil)

// Start implements the [lc.Service] interface for *Scheduler.
func (s *Scheduler) Start() (err error) {
	go s.loop()

	return nil
}

// Shutdown implements the [lc.Service] interface for *Scheduler.  It
// signals the running iteration to stop streaming and returns once the
// loop goroutine has exited; in-flight workers are left to drain via
// [workerpool.Pool.Join], which the caller may await separately. The
// current resolver, if any, is closed last, canceling any still in-flight
// DNS queries.
func (s *Scheduler) Shutdown(ctx context.Context) (err error) {
	close(s.done)

	select {
	case <-s.finished:
	case <-ctx.Done():
		return ctx.Err()
	}

	if s.curResolver != nil {
		return s.curResolver.Close()
	}

	return nil
}

// loop runs iterations until Shutdown is called or, in single-run mode,
// until the first iteration completes.
func (s *Scheduler) loop() {
	defer log.OnPanic("scheduler")
	defer close(s.finished)

	for {
		select {
		case <-s.done:
			return
		default:
		}

		s.runIteration()

		if s.singleRun {
			return
		}
	}
}

// runIteration streams due URLs into the pool for up to [iterationTarget],
// then — unless single-run — sleeps out whatever remains of that budget so
// each run starts on a roughly regular cadence.
func (s *Scheduler) runIteration() {
	s.runNum++
	start := time.Now()

	log.Info("scheduler: run #%d started", s.runNum)

	// Fold whatever the previous iteration's workers finished in the
	// background after that iteration's own last poll, before zeroing the
	// pool's counters out from under them.
	s.updateMetrics()
	s.pool.ResetStatistics()
	s.prevStats = workerpool.Stats{}

	if s.newResolver != nil {
		s.curResolver = s.newResolver()
		s.setResolver(s.curResolver)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	urls, err := s.st.URLsDue(ctx)
	if err != nil {
		errcoll.Collectf(ctx, s.errColl, "scheduler: listing due urls: %w", err)

		return
	}

streaming:
	for {
		select {
		case <-s.done:
			return
		case u, ok := <-urls:
			if !ok {
				break streaming
			}

			// Workers outlive this iteration, so they do not get ctx, which
			// is canceled when runIteration returns.
			s.pool.Add(context.Background(), u)

			if time.Since(start) > iterationTarget {
				break streaming
			}
		}
	}

	s.logStatistics(start, false)

	if s.singleRun {
		s.pool.Join()
		s.logStatistics(start, true)
		s.writeSnapshot()

		return
	}

	if remaining := iterationTarget - time.Since(start); remaining > 0 {
		timer := time.NewTimer(remaining)
		defer timer.Stop()

		select {
		case <-s.done:
			return
		case <-timer.C:
		}
	}

	s.logStatistics(start, true)
	s.writeSnapshot()
}

// Done returns a channel that is closed once the loop goroutine has
// returned: after [Shutdown] in looping mode, or after the single iteration
// completes in single-run mode.  Callers that started the scheduler with
// SingleRun can await this instead of an external shutdown signal.
func (s *Scheduler) Done() (done <-chan struct{}) {
	return s.finished
}

// Statistics returns the pool's current statistics snapshot, for callers
// (such as a SIGINFO handler) that want to report progress mid-run.
func (s *Scheduler) Statistics() (stats workerpool.Stats) {
	return s.pool.Statistics()
}

// WriteSnapshot persists the current statistics to the configured snapshot
// path on demand. It is exported for a SIGINFO handler to call; the
// iteration loop itself calls it automatically at the end of every
// iteration.
func (s *Scheduler) WriteSnapshot() {
	s.writeSnapshot()
}

// logStatistics writes a human-readable progress line, mirroring the
// reference implementation's stderr status line, and folds the snapshot
// into the cumulative metrics.
func (s *Scheduler) logStatistics(start time.Time, finished bool) {
	stats := s.updateMetrics()

	verb := "running for"
	if finished {
		verb = "finished in"
	}

	log.Info(
		"scheduler: run #%d %s %s: %d url(s) scanned, %d submitted, %d processed, %d worker(s) running",
		s.runNum, verb, time.Since(start).Round(time.Millisecond),
		stats.Scanned, stats.Submitted, stats.Processed, stats.Workers,
	)
}

// updateMetrics polls the pool's statistics, adds the delta since the last
// poll to the cumulative counters, sets the live gauges, and returns the
// polled snapshot.
func (s *Scheduler) updateMetrics() (stats workerpool.Stats) {
	stats = s.pool.Statistics()
	depth := s.pool.QueueDepth()

	metrics.ScannedTotal.Add(float64(stats.Scanned - s.prevStats.Scanned))
	metrics.SubmittedTotal.Add(float64(stats.Submitted - s.prevStats.Submitted))
	metrics.ProcessedTotal.Add(float64(stats.Processed - s.prevStats.Processed))
	metrics.WorkersGauge.Set(float64(stats.Workers))
	metrics.QueueDepthGauge.Set(float64(depth))

	s.prevStats = stats

	return stats
}
