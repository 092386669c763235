// Package workerpool implements the bounded, per-host cooperative worker
// pool that fans URLs out to a [processor.Processor]: one worker per
// host-aggregation-key, serialized within a worker, bounded in number and in
// per-worker queue depth across the pool.
package workerpool

import (
	"context"
	"sync"

	"github.com/repology/repology-linkchecker/internal/processor"
)

// Stats is a snapshot of the pool's counters.
type Stats struct {
	// Scanned counts every URL passed to [Pool.Add].
	Scanned int

	// Submitted counts URLs handed to the processor, i.e. moved from a
	// worker's pending set to its in-flight set.
	Submitted int

	// Processed counts URLs whose processor call has returned.
	Processed int

	// Workers is the number of live workers at snapshot time.
	Workers int
}

// Config is the configuration for [New].
type Config struct {
	Processor processor.Processor

	// MaxWorkers bounds the number of live workers (hosts being checked
	// concurrently). Admission of a URL for a new host blocks while the
	// pool is at this limit.
	MaxWorkers int

	// MaxHostQueue bounds a single worker's pending set. A URL that
	// arrives once a worker's queue is full is dropped silently.
	MaxHostQueue int

	// AggregationKey maps a URL to the host-aggregation-key that
	// determines which worker handles it.
	AggregationKey func(rawURL string) string
}

// Pool is a bounded, per-host worker pool.  The zero value is not usable;
// construct one with [New].
type Pool struct {
	processor      processor.Processor
	maxWorkers     int
	maxHostQueue   int
	aggregationKey func(string) string

	mu      sync.Mutex
	cond    *sync.Cond
	workers map[string]*hostWorker
	stats   Stats
}

// New returns a new *Pool.
func New(c *Config) (p *Pool) {
	p = &Pool{
		processor:      c.Processor,
		maxWorkers:     c.MaxWorkers,
		maxHostQueue:   c.MaxHostQueue,
		aggregationKey: c.AggregationKey,
		workers:        map[string]*hostWorker{},
	}
	p.cond = sync.NewCond(&p.mu)

	return p
}

// Add admits rawURL for checking.  It blocks until the pool has headroom to
// create a worker, if rawURL's aggregation key has none yet.
func (p *Pool) Add(ctx context.Context, rawURL string) {
	key := p.aggregationKey(rawURL)

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats.Scanned++

	if w, ok := p.workers[key]; ok {
		w.addURL(rawURL)

		return
	}

	for len(p.workers) >= p.maxWorkers {
		p.cond.Wait()

		if w, ok := p.workers[key]; ok {
			w.addURL(rawURL)

			return
		}
	}

	w := newHostWorker(p, key, p.maxHostQueue, rawURL)
	p.workers[key] = w

	go w.run(ctx)
}

// Join blocks until every live worker has drained its pending set and
// exited.
func (p *Pool) Join() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for len(p.workers) > 0 {
		p.cond.Wait()
	}
}

// Statistics returns a snapshot of the pool's counters.
func (p *Pool) Statistics() (s Stats) {
	p.mu.Lock()
	defer p.mu.Unlock()

	s = p.stats
	s.Workers = len(p.workers)

	return s
}

// QueueDepth returns the total number of URLs currently pending or
// in-flight across every live worker.
func (p *Pool) QueueDepth() (n int) {
	p.mu.Lock()
	workers := make([]*hostWorker, 0, len(p.workers))
	for _, w := range p.workers {
		workers = append(workers, w)
	}
	p.mu.Unlock()

	for _, w := range workers {
		n += w.queueDepth()
	}

	return n
}

// ResetStatistics zeros the pool's counters, leaving live workers running.
func (p *Pool) ResetStatistics() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.stats = Stats{}
}

// onWorkerFinished removes key's worker and wakes any goroutine blocked in
// [Pool.Add] or [Pool.Join].
func (p *Pool) onWorkerFinished(key string) {
	p.mu.Lock()
	delete(p.workers, key)
	p.mu.Unlock()

	p.cond.Broadcast()
}

func (p *Pool) bumpSubmitted(n int) {
	p.mu.Lock()
	p.stats.Submitted += n
	p.mu.Unlock()
}

func (p *Pool) bumpProcessed(n int) {
	p.mu.Lock()
	p.stats.Processed += n
	p.mu.Unlock()
}
