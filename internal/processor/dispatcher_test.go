package processor_test

import (
	"context"
	"sync"
	"testing"

	"github.com/repology/repology-linkchecker/internal/processor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingProcessor claims URLs matching a predicate and records the batch
// it was handed, guarding access with a mutex since [Dispatcher] runs its
// three processors concurrently.
type recordingProcessor struct {
	mu      sync.Mutex
	claim   func(string) bool
	handled []string
}

func (p *recordingProcessor) Taste(rawURL string) (ok bool) { return p.claim(rawURL) }

func (p *recordingProcessor) Process(_ context.Context, urls []string) (err error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.handled = append(p.handled, urls...)

	return nil
}

func TestDispatcher_Process_partitions(t *testing.T) {
	t.Parallel()

	blacklisted := &recordingProcessor{claim: func(u string) bool { return u == "http://blacklisted/" }}
	httpProc := &recordingProcessor{claim: func(u string) bool { return u == "http://ok/" }}
	dummy := &recordingProcessor{claim: func(string) bool { return true }}

	d := processor.NewDispatcher(blacklisted, httpProc, dummy)

	urls := []string{"http://blacklisted/", "http://ok/", "ftp://other/"}
	require.NoError(t, d.Process(context.Background(), urls))

	assert.Equal(t, []string{"http://blacklisted/"}, blacklisted.handled)
	assert.Equal(t, []string{"http://ok/"}, httpProc.handled)
	assert.Equal(t, []string{"ftp://other/"}, dummy.handled)
}

func TestDispatcher_Process_blacklistedTakesPrecedence(t *testing.T) {
	t.Parallel()

	blacklisted := &recordingProcessor{claim: func(string) bool { return true }}
	httpProc := &recordingProcessor{claim: func(string) bool { return true }}
	dummy := &recordingProcessor{claim: func(string) bool { return true }}

	d := processor.NewDispatcher(blacklisted, httpProc, dummy)

	require.NoError(t, d.Process(context.Background(), []string{"http://example.com/"}))

	assert.Equal(t, []string{"http://example.com/"}, blacklisted.handled)
	assert.Empty(t, httpProc.handled)
	assert.Empty(t, dummy.handled)
}
