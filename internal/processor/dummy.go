package processor

import (
	"context"
	"fmt"

	"github.com/repology/repology-linkchecker/internal/updater"
)

// Dummy is the fallback processor for URLs no other [Processor] claims: it
// never probes anything, it only advances the row's next check time.
type Dummy struct {
	updater *updater.Updater
}

// NewDummy returns a new *Dummy.
func NewDummy(u *updater.Updater) (d *Dummy) {
	return &Dummy{updater: u}
}

// Taste implements the [Processor] interface for *Dummy.  It always
// matches, so *Dummy must be tried last in a [Dispatcher]'s order.
func (d *Dummy) Taste(_ string) (ok bool) {
	return true
}

// Process implements the [Processor] interface for *Dummy.
func (d *Dummy) Process(ctx context.Context, urls []string) (err error) {
	for _, u := range urls {
		if err = d.updater.Update(ctx, updater.Result{URL: u}); err != nil {
			return fmt.Errorf("dummy processor: %w", err)
		}
	}

	return nil
}
