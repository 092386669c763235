package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/AdguardTeam/golibs/log"
	renameio "github.com/google/renameio/v2"
	"github.com/repology/repology-linkchecker/internal/workerpool"
)

// snapshotLogPrefix is the logging prefix used when persisting a
// statistics snapshot.
const snapshotLogPrefix = "scheduler snapshot"

// snapshot is the on-disk representation of a scheduler statistics
// snapshot, read by an operator or an out-of-scope status page.
type snapshot struct {
	Time      time.Time       `json:"time"`
	RunNumber int             `json:"run_number"`
	Stats     workerpool.Stats `json:"stats"`
	QueueDepth int            `json:"queue_depth"`
}

// writeSnapshot atomically persists the pool's current statistics to
// s.snapshotPath as JSON.  It is a no-op if no path is configured.  Errors
// are logged and reported to the error collector but never interrupt the
// iteration loop: a failed snapshot write is not worth stopping for.
func (s *Scheduler) writeSnapshot() {
	if s.snapshotPath == "" {
		return
	}

	snap := snapshot{
		Time:       time.Now(),
		RunNumber:  s.runNum,
		Stats:      s.pool.Statistics(),
		QueueDepth: s.pool.QueueDepth(),
	}

	data, err := json.Marshal(snap)
	if err != nil {
		log.Error("%s: encoding: %s", snapshotLogPrefix, err)

		return
	}

	if err = renameio.WriteFile(s.snapshotPath, data, 0o644); err != nil {
		err = fmt.Errorf("%s: writing %q: %w", snapshotLogPrefix, s.snapshotPath, err)
		log.Error("%s", err)
		s.errColl.Collect(context.Background(), err)
	}
}
