package cmd

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/AdguardTeam/golibs/log"
	"github.com/repology/repology-linkchecker/internal/lc"
	"github.com/repology/repology-linkchecker/internal/scheduler"
	"golang.org/x/sys/unix"
)

// Exit status constants.
const (
	statusSuccess = 0
	statusError   = 1
)

// shutdownTimeout bounds how long signalHandler.shutdown waits for every
// service to stop.
const shutdownTimeout = 10 * time.Second

// signalHandler processes incoming signals: it shuts every service down on
// SIGINT/SIGQUIT/SIGTERM, and, on platforms that define [statsSignals],
// dumps the scheduler's current statistics without shutting anything down.
type signalHandler struct {
	signal chan os.Signal

	// services are shut down, in order, once a shutdown signal arrives.
	services []lc.Service

	// sched is asked to persist a statistics snapshot on a stats signal.
	// May be nil if no scheduler was built yet.
	sched *scheduler.Scheduler
}

// handle processes OS signals until a shutdown signal is received.  status
// is statusSuccess on success and statusError on error.
func (h *signalHandler) handle() (status int) {
	defer log.OnPanic("signalHandler.handle")

	for sig := range h.signal {
		log.Info("sighdlr: received signal %q", sig)

		if isStatsSignal(sig) {
			h.dumpStats()

			continue
		}

		switch sig {
		case
			unix.SIGINT,
			unix.SIGQUIT,
			unix.SIGTERM:
			return h.shutdown()
		}
	}

	// Shouldn't happen, since h.signal is currently never closed.
	return statusError
}

// dumpStats persists the scheduler's current statistics snapshot on demand,
// for an operator sending a stats signal mid-run.
func (h *signalHandler) dumpStats() {
	if h.sched == nil {
		return
	}

	stats := h.sched.Statistics()
	log.Info(
		"sighdlr: stats: %d url(s) scanned, %d submitted, %d processed, %d worker(s) running",
		stats.Scanned, stats.Submitted, stats.Processed, stats.Workers,
	)

	h.sched.WriteSnapshot()
}

// shutdown gracefully shuts down all services.  status is statusSuccess on
// success and statusError on error.
func (h *signalHandler) shutdown() (status int) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	log.Info("sighdlr: shutting down services")
	for i, svc := range h.services {
		err := svc.Shutdown(ctx)
		if err != nil {
			log.Error("sighdlr: shutting down service at index %d: %s", i, err)
			status = statusError
		}
	}

	log.Info("sighdlr: shutting down repology-linkchecker")

	return status
}

// newSignalHandler returns a new signalHandler that shuts down svcs and, on
// platforms with a stats signal, reports sched's statistics on demand.
func newSignalHandler(sched *scheduler.Scheduler, svcs ...lc.Service) (h signalHandler) {
	h = signalHandler{
		signal:   make(chan os.Signal, 1),
		services: svcs,
		sched:    sched,
	}

	notify := append([]os.Signal{unix.SIGINT, unix.SIGQUIT, unix.SIGTERM}, statsSignals...)
	signal.Notify(h.signal, notify...)

	return h
}
