//go:build darwin || freebsd || netbsd || openbsd || dragonfly

package cmd

import (
	"os"

	"golang.org/x/sys/unix"
)

// statsSignals is the set of signals that trigger a statistics dump instead
// of shutdown.  SIGINFO is only defined on BSD-derived platforms, which is
// exactly where interactive operators expect ctrl-T to report progress.
var statsSignals = []os.Signal{unix.SIGINFO}

// isStatsSignal returns true if sig should trigger a statistics dump rather
// than shutdown.
func isStatsSignal(sig os.Signal) (ok bool) {
	return sig == unix.SIGINFO
}
