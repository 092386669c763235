//go:build !(darwin || freebsd || netbsd || openbsd || dragonfly)

package cmd

import "os"

// statsSignals is empty on platforms without SIGINFO.
var statsSignals []os.Signal

// isStatsSignal always returns false on platforms without SIGINFO.
func isStatsSignal(_ os.Signal) (ok bool) {
	return false
}
