// Package cmd is the repology-linkchecker entry point.  It contains the
// environment and CLI-flag configuration, validation, signal processing,
// and wiring of every other internal package into a running daemon.
package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/AdguardTeam/golibs/log"
	"github.com/repology/repology-linkchecker/internal/errcoll"
)

// Main is the entry point of the application.
func Main() {
	envs, err := readEnvs()
	check(err)

	envs.configureLogs()

	log.Info("main: starting repology-linkchecker")

	errColl, err := envs.buildErrColl()
	check(err)

	defer collectPanics(errColl)

	rtc, err := parseFlags(os.Args[1:])
	check(err)

	err = rtc.validate()
	check(err)

	sched, err := newBuilder(envs, rtc, errColl).build()
	check(err)

	err = sched.Start()
	check(err)

	if rtc.SingleRun {
		// A one-shot run has no shutdown signal to wait for; just block
		// until the single iteration has fully drained the pool.
		<-sched.Done()
		os.Exit(statusSuccess)
	}

	h := newSignalHandler(sched, sched)

	os.Exit(h.handle())
}

// check logs a fatal error and exits if err is non-nil.
func check(err error) {
	if err != nil {
		log.Fatal("main: %s", err)
	}
}

// collectPanics reports all panics in Main.  It should be called in a
// defer.
func collectPanics(errColl errcoll.Interface) {
	v := recover()
	if v == nil {
		return
	}

	var err error
	if e, ok := v.(error); ok {
		err = fmt.Errorf("panic in cmd.Main: %w", e)
	} else {
		err = fmt.Errorf("panic in cmd.Main: %v", v)
	}

	errColl.Collect(context.Background(), err)

	panic(v)
}
