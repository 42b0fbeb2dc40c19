// Command embednetd is the reference binary for this module: it loads a
// config file, stands up a hosted mgr.Manager, attaches the HTTP protocol
// handler to every listener the config declares, and runs the reactor loop
// until interrupted. It exists to give every package in this tree a single
// real caller, since the narrow CLI/logging helpers still need *something*
// to drive them end to end.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
