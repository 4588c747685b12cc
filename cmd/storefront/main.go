// Package main is the storefront command line. Each invocation opens the
// configured storage, restores the saved session, runs one command and
// flushes its writes before exiting.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
