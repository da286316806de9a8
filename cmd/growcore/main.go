// Package main provides the growcore CLI, the reference caller for the
// dosing and scheme resolution engine.
package main

import (
	"os"
)

// Version is set by build flags.
var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
