// Package main is the entry point for signerd, the local signing daemon.
package main

import (
	"os"

	"github.com/mrz1836/signerd/pkg/signererr"
)

// Build info variables set via ldflags during build.
//
//nolint:gochecknoglobals // Required for ldflags injection at build time
var (
	version   = "dev"
	commit    = "unknown"
	buildDate = "unknown"
)

func main() {
	if err := Execute(BuildInfo{Version: version, Commit: commit, Date: buildDate}); err != nil {
		os.Exit(signererr.ExitCode(err))
	}
}
