// Package main is the entry point for the StaffDesk portal.
package main

import (
	"fmt"
	"os"

	"staffdesk/portal/internal/observability"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	observability.Version = version
	cmd := NewRootCmd()
	cmd.Version = fmt.Sprintf("%s (commit: %s)", version, commit)

	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
