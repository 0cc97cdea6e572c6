package loadgen

import (
	"os"
)

// ShowHelp prints usage information for the load generator.
func ShowHelp() {
	os.Stdout.WriteString(`SOE Load Generator
==================

Submits generated metric snapshots to a running SOE service concurrently and
verifies every stored score against a local recomputation.

Usage:
  soe-loadgen [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -samples int
        Number of snapshots to submit (default 500)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Write generated samples and scores to this JSON file
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  soe-loadgen -samples 2000 -workers 16
  soe-loadgen -url http://localhost:8080 -output run.json
`)
}
