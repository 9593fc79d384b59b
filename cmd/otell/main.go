// Command otell is a single-binary OTLP ingest and query tool: it accepts
// logs, traces, and metrics over gRPC and HTTP, persists them to an
// embedded DuckDB file, and serves queries back over UDS, TCP, HTTP, SSE,
// and MCP stdio. See `otell intro` for a running instance's summary.
package main

import (
	"os"

	"github.com/ollystack/otell/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
