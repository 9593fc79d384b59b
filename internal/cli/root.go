// Package cli implements otell's operator-facing command tree: `run`
// starts the full daemon, the query subcommands are thin clients against
// a running instance's UDS/TCP query transport, and `mcp` opens the
// configured store directly for a stdio-spawned MCP session. Grounded on
// the teacher's cobra.Command{Use, Short, Long, RunE} idiom in
// cmd/gateway/main.go, generalized from one root command into a full
// subcommand tree.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Exit codes per the CLI's external contract.
const (
	ExitSuccess     = 0
	ExitUsageError  = 2
	ExitNotConnected = 3
	ExitQueryError  = 4
)

// globalFlags holds the persistent flags shared by every subcommand.
type globalFlags struct {
	jsonOutput bool
	udsPath    string
	addr       string
	cfgFile    string
}

// NewRootCmd builds the otell command tree.
func NewRootCmd() *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:           "otell",
		Short:         "otell ingests and queries OpenTelemetry signals from one embedded store",
		Long:          `otell is a single-binary OTLP ingest and query tool: it accepts logs, traces, and metrics over gRPC and HTTP, persists them to an embedded DuckDB file, and serves search/trace/metrics queries back over UDS, TCP, HTTP, SSE, and MCP stdio.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().BoolVar(&g.jsonOutput, "json", false, "emit raw JSON responses instead of human-readable tables")
	root.PersistentFlags().StringVar(&g.udsPath, "uds", "", "unix domain socket path of a running otell query server")
	root.PersistentFlags().StringVar(&g.addr, "addr", "", "host:port of a running otell query server")
	root.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file path (default $OTELL_CONFIG or $XDG_CONFIG_HOME/otell/config.toml)")

	root.AddCommand(
		newRunCmd(g),
		newSearchCmd(g),
		newTracesCmd(g),
		newTraceCmd(g),
		newSpanCmd(g),
		newMetricsCmd(g),
		newStatusCmd(g),
		newHandleCmd(g),
		newTailCmd(g),
		newMCPCmd(g),
		newIntroCmd(g),
	)

	return root
}

// Execute runs the command tree and returns the process exit code,
// printing any returned error to stderr first.
func Execute() int {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return exitCodeFor(err)
	}
	return ExitSuccess
}

// cliError carries an explicit exit code alongside its message, so
// subcommands can distinguish usage errors from not-connected/query
// errors without string-matching.
type cliError struct {
	code int
	err  error
}

func (e *cliError) Error() string { return e.err.Error() }
func (e *cliError) Unwrap() error { return e.err }

func usageErrorf(format string, args ...interface{}) error {
	return &cliError{code: ExitUsageError, err: fmt.Errorf(format, args...)}
}

func notConnectedErrorf(format string, args ...interface{}) error {
	return &cliError{code: ExitNotConnected, err: fmt.Errorf(format, args...)}
}

func queryErrorf(format string, args ...interface{}) error {
	return &cliError{code: ExitQueryError, err: fmt.Errorf(format, args...)}
}

func exitCodeFor(err error) int {
	var ce *cliError
	if e, ok := err.(*cliError); ok {
		ce = e
	}
	if ce != nil {
		return ce.code
	}
	return ExitUsageError
}
