package cli

import (
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ollystack/otell/internal/config"
	"github.com/ollystack/otell/internal/query"
	"github.com/ollystack/otell/internal/store"
)

// newMCPCmd opens the configured DuckDB file directly and serves the MCP
// stdio JSON-RPC loop over it. Unlike the other query subcommands, mcp
// does not dial a running otell instance: MCP clients spawn one subprocess
// per session and speak JSON-RPC over that subprocess's own stdin/stdout,
// so stdio must stay dedicated to the protocol rather than shared with a
// line-JSON client connection.
func newMCPCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "serve the MCP stdio JSON-RPC transport against the local store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.cfgFile, nil)
			if err != nil {
				return usageErrorf("load config: %w", err)
			}

			logger, err := zap.NewProduction()
			if err != nil {
				return usageErrorf("build logger: %w", err)
			}
			defer logger.Sync()

			st, err := store.Open(cfg.DBPath, logger)
			if err != nil {
				return notConnectedErrorf("open store: %w", err)
			}
			defer st.Close()

			dispatcher := &query.Dispatcher{Store: st}
			return query.ServeMCP(cmd.Context(), dispatcher, os.Stdin, stdout)
		},
	}
}
