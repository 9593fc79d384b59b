package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ollystack/otell/internal/config"
)

// introInfo is the machine-readable form of the intro command's output.
type introInfo struct {
	Version       string `json:"version"`
	DBPath        string `json:"db_path"`
	OTLPGRPCAddr  string `json:"otlp_grpc_addr"`
	OTLPHTTPAddr  string `json:"otlp_http_addr"`
	QueryTCPAddr  string `json:"query_tcp_addr"`
	QueryHTTPAddr string `json:"query_http_addr"`
	QueryUDSPath  string `json:"query_uds_path"`
}

// newIntroCmd prints a short onboarding summary: what otell is listening
// on and where its data lives. --human forces the friendly rendering even
// under the global --json flag, for an operator piping otell --json intro
// into a terminal instead of a script.
func newIntroCmd(g *globalFlags) *cobra.Command {
	var human bool
	cmd := &cobra.Command{
		Use:   "intro",
		Short: "print a short onboarding summary of this otell instance",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.cfgFile, nil)
			if err != nil {
				return usageErrorf("load config: %w", err)
			}
			info := introInfo{
				Version:       "1",
				DBPath:        cfg.DBPath,
				OTLPGRPCAddr:  cfg.OTLPGRPCAddr,
				OTLPHTTPAddr:  cfg.OTLPHTTPAddr,
				QueryTCPAddr:  cfg.QueryTCPAddr,
				QueryHTTPAddr: cfg.QueryHTTPAddr,
				QueryUDSPath:  cfg.QueryUDSPath,
			}

			if g.jsonOutput && !human {
				enc := json.NewEncoder(stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(info)
			}

			fmt.Fprintln(stdout, "otell is a single-binary OTLP ingest and query tool.")
			fmt.Fprintf(stdout, "store:        %s\n", info.DBPath)
			fmt.Fprintf(stdout, "otlp grpc:    %s\n", info.OTLPGRPCAddr)
			fmt.Fprintf(stdout, "otlp http:    %s\n", info.OTLPHTTPAddr)
			fmt.Fprintf(stdout, "query tcp:    %s\n", info.QueryTCPAddr)
			fmt.Fprintf(stdout, "query http:   %s\n", info.QueryHTTPAddr)
			if info.QueryUDSPath != "" {
				fmt.Fprintf(stdout, "query uds:    %s\n", info.QueryUDSPath)
			}
			fmt.Fprintln(stdout, "\nrun `otell run` to start the daemon, then `otell search <pattern>` to query it.")
			return nil
		},
	}
	cmd.Flags().BoolVar(&human, "human", false, "force human-readable output even under --json")
	return cmd
}
