package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ollystack/otell/internal/model"
)

func newTailCmd(g *globalFlags) *cobra.Command {
	var service string
	var fixed, ignoreCase bool

	cmd := &cobra.Command{
		Use:   "tail [pattern]",
		Short: "stream newly ingested log records as they commit",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			addr, err := httpQueryAddr(g)
			if err != nil {
				return notConnectedErrorf("%w", err)
			}

			q := url.Values{}
			if service != "" {
				q.Set("service", service)
			}
			if len(args) == 1 {
				q.Set("pattern", args[0])
			}
			q.Set("fixed", strconv.FormatBool(fixed))
			q.Set("ignore_case", strconv.FormatBool(ignoreCase))

			resp, err := http.Get((&url.URL{Scheme: "http", Host: addr, Path: "/v1/tail", RawQuery: q.Encode()}).String())
			if err != nil {
				return notConnectedErrorf("connect to %s: %w", addr, err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return notConnectedErrorf("tail: unexpected status %s", resp.Status)
			}

			scanner := bufio.NewScanner(resp.Body)
			scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
			for scanner.Scan() {
				line := scanner.Text()
				if !strings.HasPrefix(line, "data: ") {
					continue
				}
				payload := strings.TrimPrefix(line, "data: ")
				if err := printTailLine(g, payload); err != nil {
					fmt.Fprintln(stdout, "tail: malformed record:", err)
				}
			}
			return scanner.Err()
		},
	}
	cmd.Flags().StringVar(&service, "service", "", "restrict to one service.name")
	cmd.Flags().BoolVar(&fixed, "fixed", false, "treat pattern as a literal substring, not a regex")
	cmd.Flags().BoolVar(&ignoreCase, "ignore-case", false, "case-insensitive match")
	return cmd
}

func printTailLine(g *globalFlags, payload string) error {
	if g.jsonOutput {
		fmt.Fprintln(stdout, payload)
		return nil
	}
	var rec model.LogRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		return err
	}
	fmt.Fprintf(stdout, "%s %s %s\n", formatTs(rec.Ts), deref(rec.Service), rec.Body)
	return nil
}
