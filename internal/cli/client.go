package cli

import (
	"bufio"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/ollystack/otell/internal/config"
	"github.com/ollystack/otell/internal/query"
)

const dialTimeout = 3 * time.Second

// resolveTarget picks the UDS path or TCP address to dial: explicit flags
// win, otherwise the defaults baked into config fill in (UDS only when
// query_uds_path is actually configured; otherwise the TCP line server).
func resolveTarget(g *globalFlags) (network, address string) {
	if g.udsPath != "" {
		return "unix", g.udsPath
	}
	if g.addr != "" {
		return "tcp", g.addr
	}

	cfg, err := config.Load(g.cfgFile, nil)
	if err == nil && cfg.QueryUDSPath != "" {
		return "unix", cfg.QueryUDSPath
	}
	if err == nil && cfg.QueryTCPAddr != "" {
		return "tcp", cfg.QueryTCPAddr
	}
	return "tcp", "127.0.0.1:1779"
}

// dispatchRemote sends req to a running otell instance's line-JSON query
// server (UDS or TCP, the same framing as internal/query.LineServer) and
// returns its Response.
func dispatchRemote(g *globalFlags, req query.Request) (query.Response, error) {
	network, address := resolveTarget(g)

	conn, err := net.DialTimeout(network, address, dialTimeout)
	if err != nil {
		return query.Response{}, notConnectedErrorf("connect to %s %s: %w", network, address, err)
	}
	defer conn.Close()

	if err := json.NewEncoder(conn).Encode(req); err != nil {
		return query.Response{}, notConnectedErrorf("write request: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return query.Response{}, notConnectedErrorf("read response: %w", err)
		}
		return query.Response{}, notConnectedErrorf("read response: connection closed")
	}

	var resp query.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return query.Response{}, notConnectedErrorf("decode response: %w", err)
	}
	return resp, nil
}

// httpQueryAddr resolves the HTTP query transport's address for the tail
// command's SSE stream: --addr if given, else config's query_http_addr.
func httpQueryAddr(g *globalFlags) (string, error) {
	if g.addr != "" {
		return g.addr, nil
	}
	cfg, err := config.Load(g.cfgFile, nil)
	if err != nil {
		return "", fmt.Errorf("load config: %w", err)
	}
	return cfg.QueryHTTPAddr, nil
}

// printResponse renders resp as raw JSON (global --json) or a short
// human-readable rendering per op.
func printResponse(g *globalFlags, resp query.Response) error {
	if resp.Error != "" {
		return queryErrorf("%s", resp.Error)
	}
	if g.jsonOutput {
		enc := json.NewEncoder(stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}
	renderHuman(resp)
	return nil
}
