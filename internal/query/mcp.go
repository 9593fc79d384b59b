package query

import (
	"bufio"
	"context"
	"encoding/json"
	"io"

	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/store"
)

// mcpTool describes one dispatcher Op for the tools/list result.
type mcpTool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

var mcpTools = []mcpTool{
	{string(OpSearch), "Search log bodies and attributes by regex or fixed substring, with optional context."},
	{string(OpTraces), "List trace summaries (root span, duration, status) within a time window."},
	{string(OpTrace), "Reconstruct one trace: every span plus related logs."},
	{string(OpSpan), "Look up a single span plus its related logs."},
	{string(OpMetrics), "Aggregate a named metric's points, grouped and reduced by avg/count/min/max/p50/p95/p99."},
	{string(OpMetricsList), "List known metric names with occurrence counts."},
	{string(OpStatus), "Report store path, size, row counts, and timestamp range."},
	{string(OpResolveHandle), "Re-run the request a previously returned handle encodes."},
}

type jsonrpcRequest struct {
	JSONRPC string          `json:"jsonrpc,omitempty"`
	ID      interface{}     `json:"id,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  json.RawMessage `json:"params,omitempty"`

	// legacy JSONL form: {"tool": "...", "args": {...}}
	Tool string          `json:"tool,omitempty"`
	Args json.RawMessage `json:"args,omitempty"`
}

type jsonrpcResponse struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      interface{}   `json:"id,omitempty"`
	Result  interface{}   `json:"result,omitempty"`
	Error   *jsonrpcError `json:"error,omitempty"`
}

type jsonrpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// ServeMCP runs the JSON-RPC loop over in/out until in is exhausted or ctx
// is cancelled: one request per line, one response per line. No external
// MCP SDK is used, since this transport is a thin collaborator around the
// shared dispatcher.
func ServeMCP(ctx context.Context, d *Dispatcher, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 8*1024*1024)
	enc := json.NewEncoder(out)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var req jsonrpcRequest
		if err := json.Unmarshal(line, &req); err != nil {
			enc.Encode(jsonrpcResponse{JSONRPC: "2.0", Error: &jsonrpcError{Code: -32700, Message: err.Error()}})
			continue
		}

		if req.Tool != "" {
			enc.Encode(callTool(ctx, d, req.Tool, req.Args))
			continue
		}
		enc.Encode(handleJSONRPC(ctx, d, req))
	}
	return scanner.Err()
}

func handleJSONRPC(ctx context.Context, d *Dispatcher, req jsonrpcRequest) jsonrpcResponse {
	switch req.Method {
	case "initialize":
		return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{
			"protocolVersion": "2024-11-05",
			"serverInfo":      map[string]string{"name": "otell", "version": "1"},
			"capabilities":    map[string]interface{}{"tools": map[string]interface{}{}},
		}}
	case "tools/list":
		return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: map[string]interface{}{"tools": mcpTools}}
	case "tools/call":
		var params struct {
			Name      string          `json:"name"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := json.Unmarshal(req.Params, &params); err != nil {
			return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpcError{Code: -32602, Message: err.Error()}}
		}
		return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Result: callTool(ctx, d, params.Name, params.Arguments)}
	default:
		return jsonrpcResponse{JSONRPC: "2.0", ID: req.ID, Error: &jsonrpcError{Code: -32601, Message: "method not found: " + req.Method}}
	}
}

// callTool decodes args into the Request field the named tool expects and
// runs it through the dispatcher. Tool names map 1:1 onto Op constants.
func callTool(ctx context.Context, d *Dispatcher, name string, args json.RawMessage) Response {
	req := Request{Op: Op(name)}
	var err error

	switch req.Op {
	case OpSearch:
		var body store.SearchRequest
		err = unmarshalArgs(args, &body)
		req.Search = &body
	case OpTraces:
		var body store.TracesRequest
		err = unmarshalArgs(args, &body)
		req.Traces = &body
	case OpTrace:
		var body store.TraceRequest
		err = unmarshalArgs(args, &body)
		req.Trace = &body
	case OpSpan:
		var body store.SpanRequest
		err = unmarshalArgs(args, &body)
		req.Span = &body
	case OpMetrics:
		var body store.MetricsRequest
		err = unmarshalArgs(args, &body)
		req.Metrics = &body
	case OpMetricsList:
		var body store.MetricsListRequest
		err = unmarshalArgs(args, &body)
		req.MetricsList = &body
	case OpStatus:
		// no arguments
	case OpResolveHandle:
		var body struct {
			Handle string `json:"handle"`
		}
		err = unmarshalArgs(args, &body)
		req.Handle = model.QueryHandle(body.Handle)
	default:
		return Response{Error: "bad request: unknown tool " + name}
	}
	if err != nil {
		return Response{Error: "bad request: invalid arguments: " + err.Error()}
	}
	return d.Dispatch(ctx, req)
}

func unmarshalArgs(args json.RawMessage, out interface{}) error {
	if len(args) == 0 {
		return nil
	}
	return json.Unmarshal(args, out)
}
