// Package query implements the pure request/response dispatcher shared by
// every query transport (UDS, TCP, HTTP, SSE tail, MCP stdio), plus those
// five transports themselves. The dispatcher is deliberately transport-
// agnostic: each frontend decodes its own wire format into a Request,
// calls Dispatcher.Dispatch, and encodes the Response back out.
package query

import (
	"context"
	"fmt"

	"github.com/ollystack/otell/internal/handle"
	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/store"
)

// Op names one dispatcher operation; tool/command names across every
// transport map 1:1 onto these.
type Op string

const (
	OpSearch        Op = "search"
	OpTraces        Op = "traces"
	OpTrace         Op = "trace"
	OpSpan          Op = "span"
	OpMetrics       Op = "metrics"
	OpMetricsList   Op = "metrics_list"
	OpStatus        Op = "status"
	OpResolveHandle Op = "resolve_handle"
)

// Request is the single envelope every transport decodes into; exactly
// one of the signal-specific fields is populated per Op.
type Request struct {
	Op Op `json:"op"`

	Search      *store.SearchRequest      `json:"search,omitempty"`
	Traces      *store.TracesRequest      `json:"traces,omitempty"`
	Trace       *store.TraceRequest       `json:"trace,omitempty"`
	Span        *store.SpanRequest        `json:"span,omitempty"`
	Metrics     *store.MetricsRequest     `json:"metrics,omitempty"`
	MetricsList *store.MetricsListRequest `json:"metrics_list,omitempty"`
	Handle      model.QueryHandle         `json:"handle,omitempty"`
}

// Response is the single envelope every transport encodes back out. At
// most one result field is populated; Error is set instead on failure.
type Response struct {
	Error       string                     `json:"error,omitempty"`
	Handle      model.QueryHandle          `json:"handle,omitempty"`
	Search      *store.SearchResponse      `json:"search,omitempty"`
	Traces      *store.TracesResponse      `json:"traces,omitempty"`
	Trace       *store.TraceResponse       `json:"trace,omitempty"`
	Span        *store.SpanResponse        `json:"span,omitempty"`
	Metrics     *store.MetricsResponse     `json:"metrics,omitempty"`
	MetricsList *store.MetricsListResponse `json:"metrics_list,omitempty"`
	Status      *store.StatusResponse      `json:"status,omitempty"`
}

// Dispatcher resolves a Request against a Store. It carries no state of
// its own and is safe for concurrent use by every transport.
type Dispatcher struct {
	Store *store.Store
}

// Dispatch resolves req; a successful response carries a handle that
// reproduces req verbatim via ResolveHandle, an error response carries none.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request) Response {
	if req.Op == OpResolveHandle {
		resolved, err := d.ResolveHandle(req.Handle)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return d.Dispatch(ctx, resolved)
	}

	resp := d.dispatchOne(ctx, req)
	if resp.Error == "" {
		if h, err := handle.Encode(req); err == nil {
			resp.Handle = h
		}
	}
	return resp
}

func (d *Dispatcher) dispatchOne(ctx context.Context, req Request) Response {
	switch req.Op {
	case OpSearch:
		if req.Search == nil {
			return Response{Error: "bad request: missing search"}
		}
		out, err := d.Store.Search(ctx, *req.Search)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Search: out}

	case OpTraces:
		if req.Traces == nil {
			return Response{Error: "bad request: missing traces"}
		}
		out, err := d.Store.Traces(ctx, *req.Traces)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Traces: out}

	case OpTrace:
		if req.Trace == nil {
			return Response{Error: "bad request: missing trace"}
		}
		out, err := d.Store.Trace(ctx, *req.Trace)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Trace: out}

	case OpSpan:
		if req.Span == nil {
			return Response{Error: "bad request: missing span"}
		}
		out, err := d.Store.Span(ctx, *req.Span)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Span: out}

	case OpMetrics:
		if req.Metrics == nil {
			return Response{Error: "bad request: missing metrics"}
		}
		out, err := d.Store.Metrics(ctx, *req.Metrics)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Metrics: out}

	case OpMetricsList:
		if req.MetricsList == nil {
			return Response{Error: "bad request: missing metrics_list"}
		}
		out, err := d.Store.MetricsList(ctx, *req.MetricsList)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{MetricsList: out}

	case OpStatus:
		out, err := d.Store.Status(ctx)
		if err != nil {
			return Response{Error: err.Error()}
		}
		return Response{Status: out}

	default:
		return Response{Error: fmt.Sprintf("bad request: unknown op %q", req.Op)}
	}
}

// ResolveHandle decodes h back into the Request that produced it.
func (d *Dispatcher) ResolveHandle(h model.QueryHandle) (Request, error) {
	var req Request
	if err := handle.Decode(h, &req); err != nil {
		return Request{}, fmt.Errorf("bad request: invalid handle: %w", err)
	}
	return req, nil
}
