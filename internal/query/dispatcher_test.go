package query

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ollystack/otell/internal/model"
	"github.com/ollystack/otell/internal/store"
)

func newTestDispatcher(t *testing.T) *Dispatcher {
	t.Helper()
	s, err := store.Open(":memory:", zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return &Dispatcher{Store: s}
}

func TestDispatchAttachesResolvableHandle(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	req := Request{Op: OpStatus}
	resp := d.Dispatch(ctx, req)
	require.Empty(t, resp.Error)
	require.NotEmpty(t, resp.Handle)

	resolved, err := d.ResolveHandle(resp.Handle)
	require.NoError(t, err)
	require.Equal(t, req, resolved)
}

func TestDispatchResolveHandleReplaysRequest(t *testing.T) {
	d := newTestDispatcher(t)
	ctx := context.Background()

	require.NoError(t, d.Store.InsertLogs(ctx, []model.LogRecord{
		{Ts: 1, Body: "hello world", Attrs: model.Attrs{}},
	}))

	first := d.Dispatch(ctx, Request{Op: OpSearch, Search: &store.SearchRequest{
		Pattern: "hello", Filter: store.Filter{Limit: 10},
	}})
	require.Empty(t, first.Error)
	require.NotNil(t, first.Search)
	require.Equal(t, 1, first.Search.TotalMatches)

	replay := d.Dispatch(ctx, Request{Op: OpResolveHandle, Handle: first.Handle})
	require.Empty(t, replay.Error)
	require.NotNil(t, replay.Search)
	require.Equal(t, first.Search.TotalMatches, replay.Search.TotalMatches)
}

func TestDispatchUnknownOp(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{Op: "bogus"})
	require.NotEmpty(t, resp.Error)
}

func TestDispatchMissingPayload(t *testing.T) {
	d := newTestDispatcher(t)
	resp := d.Dispatch(context.Background(), Request{Op: OpSearch})
	require.Contains(t, resp.Error, "missing search")
}
