package otlp

import (
	"testing"

	"github.com/stretchr/testify/require"

	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/ollystack/otell/internal/model"
)

func sixteenBytes(b byte) []byte {
	out := make([]byte, 16)
	for i := range out {
		out[i] = b
	}
	return out
}

func eightBytes(b byte) []byte {
	out := make([]byte, 8)
	for i := range out {
		out[i] = b
	}
	return out
}

func TestDecodeSpansReconstructsTrace(t *testing.T) {
	traceID := sixteenBytes(0xAB)
	root := eightBytes(0x01)
	childA := eightBytes(0x02)
	childB := eightBytes(0x03)

	mkSpan := func(spanID, parent []byte, start, end uint64, status tracepb.Status_StatusCode) *tracepb.Span {
		s := &tracepb.Span{
			TraceId:           traceID,
			SpanId:            spanID,
			ParentSpanId:      parent,
			Name:              "op",
			Kind:              tracepb.Span_SPAN_KIND_SERVER,
			StartTimeUnixNano: start,
			EndTimeUnixNano:   end,
			Status:            &tracepb.Status{Code: status},
		}
		return s
	}

	req := &collectortracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							mkSpan(root, nil, 10, 20, tracepb.Status_STATUS_CODE_ERROR),
							mkSpan(childA, root, 11, 15, tracepb.Status_STATUS_CODE_UNSET),
							mkSpan(childB, root, 16, 19, tracepb.Status_STATUS_CODE_UNSET),
						},
					},
				},
			},
		},
	}

	result := DecodeSpans(req)
	require.Equal(t, 0, result.Rejections.Total())
	require.Len(t, result.Records, 3)

	byID := map[string]model.SpanRecord{}
	for _, r := range result.Records {
		byID[r.SpanID] = r
	}

	rootRec, ok := byID["0101010101010101"]
	require.True(t, ok)
	require.Equal(t, "", rootRec.ParentSpanID)
	require.Equal(t, model.StatusError, rootRec.Status)
	require.Equal(t, model.SpanKindServer, rootRec.Kind)

	childRec, ok := byID["0202020202020202"]
	require.True(t, ok)
	require.Equal(t, rootRec.SpanID, childRec.ParentSpanID)
}

func TestDecodeSpansRejectsEndBeforeStart(t *testing.T) {
	req := &collectortracepb.ExportTraceServiceRequest{
		ResourceSpans: []*tracepb.ResourceSpans{
			{
				ScopeSpans: []*tracepb.ScopeSpans{
					{
						Spans: []*tracepb.Span{
							{
								TraceId:           sixteenBytes(0x01),
								SpanId:            eightBytes(0x01),
								StartTimeUnixNano: 100,
								EndTimeUnixNano:   50,
							},
						},
					},
				},
			},
		},
	}

	result := DecodeSpans(req)
	require.Empty(t, result.Records)
	require.Equal(t, 1, result.Rejections.Total())
	require.Equal(t, InvalidTimestamp, result.Rejections.Errors()[0].Kind)
}
