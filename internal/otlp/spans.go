package otlp

import (
	collectortracepb "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	tracepb "go.opentelemetry.io/proto/otlp/trace/v1"

	"github.com/ollystack/otell/internal/model"
)

// DecodeSpansResult is the output of DecodeSpans.
type DecodeSpansResult struct {
	Records    []model.SpanRecord
	Rejections *Rejections
}

// DecodeSpans converts an ExportTraceServiceRequest into flat SpanRecords.
func DecodeSpans(req *collectortracepb.ExportTraceServiceRequest) DecodeSpansResult {
	rejections := newRejections()
	var out []model.SpanRecord

	for _, rs := range req.GetResourceSpans() {
		resourceAttrs := convertAttrs(rs.GetResource().GetAttributes())
		service := extractServiceName(resourceAttrs)

		for _, ss := range rs.GetScopeSpans() {
			for _, span := range ss.GetSpans() {
				rec, reason := convertSpan(span, resourceAttrs, ss.GetScope().GetAttributes(), service)
				if reason != "" {
					rejections.add(errKindForLog(reason))
					continue
				}
				out = append(out, rec)
			}
		}
	}

	return DecodeSpansResult{Records: out, Rejections: rejections}
}

func convertSpan(span *tracepb.Span, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string) (model.SpanRecord, string) {
	if span.GetStartTimeUnixNano() == 0 {
		return model.SpanRecord{}, "ts"
	}
	endTs := int64(span.GetEndTimeUnixNano())
	if endTs == 0 {
		endTs = int64(span.GetStartTimeUnixNano())
	}
	if endTs < int64(span.GetStartTimeUnixNano()) {
		return model.SpanRecord{}, "ts"
	}

	tid, ok := traceID(span.GetTraceId())
	if !ok || tid == "" {
		return model.SpanRecord{}, "id"
	}
	sid, ok := spanID(span.GetSpanId())
	if !ok || sid == "" {
		return model.SpanRecord{}, "id"
	}
	parentID, ok := spanID(span.GetParentSpanId())
	if !ok {
		return model.SpanRecord{}, "id"
	}

	attrs := convertAttrs(span.GetAttributes())
	mergeResourceAndScope(attrs, resourceAttrs, scopeAttrs)

	return model.SpanRecord{
		TraceID:       tid,
		SpanID:        sid,
		ParentSpanID:  parentID,
		Service:       service,
		Name:          span.GetName(),
		Kind:          convertSpanKind(span.GetKind()),
		StartTs:       int64(span.GetStartTimeUnixNano()),
		EndTs:         endTs,
		Status:        convertSpanStatus(span.GetStatus()),
		StatusMessage: span.GetStatus().GetMessage(),
		Attrs:         attrs,
		Events:        convertSpanEvents(span.GetEvents()),
		Links:         convertSpanLinks(span.GetLinks()),
	}, ""
}

func convertSpanKind(k tracepb.Span_SpanKind) model.SpanKind {
	switch k {
	case tracepb.Span_SPAN_KIND_SERVER:
		return model.SpanKindServer
	case tracepb.Span_SPAN_KIND_CLIENT:
		return model.SpanKindClient
	case tracepb.Span_SPAN_KIND_PRODUCER:
		return model.SpanKindProducer
	case tracepb.Span_SPAN_KIND_CONSUMER:
		return model.SpanKindConsumer
	default:
		return model.SpanKindInternal
	}
}

func convertSpanStatus(s *tracepb.Status) model.SpanStatus {
	if s == nil {
		return model.StatusUnset
	}
	switch s.GetCode() {
	case tracepb.Status_STATUS_CODE_OK:
		return model.StatusOk
	case tracepb.Status_STATUS_CODE_ERROR:
		return model.StatusError
	default:
		return model.StatusUnset
	}
}

func convertSpanEvents(events []*tracepb.Span_Event) []model.SpanEvent {
	if len(events) == 0 {
		return nil
	}
	out := make([]model.SpanEvent, 0, len(events))
	for _, e := range events {
		out = append(out, model.SpanEvent{
			Ts:    int64(e.GetTimeUnixNano()),
			Name:  e.GetName(),
			Attrs: convertAttrs(e.GetAttributes()),
		})
	}
	return out
}

func convertSpanLinks(links []*tracepb.Span_Link) []model.SpanLink {
	if len(links) == 0 {
		return nil
	}
	out := make([]model.SpanLink, 0, len(links))
	for _, l := range links {
		tid, ok := traceID(l.GetTraceId())
		if !ok {
			continue
		}
		sid, ok := spanID(l.GetSpanId())
		if !ok {
			continue
		}
		out = append(out, model.SpanLink{
			TraceID: tid,
			SpanID:  sid,
			Attrs:   convertAttrs(l.GetAttributes()),
		})
	}
	return out
}
