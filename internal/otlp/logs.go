package otlp

import (
	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"

	"github.com/ollystack/otell/internal/model"
)

// DecodeLogsResult is the output of DecodeLogs: the accepted records plus
// a partial-success rejection tally.
type DecodeLogsResult struct {
	Records     []model.LogRecord
	Rejections  *Rejections
}

// DecodeLogs converts an ExportLogsServiceRequest into flat LogRecords.
func DecodeLogs(req *collectorlogspb.ExportLogsServiceRequest) DecodeLogsResult {
	rejections := newRejections()
	var out []model.LogRecord

	for _, rl := range req.GetResourceLogs() {
		resourceAttrs := convertAttrs(rl.GetResource().GetAttributes())
		service := extractServiceName(resourceAttrs)

		for _, sl := range rl.GetScopeLogs() {
			for _, lr := range sl.GetLogRecords() {
				rec, err := convertLogRecord(lr, resourceAttrs, sl.GetScope().GetAttributes(), service)
				if err != "" {
					rejections.add(errKindForLog(err))
					continue
				}
				out = append(out, rec)
			}
		}
	}

	return DecodeLogsResult{Records: out, Rejections: rejections}
}

func errKindForLog(reason string) DecodeErrorKind {
	switch reason {
	case "id":
		return InvalidID
	case "ts":
		return InvalidTimestamp
	case "unsupported":
		return UnsupportedField
	default:
		return MalformedProtobuf
	}
}

// convertLogRecord returns (rec, "") on success, or a rejection reason
// string on failure.
func convertLogRecord(lr *logspb.LogRecord, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string) (model.LogRecord, string) {
	if lr.GetTimeUnixNano() == 0 {
		return model.LogRecord{}, "ts"
	}

	tid, ok := traceID(lr.GetTraceId())
	if !ok {
		return model.LogRecord{}, "id"
	}
	sid, ok := spanID(lr.GetSpanId())
	if !ok {
		return model.LogRecord{}, "id"
	}

	attrs := convertAttrs(lr.GetAttributes())
	mergeResourceAndScope(attrs, resourceAttrs, scopeAttrs)

	severity := model.Severity(lr.GetSeverityNumber())
	if !model.SeverityValid(int32(severity)) {
		severity = model.SeverityFromText(lr.GetSeverityText())
	}

	return model.LogRecord{
		Ts:       int64(lr.GetTimeUnixNano()),
		Service:  service,
		Severity: severity,
		TraceID:  tid,
		SpanID:   sid,
		Body:     bodyText(lr),
		Attrs:    attrs,
	}, ""
}

func bodyText(lr *logspb.LogRecord) string {
	if lr.GetBody() == nil {
		return ""
	}
	return convertAnyValue(lr.GetBody()).Text()
}
