package otlp

import (
	"testing"

	"github.com/stretchr/testify/require"

	collectorlogspb "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	logspb "go.opentelemetry.io/proto/otlp/logs/v1"
	resourcepb "go.opentelemetry.io/proto/otlp/resource/v1"

	"github.com/ollystack/otell/internal/model"
)

func strValue(s string) *commonpb.AnyValue {
	return &commonpb.AnyValue{Value: &commonpb.AnyValue_StringValue{StringValue: s}}
}

func TestDecodeLogsMergesResourceServiceAndScopePrefix(t *testing.T) {
	req := &collectorlogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				Resource: &resourcepb.Resource{
					Attributes: []*commonpb.KeyValue{
						{Key: "service.name", Value: strValue("api")},
					},
				},
				ScopeLogs: []*logspb.ScopeLogs{
					{
						Scope: &commonpb.InstrumentationScope{
							Attributes: []*commonpb.KeyValue{
								{Key: "lib", Value: strValue("grpc")},
							},
						},
						LogRecords: []*logspb.LogRecord{
							{
								TimeUnixNano:   1000,
								SeverityNumber: logspb.SeverityNumber_SEVERITY_NUMBER_INFO,
								Body:           strValue("context deadline exceeded"),
							},
						},
					},
				},
			},
		},
	}

	result := DecodeLogs(req)
	require.Equal(t, 0, result.Rejections.Total())
	require.Len(t, result.Records, 1)

	rec := result.Records[0]
	require.Equal(t, int64(1000), rec.Ts)
	require.NotNil(t, rec.Service)
	require.Equal(t, "api", *rec.Service)
	require.Equal(t, model.SeverityInfo, rec.Severity)
	require.Equal(t, "context deadline exceeded", rec.Body)
	require.Equal(t, model.StringValue("grpc"), rec.Attrs["scope.lib"])
}

func TestDecodeLogsRejectsZeroTimestamp(t *testing.T) {
	req := &collectorlogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				ScopeLogs: []*logspb.ScopeLogs{
					{
						LogRecords: []*logspb.LogRecord{
							{TimeUnixNano: 0, Body: strValue("no ts")},
						},
					},
				},
			},
		},
	}

	result := DecodeLogs(req)
	require.Empty(t, result.Records)
	require.Equal(t, 1, result.Rejections.Total())
	errs := result.Rejections.Errors()
	require.Len(t, errs, 1)
	require.Equal(t, InvalidTimestamp, errs[0].Kind)
}

func TestDecodeLogsRejectsMalformedTraceID(t *testing.T) {
	req := &collectorlogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				ScopeLogs: []*logspb.ScopeLogs{
					{
						LogRecords: []*logspb.LogRecord{
							{TimeUnixNano: 1, TraceId: []byte{0x01, 0x02}, Body: strValue("bad id")},
						},
					},
				},
			},
		},
	}

	result := DecodeLogs(req)
	require.Empty(t, result.Records)
	require.Equal(t, 1, result.Rejections.Total())
	require.Equal(t, InvalidID, result.Rejections.Errors()[0].Kind)
}

func TestDecodeLogsFallsBackToSeverityText(t *testing.T) {
	req := &collectorlogspb.ExportLogsServiceRequest{
		ResourceLogs: []*logspb.ResourceLogs{
			{
				ScopeLogs: []*logspb.ScopeLogs{
					{
						LogRecords: []*logspb.LogRecord{
							{TimeUnixNano: 1, SeverityNumber: 99, SeverityText: "WARN", Body: strValue("x")},
						},
					},
				},
			},
		},
	}

	result := DecodeLogs(req)
	require.Len(t, result.Records, 1)
	require.Equal(t, model.SeverityWarn, result.Records[0].Severity)
}
