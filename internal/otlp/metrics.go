package otlp

import (
	"strconv"

	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	commonpb "go.opentelemetry.io/proto/otlp/common/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"

	"github.com/ollystack/otell/internal/model"
)

// DecodeMetricsResult is the output of DecodeMetrics. DataPoints tracks the
// number of OTLP data points processed (pre-expansion), the unit the OTLP
// partial-success response counts in, while Records holds the expanded flat
// point rows actually written to the store.
type DecodeMetricsResult struct {
	Records    []model.MetricPoint
	DataPoints int
	Rejections *Rejections
}

// DecodeMetrics converts an ExportMetricsServiceRequest into flat
// MetricPoints, expanding histograms and summaries per §4.1.
func DecodeMetrics(req *collectormetricspb.ExportMetricsServiceRequest) DecodeMetricsResult {
	rejections := newRejections()
	var out []model.MetricPoint
	dataPoints := 0

	for _, rm := range req.GetResourceMetrics() {
		resourceAttrs := convertAttrs(rm.GetResource().GetAttributes())
		service := extractServiceName(resourceAttrs)

		for _, sm := range rm.GetScopeMetrics() {
			for _, metric := range sm.GetMetrics() {
				points, n, reason := convertMetric(metric, resourceAttrs, sm.GetScope().GetAttributes(), service, rejections)
				dataPoints += n
				if reason != "" {
					rejections.add(errKindForLog(reason))
					continue
				}
				out = append(out, points...)
			}
		}
	}

	return DecodeMetricsResult{Records: out, DataPoints: dataPoints, Rejections: rejections}
}

func convertMetric(metric *metricspb.Metric, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string, rejections *Rejections) ([]model.MetricPoint, int, string) {
	switch data := metric.GetData().(type) {
	case *metricspb.Metric_Gauge:
		return convertNumberPoints(metric.GetName(), model.MetricGauge, data.Gauge.GetDataPoints(), resourceAttrs, scopeAttrs, service, rejections)
	case *metricspb.Metric_Sum:
		kind := model.MetricSumDelta
		if data.Sum.GetAggregationTemporality() == metricspb.AggregationTemporality_AGGREGATION_TEMPORALITY_CUMULATIVE {
			kind = model.MetricSumCumulative
		}
		return convertNumberPoints(metric.GetName(), kind, data.Sum.GetDataPoints(), resourceAttrs, scopeAttrs, service, rejections)
	case *metricspb.Metric_Histogram:
		return convertHistogramPoints(metric.GetName(), data.Histogram.GetDataPoints(), resourceAttrs, scopeAttrs, service, rejections)
	case *metricspb.Metric_Summary:
		return convertSummaryPoints(metric.GetName(), data.Summary.GetDataPoints(), resourceAttrs, scopeAttrs, service, rejections)
	default:
		return nil, 0, "unsupported"
	}
}

func convertNumberPoints(name string, kind model.MetricKind, dps []*metricspb.NumberDataPoint, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string, rejections *Rejections) ([]model.MetricPoint, int, string) {
	var out []model.MetricPoint
	for _, dp := range dps {
		if dp.GetTimeUnixNano() == 0 {
			rejections.add(InvalidTimestamp)
			continue
		}
		attrs := convertAttrs(dp.GetAttributes())
		mergeResourceAndScope(attrs, resourceAttrs, scopeAttrs)
		out = append(out, model.MetricPoint{
			Name:    name,
			Service: service,
			Ts:      int64(dp.GetTimeUnixNano()),
			Value:   numberValue(dp),
			Attrs:   attrs,
			Kind:    kind,
		})
	}
	return out, len(dps), ""
}

func numberValue(dp *metricspb.NumberDataPoint) float64 {
	switch v := dp.GetValue().(type) {
	case *metricspb.NumberDataPoint_AsDouble:
		return v.AsDouble
	case *metricspb.NumberDataPoint_AsInt:
		return float64(v.AsInt)
	default:
		return 0
	}
}

func convertHistogramPoints(name string, dps []*metricspb.HistogramDataPoint, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string, rejections *Rejections) ([]model.MetricPoint, int, string) {
	var out []model.MetricPoint
	for _, dp := range dps {
		if dp.GetTimeUnixNano() == 0 {
			rejections.add(InvalidTimestamp)
			continue
		}
		base := convertAttrs(dp.GetAttributes())
		mergeResourceAndScope(base, resourceAttrs, scopeAttrs)
		ts := int64(dp.GetTimeUnixNano())

		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: ts, Value: float64(dp.GetCount()),
			Attrs: cloneAttrs(base), Kind: model.MetricHistogram, Stat: "count",
		})
		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: ts, Value: dp.GetSum(),
			Attrs: cloneAttrs(base), Kind: model.MetricHistogram, Stat: "sum",
		})

		bounds := dp.GetExplicitBounds()
		counts := dp.GetBucketCounts()
		for i, c := range counts {
			bucketAttrs := cloneAttrs(base)
			bucketAttrs["le"] = model.StringValue(bucketBound(bounds, i))
			out = append(out, model.MetricPoint{
				Name: name, Service: service, Ts: ts, Value: float64(c),
				Attrs: bucketAttrs, Kind: model.MetricHistogram, Stat: "bucket_le",
			})
		}
	}
	return out, len(dps), ""
}

func bucketBound(bounds []float64, idx int) string {
	if idx >= len(bounds) {
		return "+Inf"
	}
	return strconv.FormatFloat(bounds[idx], 'g', -1, 64)
}

func convertSummaryPoints(name string, dps []*metricspb.SummaryDataPoint, resourceAttrs model.Attrs, scopeAttrs []*commonpb.KeyValue, service *string, rejections *Rejections) ([]model.MetricPoint, int, string) {
	var out []model.MetricPoint
	for _, dp := range dps {
		if dp.GetTimeUnixNano() == 0 {
			rejections.add(InvalidTimestamp)
			continue
		}
		base := convertAttrs(dp.GetAttributes())
		mergeResourceAndScope(base, resourceAttrs, scopeAttrs)
		ts := int64(dp.GetTimeUnixNano())

		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: ts, Value: float64(dp.GetCount()),
			Attrs: cloneAttrs(base), Kind: model.MetricSummary, Stat: "count",
		})
		out = append(out, model.MetricPoint{
			Name: name, Service: service, Ts: ts, Value: dp.GetSum(),
			Attrs: cloneAttrs(base), Kind: model.MetricSummary, Stat: "sum",
		})

		for _, q := range dp.GetQuantileValues() {
			qAttrs := cloneAttrs(base)
			qAttrs["q"] = model.StringValue(strconv.FormatFloat(q.GetQuantile(), 'g', -1, 64))
			out = append(out, model.MetricPoint{
				Name: name, Service: service, Ts: ts, Value: q.GetValue(),
				Attrs: qAttrs, Kind: model.MetricSummary, Stat: "q",
			})
		}
	}
	return out, len(dps), ""
}

func cloneAttrs(a model.Attrs) model.Attrs {
	out := make(model.Attrs, len(a)+1)
	for k, v := range a {
		out[k] = v
	}
	return out
}
