package otlp

import (
	"testing"

	"github.com/stretchr/testify/require"

	collectormetricspb "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	metricspb "go.opentelemetry.io/proto/otlp/metrics/v1"

	"github.com/ollystack/otell/internal/model"
)

func float64Ptr(f float64) *float64 { return &f }

func TestDecodeMetricsGaugeOnePointPerDataPoint(t *testing.T) {
	req := &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{
			{
				ScopeMetrics: []*metricspb.ScopeMetrics{
					{
						Metrics: []*metricspb.Metric{
							{
								Name: "cpu.usage",
								Data: &metricspb.Metric_Gauge{
									Gauge: &metricspb.Gauge{
										DataPoints: []*metricspb.NumberDataPoint{
											{TimeUnixNano: 1, Value: &metricspb.NumberDataPoint_AsDouble{AsDouble: 0.5}},
											{TimeUnixNano: 2, Value: &metricspb.NumberDataPoint_AsDouble{AsDouble: 0.7}},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	result := DecodeMetrics(req)
	require.Equal(t, 0, result.Rejections.Total())
	require.Len(t, result.Records, 2)
	for _, p := range result.Records {
		require.Equal(t, "cpu.usage", p.Name)
		require.Equal(t, model.MetricGauge, p.Kind)
	}
}

func TestDecodeMetricsHistogramExpandsCountSumBuckets(t *testing.T) {
	req := &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{
			{
				ScopeMetrics: []*metricspb.ScopeMetrics{
					{
						Metrics: []*metricspb.Metric{
							{
								Name: "http.server.duration",
								Data: &metricspb.Metric_Histogram{
									Histogram: &metricspb.Histogram{
										DataPoints: []*metricspb.HistogramDataPoint{
											{
												TimeUnixNano:   1,
												Count:          10,
												Sum:            float64Ptr(50),
												ExplicitBounds: []float64{1, 5},
												BucketCounts:   []uint64{3, 4, 3},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	result := DecodeMetrics(req)
	require.Equal(t, 0, result.Rejections.Total())
	// count + sum + 3 buckets
	require.Len(t, result.Records, 5)

	byStat := map[string][]model.MetricPoint{}
	for _, p := range result.Records {
		byStat[p.Stat] = append(byStat[p.Stat], p)
	}
	require.Len(t, byStat["count"], 1)
	require.Equal(t, float64(10), byStat["count"][0].Value)
	require.Len(t, byStat["sum"], 1)
	require.Equal(t, float64(50), byStat["sum"][0].Value)
	require.Len(t, byStat["bucket_le"], 3)

	var bounds []string
	for _, b := range byStat["bucket_le"] {
		bounds = append(bounds, b.Attrs["le"].Text())
	}
	require.Equal(t, []string{"1", "5", "+Inf"}, bounds)
}

func TestDecodeMetricsSummaryExpandsQuantiles(t *testing.T) {
	req := &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{
			{
				ScopeMetrics: []*metricspb.ScopeMetrics{
					{
						Metrics: []*metricspb.Metric{
							{
								Name: "req.latency",
								Data: &metricspb.Metric_Summary{
									Summary: &metricspb.Summary{
										DataPoints: []*metricspb.SummaryDataPoint{
											{
												TimeUnixNano: 1,
												Count:        100,
												Sum:          1000,
												QuantileValues: []*metricspb.SummaryDataPoint_ValueAtQuantile{
													{Quantile: 0.5, Value: 9},
													{Quantile: 0.99, Value: 42},
												},
											},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	result := DecodeMetrics(req)
	require.Equal(t, 0, result.Rejections.Total())
	require.Len(t, result.Records, 4)

	qCount := 0
	for _, p := range result.Records {
		if p.Stat == "q" {
			qCount++
		}
	}
	require.Equal(t, 2, qCount)
}

func TestDecodeMetricsRejectsZeroTimestamp(t *testing.T) {
	req := &collectormetricspb.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricspb.ResourceMetrics{
			{
				ScopeMetrics: []*metricspb.ScopeMetrics{
					{
						Metrics: []*metricspb.Metric{
							{
								Name: "cpu.usage",
								Data: &metricspb.Metric_Gauge{
									Gauge: &metricspb.Gauge{
										DataPoints: []*metricspb.NumberDataPoint{
											{TimeUnixNano: 0, Value: &metricspb.NumberDataPoint_AsDouble{AsDouble: 0.5}},
											{TimeUnixNano: 2, Value: &metricspb.NumberDataPoint_AsDouble{AsDouble: 0.7}},
										},
									},
								},
							},
							{
								Name: "http.server.duration",
								Data: &metricspb.Metric_Histogram{
									Histogram: &metricspb.Histogram{
										DataPoints: []*metricspb.HistogramDataPoint{
											{TimeUnixNano: 0, Count: 10, Sum: float64Ptr(50)},
										},
									},
								},
							},
							{
								Name: "req.latency",
								Data: &metricspb.Metric_Summary{
									Summary: &metricspb.Summary{
										DataPoints: []*metricspb.SummaryDataPoint{
											{TimeUnixNano: 0, Count: 100, Sum: 1000},
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}

	result := DecodeMetrics(req)
	require.Equal(t, 3, result.Rejections.Total())
	require.Len(t, result.Records, 1)
	require.Equal(t, "cpu.usage", result.Records[0].Name)
}
