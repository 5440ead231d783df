package telemetry

import (
	"testing"
	"time"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	commonv1 "go.opentelemetry.io/proto/otlp/common/v1"
	logsv1 "go.opentelemetry.io/proto/otlp/logs/v1"
	metricsv1 "go.opentelemetry.io/proto/otlp/metrics/v1"
	resourcev1 "go.opentelemetry.io/proto/otlp/resource/v1"
	tracev1 "go.opentelemetry.io/proto/otlp/trace/v1"
)

var testNanos = uint64(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC).UnixNano())

func metricsRequest(resourceAttrs []*commonv1.KeyValue, metrics ...*metricsv1.Metric) *collectormetrics.ExportMetricsServiceRequest {
	return &collectormetrics.ExportMetricsServiceRequest{
		ResourceMetrics: []*metricsv1.ResourceMetrics{{
			Resource: &resourcev1.Resource{Attributes: resourceAttrs},
			ScopeMetrics: []*metricsv1.ScopeMetrics{{
				Scope:   &commonv1.InstrumentationScope{Name: "com.anthropic.claude_code"},
				Metrics: metrics,
			}},
		}},
	}
}

func TestEnvelopesFromMetrics_SumDatapoints(t *testing.T) {
	req := metricsRequest(
		[]*commonv1.KeyValue{{Key: "session.id", Value: strVal("S1")}},
		&metricsv1.Metric{
			Name: "claude_code.token.usage",
			Unit: "{tokens}",
			Data: &metricsv1.Metric_Sum{Sum: &metricsv1.Sum{
				DataPoints: []*metricsv1.NumberDataPoint{
					{
						Value:        &metricsv1.NumberDataPoint_AsInt{AsInt: 100},
						TimeUnixNano: testNanos,
						Attributes: []*commonv1.KeyValue{
							{Key: "model", Value: strVal("claude-x")},
							{Key: "type", Value: strVal("input")},
						},
					},
					{
						Value:        &metricsv1.NumberDataPoint_AsDouble{AsDouble: 50},
						TimeUnixNano: testNanos,
						Attributes: []*commonv1.KeyValue{
							{Key: "model", Value: strVal("claude-x")},
							{Key: "type", Value: strVal("output")},
						},
					},
				},
			}},
		},
	)

	envs := EnvelopesFromMetrics(req)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	env := envs[0]
	if env.Kind != KindMetric {
		t.Errorf("kind = %q", env.Kind)
	}
	if env.SessionID() != "S1" {
		t.Errorf("session id = %q, want S1", env.SessionID())
	}
	if env.Scope != "com.anthropic.claude_code" {
		t.Errorf("scope = %q", env.Scope)
	}
	if env.Metric.Name != "claude_code.token.usage" {
		t.Errorf("metric name = %q", env.Metric.Name)
	}
	if len(env.Metric.Datapoints) != 2 {
		t.Fatalf("expected 2 datapoints, got %d", len(env.Metric.Datapoints))
	}
	if env.Metric.Datapoints[0].Value != 100 || env.Metric.Datapoints[1].Value != 50 {
		t.Errorf("datapoint values = %v/%v", env.Metric.Datapoints[0].Value, env.Metric.Datapoints[1].Value)
	}
	if !env.Timestamp.Equal(time.Unix(0, int64(testNanos)).UTC()) {
		t.Errorf("envelope timestamp = %v, want datapoint time", env.Timestamp)
	}
}

func TestEnvelopesFromMetrics_PromotesDatapointSessionID(t *testing.T) {
	req := metricsRequest(
		nil, // no session id on the resource
		&metricsv1.Metric{
			Name: "claude_code.cost.usage",
			Data: &metricsv1.Metric_Gauge{Gauge: &metricsv1.Gauge{
				DataPoints: []*metricsv1.NumberDataPoint{{
					Value: &metricsv1.NumberDataPoint_AsDouble{AsDouble: 0.5},
					Attributes: []*commonv1.KeyValue{
						{Key: "session.id", Value: strVal("S9")},
					},
				}},
			}},
		},
	)

	envs := EnvelopesFromMetrics(req)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	if envs[0].SessionID() != "S9" {
		t.Errorf("session id = %q, want promoted S9", envs[0].SessionID())
	}
}

func TestEnvelopesFromMetrics_Histogram(t *testing.T) {
	sum := 12.5
	req := metricsRequest(
		[]*commonv1.KeyValue{{Key: "session.id", Value: strVal("S1")}},
		&metricsv1.Metric{
			Name: "claude_code.api_request.duration",
			Data: &metricsv1.Metric_Histogram{Histogram: &metricsv1.Histogram{
				DataPoints: []*metricsv1.HistogramDataPoint{{
					Count:          4,
					Sum:            &sum,
					BucketCounts:   []uint64{1, 2, 1},
					ExplicitBounds: []float64{1, 5},
					TimeUnixNano:   testNanos,
				}},
			}},
		},
	)

	envs := EnvelopesFromMetrics(req)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	dp := envs[0].Metric.Datapoints[0]
	if dp.Histogram == nil {
		t.Fatal("histogram payload missing")
	}
	if dp.Histogram.Count != 4 || dp.Value != 12.5 {
		t.Errorf("histogram count/sum = %d/%v", dp.Histogram.Count, dp.Value)
	}
}

func TestEnvelopesFromTraces(t *testing.T) {
	start := testNanos
	end := testNanos + 1_500_000_000 // +1.5s
	req := &collectortrace.ExportTraceServiceRequest{
		ResourceSpans: []*tracev1.ResourceSpans{{
			Resource: &resourcev1.Resource{Attributes: []*commonv1.KeyValue{
				{Key: "claude.session_id", Value: strVal("S1")},
			}},
			ScopeSpans: []*tracev1.ScopeSpans{{
				Spans: []*tracev1.Span{{
					TraceId:           []byte{1, 2},
					SpanId:            []byte{3, 4},
					Name:              "claude.ai_interaction",
					StartTimeUnixNano: start,
					EndTimeUnixNano:   end,
					Attributes: []*commonv1.KeyValue{
						{Key: "model.name", Value: strVal("claude-x")},
					},
					Status: &tracev1.Status{Code: tracev1.Status_STATUS_CODE_OK},
				}},
			}},
		}},
	}

	envs := EnvelopesFromTraces(req)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	env := envs[0]
	if env.Kind != KindSpan {
		t.Errorf("kind = %q", env.Kind)
	}
	if env.SessionID() != "S1" {
		t.Errorf("session id via fallback key = %q", env.SessionID())
	}
	if env.Span.SpanID != "0304" {
		t.Errorf("span id = %q, want hex 0304", env.Span.SpanID)
	}
	if env.Span.DurationMS != 1500 {
		t.Errorf("duration = %v ms, want 1500", env.Span.DurationMS)
	}
	if env.Span.Attrs["model.name"] != "claude-x" {
		t.Errorf("span attrs = %v", env.Span.Attrs)
	}
}

func TestEnvelopesFromLogs_PromotesSessionID(t *testing.T) {
	req := &collectorlogs.ExportLogsServiceRequest{
		ResourceLogs: []*logsv1.ResourceLogs{{
			Resource: &resourcev1.Resource{},
			ScopeLogs: []*logsv1.ScopeLogs{{
				LogRecords: []*logsv1.LogRecord{{
					TimeUnixNano: testNanos,
					SeverityText: "INFO",
					Body:         strVal("user prompt submitted"),
					Attributes: []*commonv1.KeyValue{
						{Key: "session.id", Value: strVal("S1")},
						{Key: "event.name", Value: strVal("user_prompt")},
					},
				}},
			}},
		}},
	}

	envs := EnvelopesFromLogs(req)
	if len(envs) != 1 {
		t.Fatalf("expected 1 envelope, got %d", len(envs))
	}
	env := envs[0]
	if env.Kind != KindLog {
		t.Errorf("kind = %q", env.Kind)
	}
	if env.SessionID() != "S1" {
		t.Errorf("session id promoted from log attrs = %q", env.SessionID())
	}
	if env.Log.Body != "user prompt submitted" {
		t.Errorf("body = %v", env.Log.Body)
	}
	if env.Log.SeverityText != "INFO" {
		t.Errorf("severity = %q", env.Log.SeverityText)
	}
}
