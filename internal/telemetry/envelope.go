package telemetry

import (
	"encoding/hex"
	"time"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	logsv1 "go.opentelemetry.io/proto/otlp/logs/v1"
	metricsv1 "go.opentelemetry.io/proto/otlp/metrics/v1"
	tracev1 "go.opentelemetry.io/proto/otlp/trace/v1"
)

// Kind tags the telemetry signal an envelope was decoded from.
type Kind string

const (
	KindMetric Kind = "metric"
	KindSpan   Kind = "span"
	KindLog    Kind = "log"
)

// Well-known resource attribute keys. Claude Code has shipped both spellings
// of the session id over time, so resolution checks the fallback too.
const (
	SessionIDKey         = "session.id"
	SessionIDFallbackKey = "claude.session_id"
)

// Envelope is one decoded metric, span, or log record together with the
// resource attributes it arrived under. Envelopes are transient: the engine
// consumes them and keeps only derived aggregate state.
type Envelope struct {
	Kind          Kind
	Timestamp     time.Time
	Scope         string
	ResourceAttrs map[string]any

	Metric *MetricPayload
	Span   *SpanPayload
	Log    *LogPayload
}

// SessionID resolves the session id from resource attributes, checking the
// primary key and then the fallback. Empty when neither is present.
func (e *Envelope) SessionID() string {
	if id := AttrString(e.ResourceAttrs, SessionIDKey); id != "" {
		return id
	}
	return AttrString(e.ResourceAttrs, SessionIDFallbackKey)
}

// MetricPayload carries one metric and its decoded datapoints.
type MetricPayload struct {
	Name        string
	Description string
	Unit        string
	Datapoints  []Datapoint
}

// Datapoint is one measured value with its attribute set. Histogram points
// carry the bucket data alongside the sum in Value.
type Datapoint struct {
	Value     float64
	Attrs     map[string]any
	Start     time.Time
	Time      time.Time
	Histogram *HistogramData
}

// HistogramData holds the bucketed portion of a histogram datapoint.
type HistogramData struct {
	Count          uint64
	Sum            *float64
	BucketCounts   []uint64
	ExplicitBounds []float64
}

// SpanPayload carries one trace span.
type SpanPayload struct {
	TraceID       string
	SpanID        string
	ParentSpanID  string
	Name          string
	SpanKind      int32
	Start         time.Time
	End           time.Time
	DurationMS    float64
	Attrs         map[string]any
	StatusCode    int32
	StatusMessage string
}

// LogPayload carries one log record.
type LogPayload struct {
	Observed     time.Time
	SeverityNum  int32
	SeverityText string
	Body         any
	Attrs        map[string]any
	TraceID      string
	SpanID       string
	Flags        uint32
}

// EnvelopesFromMetrics flattens an OTLP metrics export request into envelopes,
// one per metric. A session.id found on the first datapoint is promoted into
// the resource attributes so session resolution has one place to look.
func EnvelopesFromMetrics(req *collectormetrics.ExportMetricsServiceRequest) []*Envelope {
	var out []*Envelope
	for _, rm := range req.GetResourceMetrics() {
		resourceAttrs := DecodeAttributes(rm.GetResource().GetAttributes())
		for _, sm := range rm.GetScopeMetrics() {
			scope := sm.GetScope().GetName()
			for _, m := range sm.GetMetrics() {
				env := envelopeFromMetric(m, resourceAttrs, scope)
				if env != nil {
					out = append(out, env)
				}
			}
		}
	}
	return out
}

func envelopeFromMetric(m *metricsv1.Metric, resourceAttrs map[string]any, scope string) *Envelope {
	payload := &MetricPayload{
		Name:        m.GetName(),
		Description: m.GetDescription(),
		Unit:        m.GetUnit(),
	}

	if gauge := m.GetGauge(); gauge != nil {
		for _, dp := range gauge.GetDataPoints() {
			payload.Datapoints = append(payload.Datapoints, numberDatapoint(dp))
		}
	}
	if sum := m.GetSum(); sum != nil {
		for _, dp := range sum.GetDataPoints() {
			payload.Datapoints = append(payload.Datapoints, numberDatapoint(dp))
		}
	}
	if hist := m.GetHistogram(); hist != nil {
		for _, dp := range hist.GetDataPoints() {
			payload.Datapoints = append(payload.Datapoints, histogramDatapoint(dp))
		}
	}

	attrs := cloneAttrs(resourceAttrs)
	ts := time.Now().UTC()
	if len(payload.Datapoints) > 0 {
		first := payload.Datapoints[0]
		if !first.Time.IsZero() {
			ts = first.Time
		}
		if id := AttrString(first.Attrs, SessionIDKey); id != "" {
			attrs[SessionIDKey] = id
		}
	}

	return &Envelope{
		Kind:          KindMetric,
		Timestamp:     ts,
		Scope:         scope,
		ResourceAttrs: attrs,
		Metric:        payload,
	}
}

func numberDatapoint(dp *metricsv1.NumberDataPoint) Datapoint {
	var value float64
	switch v := dp.GetValue().(type) {
	case *metricsv1.NumberDataPoint_AsDouble:
		value = v.AsDouble
	case *metricsv1.NumberDataPoint_AsInt:
		value = float64(v.AsInt)
	}
	return Datapoint{
		Value: value,
		Attrs: DecodeAttributes(dp.GetAttributes()),
		Start: nanoTime(dp.GetStartTimeUnixNano()),
		Time:  nanoTime(dp.GetTimeUnixNano()),
	}
}

func histogramDatapoint(dp *metricsv1.HistogramDataPoint) Datapoint {
	hd := &HistogramData{
		Count:          dp.GetCount(),
		BucketCounts:   dp.GetBucketCounts(),
		ExplicitBounds: dp.GetExplicitBounds(),
	}
	var value float64
	if dp.Sum != nil {
		sum := dp.GetSum()
		hd.Sum = &sum
		value = sum
	}
	return Datapoint{
		Value:     value,
		Attrs:     DecodeAttributes(dp.GetAttributes()),
		Start:     nanoTime(dp.GetStartTimeUnixNano()),
		Time:      nanoTime(dp.GetTimeUnixNano()),
		Histogram: hd,
	}
}

// EnvelopesFromTraces flattens an OTLP trace export request into envelopes,
// one per span.
func EnvelopesFromTraces(req *collectortrace.ExportTraceServiceRequest) []*Envelope {
	var out []*Envelope
	for _, rs := range req.GetResourceSpans() {
		resourceAttrs := DecodeAttributes(rs.GetResource().GetAttributes())
		for _, ss := range rs.GetScopeSpans() {
			scope := ss.GetScope().GetName()
			for _, span := range ss.GetSpans() {
				out = append(out, envelopeFromSpan(span, resourceAttrs, scope))
			}
		}
	}
	return out
}

func envelopeFromSpan(span *tracev1.Span, resourceAttrs map[string]any, scope string) *Envelope {
	start := nanoTime(span.GetStartTimeUnixNano())
	end := nanoTime(span.GetEndTimeUnixNano())
	payload := &SpanPayload{
		TraceID:      hex.EncodeToString(span.GetTraceId()),
		SpanID:       hex.EncodeToString(span.GetSpanId()),
		ParentSpanID: hex.EncodeToString(span.GetParentSpanId()),
		Name:         span.GetName(),
		SpanKind:     int32(span.GetKind()),
		Start:        start,
		End:          end,
		DurationMS:   float64(span.GetEndTimeUnixNano()-span.GetStartTimeUnixNano()) / 1e6,
		Attrs:        DecodeAttributes(span.GetAttributes()),
	}
	if status := span.GetStatus(); status != nil {
		payload.StatusCode = int32(status.GetCode())
		payload.StatusMessage = status.GetMessage()
	}

	ts := start
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Envelope{
		Kind:          KindSpan,
		Timestamp:     ts,
		Scope:         scope,
		ResourceAttrs: cloneAttrs(resourceAttrs),
		Span:          payload,
	}
}

// EnvelopesFromLogs flattens an OTLP logs export request into envelopes, one
// per log record. A session.id on the record's own attributes is promoted
// into resource attributes, mirroring the metric promotion.
func EnvelopesFromLogs(req *collectorlogs.ExportLogsServiceRequest) []*Envelope {
	var out []*Envelope
	for _, rl := range req.GetResourceLogs() {
		resourceAttrs := DecodeAttributes(rl.GetResource().GetAttributes())
		for _, sl := range rl.GetScopeLogs() {
			scope := sl.GetScope().GetName()
			for _, rec := range sl.GetLogRecords() {
				out = append(out, envelopeFromLog(rec, resourceAttrs, scope))
			}
		}
	}
	return out
}

func envelopeFromLog(rec *logsv1.LogRecord, resourceAttrs map[string]any, scope string) *Envelope {
	payload := &LogPayload{
		Observed:     nanoTime(rec.GetObservedTimeUnixNano()),
		SeverityNum:  int32(rec.GetSeverityNumber()),
		SeverityText: rec.GetSeverityText(),
		Body:         DecodeAnyValue(rec.GetBody()),
		Attrs:        DecodeAttributes(rec.GetAttributes()),
		TraceID:      hex.EncodeToString(rec.GetTraceId()),
		SpanID:       hex.EncodeToString(rec.GetSpanId()),
		Flags:        rec.GetFlags(),
	}

	attrs := cloneAttrs(resourceAttrs)
	if id := AttrString(payload.Attrs, SessionIDKey); id != "" {
		attrs[SessionIDKey] = id
	}

	ts := nanoTime(rec.GetTimeUnixNano())
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return &Envelope{
		Kind:          KindLog,
		Timestamp:     ts,
		Scope:         scope,
		ResourceAttrs: attrs,
		Log:           payload,
	}
}

func nanoTime(nanos uint64) time.Time {
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, int64(nanos)).UTC()
}

func cloneAttrs(attrs map[string]any) map[string]any {
	out := make(map[string]any, len(attrs))
	for k, v := range attrs {
		out[k] = v
	}
	return out
}
