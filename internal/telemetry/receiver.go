package telemetry

import (
	"fmt"
	"io"
	"log/slog"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
)

// EnvelopeHandler consumes one decoded envelope. The aggregation engine's
// ingest is wired here; decode failures never reach it.
type EnvelopeHandler func(*Envelope)

// Receiver decodes OTLP export payloads into envelopes and hands them to the
// configured handler. It is shared by the HTTP and gRPC transports.
type Receiver struct {
	handle EnvelopeHandler
	logger *slog.Logger
}

// NewReceiver creates a receiver delivering envelopes to handle.
func NewReceiver(handle EnvelopeHandler, logger *slog.Logger) *Receiver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Receiver{handle: handle, logger: logger}
}

// HandleMetrics decodes one metrics export request body (protobuf, or JSON
// when contentType says so) and dispatches its envelopes.
func (r *Receiver) HandleMetrics(body io.Reader, contentType string) error {
	var req collectormetrics.ExportMetricsServiceRequest
	if err := unmarshalBody(body, contentType, &req); err != nil {
		return fmt.Errorf("decode metrics export: %w", err)
	}
	r.dispatch(EnvelopesFromMetrics(&req))
	return nil
}

// HandleTraces decodes one trace export request body and dispatches it.
func (r *Receiver) HandleTraces(body io.Reader, contentType string) error {
	var req collectortrace.ExportTraceServiceRequest
	if err := unmarshalBody(body, contentType, &req); err != nil {
		return fmt.Errorf("decode trace export: %w", err)
	}
	r.dispatch(EnvelopesFromTraces(&req))
	return nil
}

// HandleLogs decodes one logs export request body and dispatches it.
func (r *Receiver) HandleLogs(body io.Reader, contentType string) error {
	var req collectorlogs.ExportLogsServiceRequest
	if err := unmarshalBody(body, contentType, &req); err != nil {
		return fmt.Errorf("decode logs export: %w", err)
	}
	r.dispatch(EnvelopesFromLogs(&req))
	return nil
}

// DispatchMetrics delivers envelopes from an already decoded request, for
// the gRPC transport which gets typed messages straight from the wire.
func (r *Receiver) DispatchMetrics(req *collectormetrics.ExportMetricsServiceRequest) {
	r.dispatch(EnvelopesFromMetrics(req))
}

// DispatchTraces delivers envelopes from an already decoded trace request.
func (r *Receiver) DispatchTraces(req *collectortrace.ExportTraceServiceRequest) {
	r.dispatch(EnvelopesFromTraces(req))
}

// DispatchLogs delivers envelopes from an already decoded logs request.
func (r *Receiver) DispatchLogs(req *collectorlogs.ExportLogsServiceRequest) {
	r.dispatch(EnvelopesFromLogs(req))
}

func (r *Receiver) dispatch(envelopes []*Envelope) {
	for _, env := range envelopes {
		r.handle(env)
	}
}

func unmarshalBody(body io.Reader, contentType string, msg proto.Message) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return fmt.Errorf("read request body: %w", err)
	}
	if contentType == "application/json" {
		return protojson.Unmarshal(data, msg)
	}
	return proto.Unmarshal(data, msg)
}
