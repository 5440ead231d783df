package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"

	collectorlogs "go.opentelemetry.io/proto/otlp/collector/logs/v1"
	collectormetrics "go.opentelemetry.io/proto/otlp/collector/metrics/v1"
	collectortrace "go.opentelemetry.io/proto/otlp/collector/trace/v1"
	"google.golang.org/grpc"
)

// GRPCServer exposes the OTLP/gRPC collector services on one listener,
// the default transport on port 4317.
type GRPCServer struct {
	receiver *Receiver
	port     int
	logger   *slog.Logger
}

// NewGRPCServer creates the OTLP/gRPC transport on the given port.
func NewGRPCServer(receiver *Receiver, port int, logger *slog.Logger) *GRPCServer {
	if logger == nil {
		logger = slog.Default()
	}
	return &GRPCServer{receiver: receiver, port: port, logger: logger}
}

// Start serves until ctx is cancelled, then stops gracefully.
func (s *GRPCServer) Start(ctx context.Context) error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.port))
	if err != nil {
		return fmt.Errorf("listen on port %d: %w", s.port, err)
	}

	server := grpc.NewServer()
	collectormetrics.RegisterMetricsServiceServer(server, &metricsService{receiver: s.receiver})
	collectortrace.RegisterTraceServiceServer(server, &traceService{receiver: s.receiver})
	collectorlogs.RegisterLogsServiceServer(server, &logsService{receiver: s.receiver})

	go func() {
		<-ctx.Done()
		server.GracefulStop()
	}()

	s.logger.Info("OTLP/gRPC receiver listening", "port", s.port)
	if err := server.Serve(lis); err != nil {
		return fmt.Errorf("otlp grpc server: %w", err)
	}
	return nil
}

type metricsService struct {
	collectormetrics.UnimplementedMetricsServiceServer
	receiver *Receiver
}

func (s *metricsService) Export(ctx context.Context, req *collectormetrics.ExportMetricsServiceRequest) (*collectormetrics.ExportMetricsServiceResponse, error) {
	s.receiver.DispatchMetrics(req)
	return &collectormetrics.ExportMetricsServiceResponse{}, nil
}

type traceService struct {
	collectortrace.UnimplementedTraceServiceServer
	receiver *Receiver
}

func (s *traceService) Export(ctx context.Context, req *collectortrace.ExportTraceServiceRequest) (*collectortrace.ExportTraceServiceResponse, error) {
	s.receiver.DispatchTraces(req)
	return &collectortrace.ExportTraceServiceResponse{}, nil
}

type logsService struct {
	collectorlogs.UnimplementedLogsServiceServer
	receiver *Receiver
}

func (s *logsService) Export(ctx context.Context, req *collectorlogs.ExportLogsServiceRequest) (*collectorlogs.ExportLogsServiceResponse, error) {
	s.receiver.DispatchLogs(req)
	return &collectorlogs.ExportLogsServiceResponse{}, nil
}
