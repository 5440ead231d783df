// devwatch-loadgen emits synthetic claude_code metrics through the OTEL SDK
// against a running collector, exercising the full OTLP/gRPC ingest path.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

var modelNames = []string{
	"claude-3-5-sonnet-20241022",
	"claude-3-5-haiku-20241022",
	"claude-3-opus-20240229",
}

func main() {
	endpoint := flag.String("endpoint", "localhost:4317", "Collector OTLP/gRPC endpoint")
	interval := flag.Duration("interval", 3*time.Second, "Delay between exchanges")
	sessions := flag.Int("sessions", 2, "Number of concurrent synthetic sessions")
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		cancel()
	}()

	if err := run(ctx, *endpoint, *interval, *sessions); err != nil {
		log.Fatal(err)
	}
}

func run(ctx context.Context, endpoint string, interval time.Duration, sessions int) error {
	exp, err := otlpmetricgrpc.New(ctx,
		otlpmetricgrpc.WithEndpoint(endpoint),
		otlpmetricgrpc.WithInsecure(),
		otlpmetricgrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
	)
	if err != nil {
		return fmt.Errorf("creating OTLP exporter: %w", err)
	}

	sessionID := fmt.Sprintf("loadgen_%d", time.Now().Unix())
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName("claude-code"),
			semconv.ServiceVersion("1.0.0"),
			attribute.String("session.id", sessionID),
		),
	)
	if err != nil {
		return fmt.Errorf("creating resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exp,
			sdkmetric.WithInterval(interval))),
		sdkmetric.WithResource(res),
	)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		provider.Shutdown(shutdownCtx)
	}()

	meter := provider.Meter("com.anthropic.claude_code")

	tokenUsage, err := meter.Int64Counter("claude_code.token.usage",
		metric.WithDescription("Tokens consumed"),
		metric.WithUnit("{token}"))
	if err != nil {
		return fmt.Errorf("creating token counter: %w", err)
	}
	costUsage, err := meter.Float64Counter("claude_code.cost.usage",
		metric.WithDescription("Cost of usage"),
		metric.WithUnit("USD"))
	if err != nil {
		return fmt.Errorf("creating cost counter: %w", err)
	}
	linesOfCode, err := meter.Int64Counter("claude_code.lines_of_code.count",
		metric.WithDescription("Lines of code modified"))
	if err != nil {
		return fmt.Errorf("creating lines counter: %w", err)
	}
	sessionCount, err := meter.Int64Counter("claude_code.session.count",
		metric.WithDescription("Sessions started"))
	if err != nil {
		return fmt.Errorf("creating session counter: %w", err)
	}

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sessionIDs := make([]string, sessions)
	for i := range sessionIDs {
		sessionIDs[i] = fmt.Sprintf("%s_%d", sessionID, i)
		sessionCount.Add(ctx, 1,
			metric.WithAttributes(attribute.String("session.id", sessionIDs[i])))
	}

	log.Printf("emitting claude_code metrics to %s every %s", endpoint, interval)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Print("stopping")
			return nil
		case <-ticker.C:
			id := sessionIDs[rng.Intn(len(sessionIDs))]
			model := modelNames[rng.Intn(len(modelNames))]
			input := int64(100 + rng.Intn(500))
			output := int64(200 + rng.Intn(900))

			attrs := func(tokenType string) metric.MeasurementOption {
				return metric.WithAttributes(
					attribute.String("session.id", id),
					attribute.String("model", model),
					attribute.String("type", tokenType),
				)
			}
			tokenUsage.Add(ctx, input, attrs("input"))
			tokenUsage.Add(ctx, output, attrs("output"))
			costUsage.Add(ctx, float64(input+output)/1000*0.009,
				metric.WithAttributes(
					attribute.String("session.id", id),
					attribute.String("model", model)))
			if rng.Float64() < 0.3 {
				linesOfCode.Add(ctx, int64(5+rng.Intn(80)),
					metric.WithAttributes(
						attribute.String("session.id", id),
						attribute.String("type", "added")))
			}
		}
	}
}
