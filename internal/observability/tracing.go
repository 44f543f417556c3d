package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"citysim/engine/internal/config"
	"citysim/engine/internal/logging"
	"citysim/engine/internal/sim"
)

const (
	tracerName          = "citysim/engine"
	defaultOTLPEndpoint = "localhost:4317"
	flushTimeout        = 5 * time.Second
)

// Tracing owns the process-wide tracer provider used for tick spans.
type Tracing struct {
	provider *sdktrace.TracerProvider // nil while disabled
	log      logging.Logger
}

// StartTracing installs a tracer provider built from cfg. Disabled tracing
// installs a no-op provider. Stdout spans go to w, or os.Stdout when nil.
func StartTracing(ctx context.Context, cfg config.TracingConfig, w io.Writer, log logging.Logger) (*Tracing, error) {
	if log == nil {
		log = logging.Noop()
	}
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(propagation.TraceContext{}, propagation.Baggage{}))
	if !cfg.Enabled {
		otel.SetTracerProvider(noop.NewTracerProvider())
		return &Tracing{log: log}, nil
	}

	exp, err := newSpanExporter(ctx, cfg, w)
	if err != nil {
		return nil, err
	}
	res, err := resource.New(ctx, resource.WithAttributes(
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.namespace", "citysim"),
	))
	if err != nil {
		return nil, fmt.Errorf("tracing resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	log.Info(ctx, "tracing enabled", logging.String("exporter", cfg.Exporter), logging.Any("sample_ratio", cfg.SampleRatio))
	return &Tracing{provider: tp, log: log}, nil
}

// Enabled reports whether spans are recorded and exported.
func (t *Tracing) Enabled() bool { return t != nil && t.provider != nil }

// Close flushes pending spans, waiting at most five seconds. Failures are
// logged, not returned.
func (t *Tracing) Close(ctx context.Context) {
	if !t.Enabled() {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := t.provider.Shutdown(ctx); err != nil {
		t.log.Warn(ctx, "tracing flush failed", logging.Err(err))
	}
}

func newSpanExporter(ctx context.Context, cfg config.TracingConfig, w io.Writer) (sdktrace.SpanExporter, error) {
	switch cfg.Exporter {
	case "stdout", "":
		if w == nil {
			w = os.Stdout
		}
		return stdouttrace.New(stdouttrace.WithWriter(w), stdouttrace.WithPrettyPrint(), stdouttrace.WithoutTimestamps())
	case "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = defaultOTLPEndpoint
		}
		return otlptrace.New(ctx, otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		))
	default:
		return nil, fmt.Errorf("tracing: unknown exporter %q (want stdout or otlp)", cfg.Exporter)
	}
}

// StartTick opens a span around one Simulate call.
func StartTick(ctx context.Context, city *sim.City, steps int) (context.Context, trace.Span) {
	return otel.Tracer(tracerName).Start(ctx, "city.simulate",
		trace.WithAttributes(
			attribute.String("city.name", city.Name()),
			attribute.Int64("city.sim_time", city.SimTime()),
			attribute.Int("city.steps", steps),
		),
	)
}

// EndTick records the city's state after the call and closes the span.
func EndTick(span trace.Span, city *sim.City) {
	s := city.Stats()
	span.SetAttributes(
		attribute.Int("city.population", s.Population),
		attribute.Int("city.employed", s.Employed),
		attribute.Int("city.power_supplied_kw", s.PowerSupplied),
	)
	span.End()
}
