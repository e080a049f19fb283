package observability

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
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

	"github.com/iburimskiy/synapse-field/internal/logging"
	"github.com/iburimskiy/synapse-field/internal/sim"
)

// TracingConfig governs how frame tracing is initialised.
type TracingConfig struct {
	Exporter    string // off | stdout | otlp
	Endpoint    string // used when Exporter == otlp
	ServiceName string
	SampleRatio float64
	// Output receives stdout exporter spans. The terminal backend owns
	// stdout, so it passes stderr here.
	Output io.Writer
}

// InitTracing wires a tracer provider, exporter, propagators, and sampler based
// on the provided configuration. It returns a shutdown function to flush spans.
func InitTracing(ctx context.Context, cfg TracingConfig, log logging.Logger) (func(context.Context) error, error) {
	if log == nil {
		log = logging.Noop()
	}

	if cfg.Exporter == "" || strings.EqualFold(cfg.Exporter, "off") {
		otel.SetTracerProvider(noop.NewTracerProvider())
		otel.SetTextMapPropagator(propagation.TraceContext{})
		log.Debug(ctx, "tracing disabled; using noop tracer provider")
		return func(context.Context) error { return nil }, nil
	}

	exp, err := exporterFromConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}

	service := cfg.ServiceName
	if service == "" {
		service = "synapse-field"
	}
	res, err := resource.New(
		ctx,
		resource.WithAttributes(attribute.String("service.name", service)),
	)
	if err != nil {
		return nil, fmt.Errorf("create resource: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(cfg.SampleRatio))),
		sdktrace.WithBatcher(exp),
		sdktrace.WithResource(res),
	)

	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(
		propagation.NewCompositeTextMapPropagator(
			propagation.TraceContext{},
			propagation.Baggage{},
		),
	)

	log.Info(ctx, "tracing enabled",
		logging.String("exporter", cfg.Exporter),
		logging.String("service_name", service),
		logging.Float("sample_ratio", cfg.SampleRatio),
	)
	return tp.Shutdown, nil
}

func exporterFromConfig(ctx context.Context, cfg TracingConfig) (sdktrace.SpanExporter, error) {
	switch strings.ToLower(cfg.Exporter) {
	case "stdout":
		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		return stdouttrace.New(
			stdouttrace.WithWriter(out),
			stdouttrace.WithoutTimestamps(),
		)
	case "otlp":
		endpoint := cfg.Endpoint
		if endpoint == "" {
			endpoint = "localhost:4317"
		}
		client := otlptracegrpc.NewClient(
			otlptracegrpc.WithEndpoint(endpoint),
			otlptracegrpc.WithDialOption(grpc.WithTransportCredentials(insecure.NewCredentials())),
		)
		return otlptrace.New(ctx, client)
	default:
		return nil, fmt.Errorf("unsupported tracing exporter: %s", cfg.Exporter)
	}
}

// ShutdownWithTimeout invokes the provided shutdown function with a bounded
// timeout, swallowing errors in the shutdown path.
func ShutdownWithTimeout(ctx context.Context, shutdown func(context.Context) error, log logging.Logger) {
	if shutdown == nil {
		return
	}
	if log == nil {
		log = logging.Noop()
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := shutdown(ctx); err != nil {
		log.Warn(ctx, "tracing shutdown failed", logging.Err(err))
	}
}

// FrameTracer opens one span per frame and annotates it with the step's
// outcome.
type FrameTracer struct {
	tracer  trace.Tracer
	backend string
}

// NewFrameTracer traces through tp, or the global provider when tp is nil.
func NewFrameTracer(tp trace.TracerProvider, backend string) *FrameTracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &FrameTracer{tracer: tp.Tracer("synapse-field/frame"), backend: backend}
}

func (t *FrameTracer) Start(ctx context.Context) (context.Context, trace.Span) {
	return t.tracer.Start(ctx, "frame", trace.WithAttributes(attribute.String("backend", t.backend)))
}

// End closes span with the frame's stats attached.
func (t *FrameTracer) End(span trace.Span, st sim.Stats) {
	span.SetAttributes(
		attribute.Int64("frame", int64(st.Frame)),
		attribute.Int("particles", st.Particles),
		attribute.Int("edges", st.Edges),
		attribute.Int("pulses", st.Pulses),
		attribute.Int("arrivals", len(st.Arrivals)),
		attribute.Int("formed", st.Formed),
		attribute.Int("replaced", st.Replaced),
		attribute.Int("dropped", st.Dropped),
	)
	if st.Excited {
		span.AddEvent("excited")
	}
	span.End()
}

// Reset marks a population reset on the current frame span.
func (t *FrameTracer) Reset(span trace.Span, tier string, capacity int) {
	span.AddEvent("population reset", trace.WithAttributes(
		attribute.String("tier", tier),
		attribute.Int("cap", capacity),
	))
}
