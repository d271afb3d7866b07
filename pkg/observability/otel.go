// Package observability wires OpenTelemetry tracing, metrics and logging.
//
// Exporters speak OTLP over gRPC and honour the standard OTEL_* variables
// (OTEL_EXPORTER_OTLP_ENDPOINT, OTEL_EXPORTER_OTLP_HEADERS,
// OTEL_RESOURCE_ATTRIBUTES). With telemetry disabled the providers export
// nothing and logs are written to stdout as JSON.
package observability

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/bridges/otelslog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlplog/otlploggrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/log"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	serviceVersion = "1.0.0"

	exportTimeout  = 10 * time.Second
	traceBatchWait = 5 * time.Second
	metricInterval = 15 * time.Second
	logExportWait  = 5 * time.Second
)

// Providers holds the SDK providers installed by Setup.
type Providers struct {
	Tracer *sdktrace.TracerProvider
	Meter  *sdkmetric.MeterProvider
	Log    *log.LoggerProvider
	Logger *slog.Logger
}

// Setup builds all three providers and installs the tracer and meter
// providers as otel globals. Installing Logger as slog's default is left
// to the caller.
func Setup(ctx context.Context, serviceName string, enabled bool) (*Providers, error) {
	p := &Providers{}
	var err error

	if p.Log, p.Logger, err = InitLogger(ctx, serviceName, enabled); err != nil {
		return nil, fmt.Errorf("failed to init logger: %w", err)
	}
	if p.Tracer, err = InitTracerProvider(ctx, serviceName, enabled); err != nil {
		_ = p.Log.Shutdown(ctx)
		return nil, fmt.Errorf("failed to init tracer provider: %w", err)
	}
	if p.Meter, err = InitMeterProvider(ctx, serviceName, enabled); err != nil {
		_ = errors.Join(p.Tracer.Shutdown(ctx), p.Log.Shutdown(ctx))
		return nil, fmt.Errorf("failed to init meter provider: %w", err)
	}
	return p, nil
}

// Shutdown flushes every provider. The logger goes last so export failures
// from the others can still be reported.
func (p *Providers) Shutdown(ctx context.Context) error {
	return errors.Join(
		p.Meter.Shutdown(ctx),
		p.Tracer.Shutdown(ctx),
		p.Log.Shutdown(ctx),
	)
}

// parseOTLPHeaders reads OTEL_EXPORTER_OTLP_HEADERS as comma-separated
// key=value pairs. Values are URL-decoded when possible, since hosted
// collectors often hand them out encoded (Basic%20...).
func parseOTLPHeaders() map[string]string {
	raw := os.Getenv("OTEL_EXPORTER_OTLP_HEADERS")
	if raw == "" {
		return nil
	}

	headers := map[string]string{}
	for pair := range strings.SplitSeq(raw, ",") {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		value = strings.TrimSpace(value)
		if decoded, err := url.QueryUnescape(value); err == nil {
			value = decoded
		}
		headers[strings.TrimSpace(key)] = value
	}
	return headers
}

// newResource describes this service, layered over the SDK defaults and
// OTEL_RESOURCE_ATTRIBUTES. Schema conflicts between the layers are tolerated.
func newResource(ctx context.Context, serviceName string) (*resource.Resource, error) {
	own, err := resource.New(ctx,
		resource.WithFromEnv(),
		resource.WithSchemaURL(semconv.SchemaURL),
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(serviceVersion),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to describe service resource: %w", err)
	}

	merged, err := resource.Merge(resource.Default(), own)
	switch {
	case err == nil:
		return merged, nil
	case errors.Is(err, resource.ErrPartialResource), errors.Is(err, resource.ErrSchemaURLConflict):
		return merged, nil
	default:
		return nil, fmt.Errorf("failed to merge resources: %w", err)
	}
}

// InitTracerProvider returns a batching OTLP tracer provider, installed
// globally with W3C trace context and baggage propagation.
func InitTracerProvider(ctx context.Context, serviceName string, enabled bool) (*sdktrace.TracerProvider, error) {
	if !enabled {
		tp := sdktrace.NewTracerProvider()
		otel.SetTracerProvider(tp)
		return tp, nil
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithTimeout(exportTimeout)}
	if h := parseOTLPHeaders(); h != nil {
		opts = append(opts, otlptracegrpc.WithHeaders(h))
	}
	// Not bound to ctx: the exporter must outlive startup to flush on shutdown.
	exporter, err := otlptracegrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
		sdktrace.WithBatcher(exporter, sdktrace.WithBatchTimeout(traceBatchWait)),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
	return tp, nil
}

// InitMeterProvider returns a periodically exporting OTLP meter provider,
// installed globally. The engines' outcome counters report through it.
func InitMeterProvider(ctx context.Context, serviceName string, enabled bool) (*sdkmetric.MeterProvider, error) {
	if !enabled {
		mp := sdkmetric.NewMeterProvider()
		otel.SetMeterProvider(mp)
		return mp, nil
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, err
	}

	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithTimeout(exportTimeout)}
	if h := parseOTLPHeaders(); h != nil {
		opts = append(opts, otlpmetricgrpc.WithHeaders(h))
	}
	exporter, err := otlpmetricgrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create metric exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(metricInterval))),
	)
	otel.SetMeterProvider(mp)
	return mp, nil
}

// InitLogger returns an OTLP log provider and an slog logger bridged onto it.
// Disabled telemetry yields an idle provider and a stdout JSON logger.
func InitLogger(ctx context.Context, serviceName string, enabled bool) (*log.LoggerProvider, *slog.Logger, error) {
	if !enabled {
		return log.NewLoggerProvider(), slog.New(slog.NewJSONHandler(os.Stdout, nil)), nil
	}

	res, err := newResource(ctx, serviceName)
	if err != nil {
		return nil, nil, err
	}

	opts := []otlploggrpc.Option{otlploggrpc.WithTimeout(exportTimeout)}
	if h := parseOTLPHeaders(); h != nil {
		opts = append(opts, otlploggrpc.WithHeaders(h))
	}
	exporter, err := otlploggrpc.New(context.Background(), opts...)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create log exporter: %w", err)
	}

	lp := log.NewLoggerProvider(
		log.WithResource(res),
		log.WithProcessor(log.NewBatchProcessor(exporter, log.WithExportTimeout(logExportWait))),
	)
	return lp, otelslog.NewLogger(serviceName, otelslog.WithLoggerProvider(lp)), nil
}
