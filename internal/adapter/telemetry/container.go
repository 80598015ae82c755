package telemetry

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/runtime"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"

	"tasktracker/internal/core/port"
	"tasktracker/internal/core/telemetry"
)

type Config struct {
	ServiceName    string
	ServiceVersion string
	Environment    string

	// MetricsPort serves /metrics when set.
	MetricsPort string

	// OTLPEndpoint receives spans over gRPC when set. Without it spans are
	// still created so logs and responses carry trace ids, but nothing is
	// exported.
	OTLPEndpoint string

	// SampleRatio is the fraction of new traces recorded, in [0, 1].
	// Requests that arrive with a sampled parent are always recorded.
	SampleRatio float64
}

// Container owns the process wide providers and the prometheus registry that
// AppMetrics writes to.
type Container struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *prometheus.Registry
	MetricsServer  *http.Server
	AppMetrics     *telemetry.AppMetrics

	exporting bool
}

func NewContainer(ctx context.Context, config Config, logger *slog.Logger) (*Container, error) {
	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceNameKey.String(config.ServiceName),
		semconv.ServiceVersionKey.String(config.ServiceVersion),
		semconv.DeploymentEnvironmentKey.String(config.Environment),
	)

	tracerProvider, exporting, err := newTracerProvider(ctx, config, res)
	if err != nil {
		return nil, err
	}
	otel.SetTracerProvider(tracerProvider)

	meterProvider := sdkmetric.NewMeterProvider(sdkmetric.WithResource(res))
	otel.SetMeterProvider(meterProvider)

	if err := runtime.Start(); err != nil {
		tracerProvider.Shutdown(ctx)
		meterProvider.Shutdown(ctx)
		return nil, err
	}

	registry := prometheus.NewRegistry()

	c := &Container{
		TracerProvider: tracerProvider,
		MeterProvider:  meterProvider,
		Registry:       registry,
		AppMetrics:     telemetry.NewAppMetrics(registry),
		exporting:      exporting,
	}

	if config.MetricsPort != "" {
		c.MetricsServer = serveMetrics(registry, config.MetricsPort, logger)
	}

	logger.Info("Telemetry ready",
		"otlp_endpoint", config.OTLPEndpoint,
		"sample_ratio", config.SampleRatio,
		"metrics_port", config.MetricsPort,
	)

	return c, nil
}

func newTracerProvider(ctx context.Context, config Config, res *resource.Resource) (*sdktrace.TracerProvider, bool, error) {
	opts := []sdktrace.TracerProviderOption{
		sdktrace.WithResource(res),
		sdktrace.WithSampler(Sampler(config.SampleRatio)),
	}

	if config.OTLPEndpoint == "" {
		return sdktrace.NewTracerProvider(opts...), false, nil
	}

	exporter, err := otlptracegrpc.New(ctx,
		otlptracegrpc.WithEndpoint(config.OTLPEndpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, false, err
	}

	opts = append(opts, sdktrace.WithBatcher(exporter))

	return sdktrace.NewTracerProvider(opts...), true, nil
}

// Sampler follows the caller's sampling decision and samples new traces at
// ratio. Out of range ratios are clamped.
func Sampler(ratio float64) sdktrace.Sampler {
	switch {
	case ratio <= 0:
		return sdktrace.ParentBased(sdktrace.NeverSample())
	case ratio >= 1:
		return sdktrace.ParentBased(sdktrace.AlwaysSample())
	default:
		return sdktrace.ParentBased(sdktrace.TraceIDRatioBased(ratio))
	}
}

func serveMetrics(registry *prometheus.Registry, port string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Metrics server stopped", "addr", server.Addr, "error", err)
		}
	}()

	return server
}

// Exporting reports whether spans leave the process.
func (c *Container) Exporting() bool {
	return c.exporting
}

// Shutdown flushes pending spans and stops the metrics server. Every step
// runs even when an earlier one fails.
func (c *Container) Shutdown(ctx context.Context) error {
	errs := []error{
		c.TracerProvider.Shutdown(ctx),
		c.MeterProvider.Shutdown(ctx),
	}

	if c.MetricsServer != nil {
		errs = append(errs, c.MetricsServer.Shutdown(ctx))
	}

	return errors.Join(errs...)
}

func (c *Container) NewTelemetryProbe(logger *slog.Logger) port.Telemetry {
	return telemetry.NewOTELProbe(logger, c.AppMetrics)
}
