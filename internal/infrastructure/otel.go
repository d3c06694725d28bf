package infrastructure

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
)

const (
	ServiceName    = "liga-import-service"
	ServiceVersion = "v1.0.0"
	MeterName      = "ligacli"
)

// OTelConfig holds OpenTelemetry configuration.
type OTelConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	TraceExporter  string // "stdout", "none"
	MetricExporter string // "prometheus", "none"
	EnableMetrics  bool
	EnableTracing  bool
	SampleRatio    float64
}

// OTelProviders holds the OpenTelemetry providers.
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler
	Logger         *slog.Logger
}

// DefaultOTelConfig returns a default OpenTelemetry configuration.
func DefaultOTelConfig() *OTelConfig {
	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	return &OTelConfig{
		ServiceName:    ServiceName,
		ServiceVersion: ServiceVersion,
		Environment:    env,
		TraceExporter:  "stdout",
		MetricExporter: "prometheus",
		EnableMetrics:  true,
		EnableTracing:  true,
		SampleRatio:    1.0,
	}
}

// InitializeOTel initializes tracing and metrics providers.
func InitializeOTel(cfg *OTelConfig, logger *slog.Logger) (*OTelProviders, error) {
	if cfg == nil {
		cfg = DefaultOTelConfig()
	}

	ctx := context.Background()

	logger.InfoContext(ctx, "Initializing OpenTelemetry",
		slog.String("service", cfg.ServiceName),
		slog.String("version", cfg.ServiceVersion),
		slog.String("environment", cfg.Environment),
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics))

	res, err := createResource(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger: logger,
	}

	if cfg.EnableTracing {
		if err := initializeTracing(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}

	if cfg.EnableMetrics {
		if err := initializeMetrics(ctx, cfg, res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return providers, nil
}

func createResource(cfg *OTelConfig) (*resource.Resource, error) {
	return resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(cfg.ServiceVersion),
		semconv.DeploymentEnvironmentName(cfg.Environment),
		attribute.String("service.instance.id", generateInstanceID()),
	), nil
}

func initializeTracing(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	var exporter sdktrace.SpanExporter
	var err error

	switch cfg.TraceExporter {
	case "stdout":
		exporter, err = stdouttrace.New(
			stdouttrace.WithPrettyPrint(),
		)
	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported trace exporter: %s", cfg.TraceExporter)
	}

	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.TraceIDRatioBased(cfg.SampleRatio)),
	)

	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(MeterName, trace.WithInstrumentationVersion(cfg.ServiceVersion))

	otel.SetTracerProvider(tp)

	providers.Logger.InfoContext(ctx, "Tracing initialized",
		slog.String("exporter", cfg.TraceExporter),
		slog.Float64("sample_ratio", cfg.SampleRatio))

	return nil
}

func initializeMetrics(ctx context.Context, cfg *OTelConfig, res *resource.Resource, providers *OTelProviders) error {
	switch cfg.MetricExporter {
	case "prometheus":
		exporter, err := prometheus.New()
		if err != nil {
			return fmt.Errorf("failed to create prometheus exporter: %w", err)
		}

		providers.PrometheusHTTP = promhttp.Handler()

		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)

		providers.MeterProvider = mp
		providers.Meter = mp.Meter(MeterName, metric.WithInstrumentationVersion(cfg.ServiceVersion))

		otel.SetMeterProvider(mp)

	case "none":
		return nil
	default:
		return fmt.Errorf("unsupported metric exporter: %s", cfg.MetricExporter)
	}

	providers.Logger.InfoContext(ctx, "Metrics initialized",
		slog.String("exporter", cfg.MetricExporter))

	return nil
}

// ImportMetrics holds the application-specific metrics for the import
// pipeline and the HTTP surface in front of it.
type ImportMetrics struct {
	HTTPRequestsTotal   metric.Int64Counter
	HTTPRequestDuration metric.Float64Histogram
	HTTPActiveRequests  metric.Int64UpDownCounter

	SessionsCreated  metric.Int64Counter
	SessionsExpired  metric.Int64Counter
	ActiveSessions   metric.Int64UpDownCounter
	UploadsTotal     metric.Int64Counter
	UploadBytes      metric.Int64Counter
	RowsSkipped      metric.Int64Counter
	ValidationsTotal metric.Int64Counter
	ValidationRows   metric.Int64Counter
	FindingsTotal    metric.Int64Counter
	ImportsTotal     metric.Int64Counter
	ImportDuration   metric.Float64Histogram
	ImportErrors     metric.Int64Counter
	RecordsCreated   metric.Int64Counter
}

// CreateImportMetrics creates the application metric instruments.
func CreateImportMetrics(meter metric.Meter) (*ImportMetrics, error) {
	m := &ImportMetrics{}
	var err error

	if m.HTTPRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.HTTPRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.HTTPActiveRequests, err = meter.Int64UpDownCounter(
		"http_active_requests",
		metric.WithDescription("Number of active HTTP requests"),
	); err != nil {
		return nil, err
	}

	if m.SessionsCreated, err = meter.Int64Counter(
		"import_sessions_created_total",
		metric.WithDescription("Total number of import wizard sessions created"),
	); err != nil {
		return nil, err
	}

	if m.SessionsExpired, err = meter.Int64Counter(
		"import_sessions_expired_total",
		metric.WithDescription("Total number of idle import sessions discarded"),
	); err != nil {
		return nil, err
	}

	if m.ActiveSessions, err = meter.Int64UpDownCounter(
		"import_active_sessions",
		metric.WithDescription("Number of live import wizard sessions"),
	); err != nil {
		return nil, err
	}

	if m.UploadsTotal, err = meter.Int64Counter(
		"import_uploads_total",
		metric.WithDescription("Total number of uploaded import files"),
	); err != nil {
		return nil, err
	}

	if m.UploadBytes, err = meter.Int64Counter(
		"import_upload_bytes_total",
		metric.WithDescription("Total bytes of uploaded import files"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.RowsSkipped, err = meter.Int64Counter(
		"import_rows_skipped_total",
		metric.WithDescription("Total number of malformed rows dropped at parse time"),
	); err != nil {
		return nil, err
	}

	if m.ValidationsTotal, err = meter.Int64Counter(
		"import_validations_total",
		metric.WithDescription("Total number of validation runs"),
	); err != nil {
		return nil, err
	}

	if m.ValidationRows, err = meter.Int64Counter(
		"import_validation_rows_total",
		metric.WithDescription("Total number of rows validated"),
	); err != nil {
		return nil, err
	}

	if m.FindingsTotal, err = meter.Int64Counter(
		"import_findings_total",
		metric.WithDescription("Total number of validation findings by severity"),
	); err != nil {
		return nil, err
	}

	if m.ImportsTotal, err = meter.Int64Counter(
		"import_executions_total",
		metric.WithDescription("Total number of remote import executions"),
	); err != nil {
		return nil, err
	}

	if m.ImportDuration, err = meter.Float64Histogram(
		"import_execution_duration_seconds",
		metric.WithDescription("Remote import execution duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.ImportErrors, err = meter.Int64Counter(
		"import_execution_errors_total",
		metric.WithDescription("Total number of failed remote import executions"),
	); err != nil {
		return nil, err
	}

	if m.RecordsCreated, err = meter.Int64Counter(
		"import_records_created_total",
		metric.WithDescription("Total number of records created by remote imports"),
	); err != nil {
		return nil, err
	}

	return m, nil
}

// RecordImportExecution records the outcome of one remote import run.
func RecordImportExecution(ctx context.Context, metrics *ImportMetrics, kind string, duration time.Duration, created int, err error) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("import.kind", kind),
	}

	statusAttr := attribute.String("status", "success")
	if err != nil {
		statusAttr = attribute.String("status", "failure")
		metrics.ImportErrors.Add(ctx, 1, metric.WithAttributes(attrs...))
	} else if created > 0 {
		metrics.RecordsCreated.Add(ctx, int64(created), metric.WithAttributes(attrs...))
	}

	metrics.ImportsTotal.Add(ctx, 1, metric.WithAttributes(append(attrs, statusAttr)...))
	metrics.ImportDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(append(attrs, statusAttr)...))
}

// RecordUpload records one accepted file upload.
func RecordUpload(ctx context.Context, metrics *ImportMetrics, kind string, size int64, skipped int) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("import.kind", kind),
	}

	metrics.UploadsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.UploadBytes.Add(ctx, size, metric.WithAttributes(attrs...))
	if skipped > 0 {
		metrics.RowsSkipped.Add(ctx, int64(skipped), metric.WithAttributes(attrs...))
	}
}

// RecordValidationRun records one validation engine run.
func RecordValidationRun(ctx context.Context, metrics *ImportMetrics, kind string, rows, errors, warnings int) {
	if metrics == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String("import.kind", kind),
	}

	metrics.ValidationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	metrics.ValidationRows.Add(ctx, int64(rows), metric.WithAttributes(attrs...))
	if errors > 0 {
		metrics.FindingsTotal.Add(ctx, int64(errors),
			metric.WithAttributes(append(attrs, attribute.String("severity", "error"))...))
	}
	if warnings > 0 {
		metrics.FindingsTotal.Add(ctx, int64(warnings),
			metric.WithAttributes(append(attrs, attribute.String("severity", "warning"))...))
	}
}

// Shutdown gracefully shuts down OpenTelemetry providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("opentelemetry shutdown errors: %v", errs)
	}

	p.Logger.InfoContext(ctx, "OpenTelemetry shutdown complete")
	return nil
}

func generateInstanceID() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s-%d", hostname, time.Now().Unix())
}

// TraceIDFromContext extracts the OTel trace ID from context for logging
// correlation.
func TraceIDFromContext(ctx context.Context) string {
	spanCtx := trace.SpanContextFromContext(ctx)
	if spanCtx.IsValid() {
		return spanCtx.TraceID().String()
	}
	return ""
}

// RecordError records an error on the current span.
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}
