package tracing

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/jaeger"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	tracesdk "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

// InstrumentationName 是本服务 span 的 instrumentation scope。
const InstrumentationName = "github.com/giftvault/ingest"

// Config 对应配置中的 tracing 段。
type Config struct {
	Enabled     bool
	Endpoint    string // Jaeger collector，例如 http://localhost:14268/api/traces
	ServiceName string
	Environment string
	Version     string
}

// Provider 持有 tracer 与关闭函数。未启用时是 no-op，Shutdown 什么也不做。
type Provider struct {
	tracer   trace.Tracer
	shutdown func(context.Context) error
}

// Init 按配置构造 tracer；启用时同时设置为全局 TracerProvider 与传播器。
func Init(cfg Config) (*Provider, error) {
	if !cfg.Enabled {
		return &Provider{
			tracer:   noop.NewTracerProvider().Tracer(InstrumentationName),
			shutdown: func(context.Context) error { return nil },
		}, nil
	}

	exp, err := jaeger.New(jaeger.WithCollectorEndpoint(jaeger.WithEndpoint(cfg.Endpoint)))
	if err != nil {
		return nil, fmt.Errorf("failed to create Jaeger exporter: %w", err)
	}

	version := cfg.Version
	if version == "" {
		version = "dev"
	}
	res, err := resource.New(context.Background(),
		resource.WithAttributes(
			semconv.ServiceNameKey.String(cfg.ServiceName),
			semconv.ServiceVersionKey.String(version),
			semconv.DeploymentEnvironmentKey.String(cfg.Environment),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	tp := tracesdk.NewTracerProvider(
		tracesdk.WithBatcher(exp),
		tracesdk.WithResource(res),
	)
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	return &Provider{
		tracer:   tp.Tracer(InstrumentationName),
		shutdown: tp.Shutdown,
	}, nil
}

func (p *Provider) Tracer() trace.Tracer { return p.tracer }

// Shutdown 刷出未发送的 span。
func (p *Provider) Shutdown(ctx context.Context) error {
	return p.shutdown(ctx)
}
