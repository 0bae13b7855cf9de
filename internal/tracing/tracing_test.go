package tracing

import (
	"context"
	"testing"
)

func TestInit_DisabledIsNoop(t *testing.T) {
	p, err := Init(Config{Enabled: false})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "x")
	if span.SpanContext().IsValid() {
		t.Fatalf("no-op tracer 不应产生有效 span")
	}
	span.End()
	if err := p.Shutdown(context.Background()); err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
}

func TestInit_Enabled(t *testing.T) {
	p, err := Init(Config{Enabled: true, Endpoint: "http://127.0.0.1:1/api/traces", ServiceName: "ingest-test"})
	if err != nil {
		t.Fatalf("不期望错误：%v", err)
	}
	_, span := p.Tracer().Start(context.Background(), "x")
	if !span.SpanContext().IsValid() {
		t.Fatalf("期望有效 span")
	}
	span.End()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_ = p.Shutdown(ctx)
}
