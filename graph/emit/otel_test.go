package emit

import (
	"context"
	"testing"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func attributeMap(attrs []attribute.KeyValue) map[string]any {
	out := make(map[string]any, len(attrs))
	for _, attr := range attrs {
		out[string(attr.Key)] = attr.Value.AsInterface()
	}
	return out
}

func newTestEmitter(t *testing.T) (*OTelEmitter, *tracetest.InMemoryExporter) {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return NewOTelEmitter(otel.Tracer("test")), exporter
}

func TestOTelEmitter_Emit(t *testing.T) {
	emitter, exporter := newTestEmitter(t)

	emitter.Emit(Event{
		ExecutionID: "exec-001",
		Step:        1,
		NodeID:      "fetch",
		Msg:         "node_start",
		Meta:        map[string]any{"node_type": "TASK", "duration_ms": 12},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	span := spans[0]
	if span.Name != "node_start" {
		t.Errorf("span name = %q, want node_start", span.Name)
	}

	attrs := attributeMap(span.Attributes)
	if attrs["graphflow.execution_id"] != "exec-001" {
		t.Errorf("execution_id attribute = %v", attrs["graphflow.execution_id"])
	}
	if attrs["graphflow.step"] != int64(1) {
		t.Errorf("step attribute = %v", attrs["graphflow.step"])
	}
	if attrs["graphflow.node_id"] != "fetch" {
		t.Errorf("node_id attribute = %v", attrs["graphflow.node_id"])
	}
	if attrs["graphflow.node_type"] != "TASK" {
		t.Errorf("meta attribute node_type = %v", attrs["graphflow.node_type"])
	}
	if attrs["graphflow.duration_ms"] != int64(12) {
		t.Errorf("meta attribute duration_ms = %v", attrs["graphflow.duration_ms"])
	}
	if !span.EndTime.After(span.StartTime) {
		t.Error("span was not ended")
	}
}

func TestOTelEmitter_ErrorStatus(t *testing.T) {
	emitter, exporter := newTestEmitter(t)

	emitter.Emit(Event{
		ExecutionID: "exec-001",
		NodeID:      "bad",
		Msg:         "execution_failed",
		Meta:        map[string]any{"error": "task blew up"},
	})

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("expected 1 span, got %d", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("expected error status, got %v", spans[0].Status.Code)
	}
	if spans[0].Status.Description != "task blew up" {
		t.Errorf("unexpected status description: %q", spans[0].Status.Description)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected a recorded error event on the span")
	}
}

func TestOTelEmitter_EmitBatch(t *testing.T) {
	emitter, exporter := newTestEmitter(t)

	events := []Event{
		{ExecutionID: "exec-001", Step: 1, NodeID: "a", Msg: "node_start"},
		{ExecutionID: "exec-001", Step: 1, NodeID: "a", Msg: "node_end"},
		{ExecutionID: "exec-001", Step: 2, NodeID: "b", Msg: "node_start"},
	}
	if err := emitter.EmitBatch(context.Background(), events); err != nil {
		t.Fatalf("EmitBatch() error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 3 {
		t.Fatalf("expected 3 spans, got %d", len(spans))
	}
	if spans[0].Name != "node_start" || spans[1].Name != "node_end" {
		t.Errorf("unexpected span names: %q, %q", spans[0].Name, spans[1].Name)
	}
}

func TestOTelEmitter_Flush(t *testing.T) {
	emitter, _ := newTestEmitter(t)
	// the SDK provider supports ForceFlush; must not error
	if err := emitter.Flush(context.Background()); err != nil {
		t.Errorf("Flush() error: %v", err)
	}
}
