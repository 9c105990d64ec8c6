package telemetry

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type recordingProvider struct {
	noop.TracerProvider

	mu    sync.Mutex
	spans []*recordingSpan
}

func (p *recordingProvider) Tracer(string, ...trace.TracerOption) trace.Tracer {
	return &recordingTracer{provider: p}
}

type recordingTracer struct {
	noop.Tracer
	provider *recordingProvider
}

func (t *recordingTracer) Start(ctx context.Context, name string, opts ...trace.SpanStartOption) (context.Context, trace.Span) {
	cfg := trace.NewSpanStartConfig(opts...)
	span := &recordingSpan{name: name, attrs: cfg.Attributes()}
	t.provider.mu.Lock()
	t.provider.spans = append(t.provider.spans, span)
	t.provider.mu.Unlock()
	return trace.ContextWithSpan(ctx, span), span
}

type recordingSpan struct {
	noop.Span

	name   string
	attrs  []attribute.KeyValue
	events []string
	status codes.Code
	errs   []error
	ended  bool
}

func (s *recordingSpan) AddEvent(name string, _ ...trace.EventOption) {
	s.events = append(s.events, name)
}

func (s *recordingSpan) SetAttributes(kv ...attribute.KeyValue) {
	s.attrs = append(s.attrs, kv...)
}

func (s *recordingSpan) SetStatus(code codes.Code, _ string) {
	s.status = code
}

func (s *recordingSpan) RecordError(err error, _ ...trace.EventOption) {
	s.errs = append(s.errs, err)
}

func (s *recordingSpan) End(...trace.SpanEndOption) {
	s.ended = true
}

func (s *recordingSpan) attr(key string) (attribute.Value, bool) {
	for _, kv := range s.attrs {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracer_OperationSpan(t *testing.T) {
	tp := &recordingProvider{}
	tracer := NewTracer(WithTracerProvider(tp), WithTracerName("test"))

	_, span := tracer.StartOperation(context.Background(), OperationInfo{
		ID:         "op-1",
		ChannelURL: "wss://host/resize/i-1",
		Request:    "t3.large",
	})
	span.Event("open")
	span.Frame("message", "stopping")
	span.Frame("success", "done")
	span.End("success", nil)

	if len(tp.spans) != 1 {
		t.Fatalf("spans = %d, want 1", len(tp.spans))
	}
	got := tp.spans[0]
	if got.name != "resize.operation" {
		t.Errorf("name = %q", got.name)
	}
	if v, ok := got.attr("resize.request"); !ok || v.AsString() != "t3.large" {
		t.Errorf("resize.request = %v, %v", v, ok)
	}
	if v, ok := got.attr("resize.frame_count"); !ok || v.AsInt64() != 2 {
		t.Errorf("resize.frame_count = %v, %v", v, ok)
	}
	if want := []string{"open", "frame", "frame"}; len(got.events) != len(want) {
		t.Errorf("events = %v, want %v", got.events, want)
	}
	if got.status != codes.Ok || !got.ended {
		t.Errorf("status = %v ended = %v", got.status, got.ended)
	}
}

func TestTracer_EndWithError(t *testing.T) {
	tp := &recordingProvider{}
	tracer := NewTracer(WithTracerProvider(tp))

	_, span := tracer.StartOperation(context.Background(), OperationInfo{ID: "op-2"})
	span.End("ambiguous", errors.New("closed"))

	got := tp.spans[0]
	if got.status != codes.Error {
		t.Errorf("status = %v, want Error", got.status)
	}
	if len(got.errs) != 1 {
		t.Errorf("recorded errors = %d, want 1", len(got.errs))
	}
	if v, _ := got.attr("resize.outcome"); v.AsString() != "ambiguous" {
		t.Errorf("resize.outcome = %q", v.AsString())
	}
}

func TestTracer_NilSafe(t *testing.T) {
	var tracer *Tracer
	ctx := context.Background()
	gotCtx, span := tracer.StartOperation(ctx, OperationInfo{ID: "x"})
	if gotCtx != ctx {
		t.Error("nil tracer should return the input context")
	}
	span.Event("open")
	span.Frame("message", "running")
	span.End("success", nil)
}
