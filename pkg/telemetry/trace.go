package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Default tracer name for resize clients.
const defaultTracerName = "resize"

// TracerConfig configures the operation tracer.
type TracerConfig struct {
	// TracerName is the name of the tracer (default: "resize").
	TracerName string

	// Provider is the tracer provider. Default: the global provider.
	Provider trace.TracerProvider

	// IncludeMessages records frame messages as span event attributes.
	// Enabled by default.
	IncludeMessages bool
}

// TracerOption configures the operation tracer.
type TracerOption func(*TracerConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) TracerOption {
	return func(c *TracerConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) TracerOption {
	return func(c *TracerConfig) {
		c.Provider = tp
	}
}

// WithIncludeMessages enables/disables recording frame messages.
func WithIncludeMessages(include bool) TracerOption {
	return func(c *TracerConfig) {
		c.IncludeMessages = include
	}
}

// Tracer starts one span per resize operation.
type Tracer struct {
	tracer          trace.Tracer
	includeMessages bool
}

// NewTracer creates a Tracer. Configure the global provider with
// otel.SetTracerProvider before calling it, or pass WithTracerProvider.
func NewTracer(opts ...TracerOption) *Tracer {
	config := TracerConfig{
		TracerName:      defaultTracerName,
		IncludeMessages: true,
	}
	for _, opt := range opts {
		opt(&config)
	}

	var tracer trace.Tracer
	if config.Provider != nil {
		tracer = config.Provider.Tracer(config.TracerName)
	} else {
		tracer = otel.Tracer(config.TracerName)
	}
	return &Tracer{tracer: tracer, includeMessages: config.IncludeMessages}
}

// OperationInfo describes an operation for its span.
type OperationInfo struct {
	ID         string
	ChannelURL string
	Request    string
}

// OperationSpan is the span of one operation. A nil *OperationSpan is a
// no-op.
type OperationSpan struct {
	span            trace.Span
	includeMessages bool
	frames          int
}

// StartOperation starts the span of an operation.
func (t *Tracer) StartOperation(ctx context.Context, info OperationInfo) (context.Context, *OperationSpan) {
	if t == nil {
		return ctx, nil
	}

	spanCtx, span := t.tracer.Start(
		ctx,
		"resize.operation",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("resize.operation_id", info.ID),
			attribute.String("resize.channel_url", info.ChannelURL),
			attribute.String("resize.request", info.Request),
		),
		trace.WithTimestamp(time.Now()),
	)
	return spanCtx, &OperationSpan{span: span, includeMessages: t.includeMessages}
}

// Event adds a named lifecycle event to the span.
func (s *OperationSpan) Event(name string) {
	if s == nil {
		return
	}
	s.span.AddEvent(name)
}

// Frame records an inbound status frame.
func (s *OperationSpan) Frame(status, message string) {
	if s == nil {
		return
	}
	s.frames++
	attrs := []attribute.KeyValue{attribute.String("resize.status", status)}
	if s.includeMessages {
		attrs = append(attrs, attribute.String("resize.message", message))
	}
	s.span.AddEvent("frame", trace.WithAttributes(attrs...))
}

// End records the outcome and ends the span.
func (s *OperationSpan) End(outcome string, err error) {
	if s == nil {
		return
	}
	s.span.SetAttributes(
		attribute.String("resize.outcome", outcome),
		attribute.Int("resize.frame_count", s.frames),
	)
	if err != nil {
		s.span.RecordError(err)
		s.span.SetStatus(codes.Error, err.Error())
	} else {
		s.span.SetStatus(codes.Ok, "")
	}
	s.span.End()
}
