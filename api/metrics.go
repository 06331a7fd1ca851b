package api

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	tracerName         = "visor-api/api"
	requestSpanName    = "visor.api.request"
	requestEventName   = "api.request"
	requestEventDomain = "visor.api"
	observabilityEvent = "observability.event"

	errorStageKey = "visor.error_stage"
)

type requestMetrics struct {
	logger     *log.Logger
	span       trace.Span
	start      time.Time
	method     string
	route      string
	errorStage string
}

func newRequestMetrics(ctx context.Context, logger *log.Logger, method, route string) (*requestMetrics, context.Context) {
	ctx, span := otel.Tracer(tracerName).Start(ctx, requestSpanName, trace.WithSpanKind(trace.SpanKindServer))
	return &requestMetrics{
		logger: logger,
		span:   span,
		start:  time.Now(),
		method: method,
		route:  route,
	}, ctx
}

func (m *requestMetrics) SetRoute(route string) {
	if route != "" {
		m.route = route
	}
}

func (m *requestMetrics) SetErrorStage(stage string) {
	if stage == "" {
		return
	}
	m.errorStage = stage
}

// Log records the outcome of the request on the span and as a structured log
// line, then ends the span.
func (m *requestMetrics) Log(status int, err error) {
	if m == nil {
		return
	}
	defer m.span.End()

	attrs := map[string]any{
		"http.method":        m.method,
		"http.route":         m.route,
		"http.status_code":   status,
		"visor.api.total_ms": durationToMillis(time.Since(m.start)),
	}
	if m.errorStage != "" {
		attrs["visor.api.error_stage"] = m.errorStage
	}
	if err != nil {
		attrs["error.message"] = err.Error()
	}

	severityText, severityNumber := severityForStatus(status, err)
	spanCtx := m.span.SpanContext()

	kvs := toKeyValues(attrs)
	m.span.SetAttributes(kvs...)
	m.span.AddEvent(observabilityEvent, trace.WithAttributes(append(kvs,
		attribute.String("event.name", requestEventName),
		attribute.String("event.domain", requestEventDomain),
		attribute.String("severity_text", severityText),
		attribute.Int("severity_number", severityNumber),
	)...))
	if severityText == "ERROR" {
		desc := http.StatusText(status)
		if err != nil {
			desc = err.Error()
		}
		m.span.SetStatus(codes.Error, desc)
	} else {
		m.span.SetStatus(codes.Ok, "")
	}

	if m.logger == nil {
		return
	}
	fields := log.Fields{
		"event.name":      requestEventName,
		"event.domain":    requestEventDomain,
		"severity_text":   severityText,
		"severity_number": severityNumber,
		"attributes":      attrs,
	}
	if spanCtx.HasTraceID() {
		fields["trace_id"] = spanCtx.TraceID().String()
	}
	if spanCtx.HasSpanID() {
		fields["span_id"] = spanCtx.SpanID().String()
	}
	entry := m.logger.WithFields(fields)
	switch severityText {
	case "ERROR":
		entry.Error(observabilityEvent)
	case "WARN":
		entry.Warn(observabilityEvent)
	default:
		entry.Info(observabilityEvent)
	}
}

// RequestMetrics traces every request and emits one observability event per
// response.
func RequestMetrics(logger *log.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			metrics, ctx := newRequestMetrics(req.Context(), logger, req.Method, c.Path())
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				c.Error(err)
			}
			metrics.SetRoute(c.Path())
			if stage, ok := c.Get(errorStageKey).(string); ok {
				metrics.SetErrorStage(stage)
			}
			status := c.Response().Status
			if status < http.StatusInternalServerError {
				err = nil
			}
			metrics.Log(status, err)
			return nil
		}
	}
}

func setErrorStage(c echo.Context, stage string) {
	c.Set(errorStageKey, stage)
}

func severityForStatus(status int, err error) (string, int) {
	switch {
	case err != nil || status >= http.StatusInternalServerError:
		return "ERROR", 17
	case status >= http.StatusBadRequest:
		return "WARN", 13
	default:
		return "INFO", 9
	}
}

func toKeyValues(attrs map[string]any) []attribute.KeyValue {
	out := make([]attribute.KeyValue, 0, len(attrs))
	for k, v := range attrs {
		switch val := v.(type) {
		case string:
			out = append(out, attribute.String(k, val))
		case int:
			out = append(out, attribute.Int(k, val))
		case float64:
			out = append(out, attribute.Float64(k, val))
		case bool:
			out = append(out, attribute.Bool(k, val))
		}
	}
	return out
}

func durationToMillis(d time.Duration) float64 {
	if d <= 0 {
		return 0
	}
	return float64(d) / float64(time.Millisecond)
}
