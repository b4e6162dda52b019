package client

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/hatlonely/odbx/log/logger"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Metrics 请求维度的 prometheus 指标
type Metrics struct {
	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	activeRequests  *prometheus.GaugeVec
}

// NewMetrics 创建并注册指标，同名指标已注册时复用已有的收集器
func NewMetrics(name string) (*Metrics, error) {
	requestCounter, err := register(prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: name + "_requests_total",
			Help: "Total number of requests sent to the document database",
		},
		[]string{"action", "method", "status"},
	))
	if err != nil {
		return nil, err
	}
	requestDuration, err := register(prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    name + "_request_duration_seconds",
			Help:    "Duration of requests sent to the document database in seconds",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0, 30.0},
		},
		[]string{"action"},
	))
	if err != nil {
		return nil, err
	}
	activeRequests, err := register(prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: name + "_active_requests",
			Help: "Number of in-flight requests",
		},
		[]string{"action"},
	))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		requestCounter:  requestCounter,
		requestDuration: requestDuration,
		activeRequests:  activeRequests,
	}, nil
}

func register[C prometheus.Collector](c C) (C, error) {
	if err := prometheus.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, errors.Wrap(err, "register collector")
	}
	return c, nil
}

// observer 为每个请求记录日志、指标和 span
type observer struct {
	name    string
	logger  logger.Logger
	metrics *Metrics
	tracer  trace.Tracer
}

func newObserver(options *ClientOptions, l logger.Logger) (*observer, error) {
	obs := &observer{
		name:   options.Name,
		logger: l,
	}

	if options.EnableMetrics {
		metrics, err := NewMetrics(options.Name)
		if err != nil {
			return nil, errors.WithMessage(err, "failed to create metrics")
		}
		obs.metrics = metrics
	}

	if options.EnableTracing {
		obs.tracer = otel.Tracer(fmt.Sprintf("odbx.%s", options.Name))
	}

	return obs, nil
}

// observe 执行 fn 并记录结果，fn 返回 HTTP 状态码，传输失败时返回 0
func (obs *observer) observe(ctx context.Context, method string, action string, fn func(context.Context) (int, error)) error {
	start := time.Now()

	var span trace.Span
	if obs.tracer != nil {
		ctx, span = obs.tracer.Start(ctx, fmt.Sprintf("odbx.%s", action),
			trace.WithSpanKind(trace.SpanKindClient),
			trace.WithAttributes(
				attribute.String("component", obs.name),
				attribute.String("http.method", method),
				attribute.String("action", action),
			),
		)
		defer span.End()
	}

	if obs.metrics != nil {
		obs.metrics.activeRequests.WithLabelValues(action).Inc()
		defer obs.metrics.activeRequests.WithLabelValues(action).Dec()
	}

	status, err := fn(ctx)
	duration := time.Since(start)

	statusLabel := "error"
	if status != 0 {
		statusLabel = strconv.Itoa(status)
	}

	if span != nil {
		span.SetAttributes(
			attribute.Int("http.status_code", status),
			attribute.Int64("duration_ms", duration.Milliseconds()),
		)
		if err != nil {
			span.SetStatus(codes.Error, err.Error())
			span.RecordError(err)
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}

	if obs.metrics != nil {
		obs.metrics.requestCounter.WithLabelValues(action, method, statusLabel).Inc()
		obs.metrics.requestDuration.WithLabelValues(action).Observe(duration.Seconds())
	}

	if obs.logger != nil {
		if err != nil {
			obs.logger.DebugContext(ctx, "request failed",
				"action", action,
				"method", method,
				"status", statusLabel,
				"duration", duration,
				"error", err.Error(),
			)
		} else {
			obs.logger.DebugContext(ctx, "request completed",
				"action", action,
				"method", method,
				"status", statusLabel,
				"duration", duration,
			)
		}
	}

	return err
}
