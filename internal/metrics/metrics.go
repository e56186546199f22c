package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel/attribute"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests     metric.Int64Counter
	HTTPDuration     metric.Float64Histogram
	PostsCreated     metric.Int64Counter
	CommentsCreated  metric.Int64Counter
	ReactionsToggled metric.Int64Counter
}

// Setup registers the blog meters on a fresh Prometheus registry and returns
// the handler that serves it.
func Setup(serviceName string) (*Metrics, http.Handler, error) {
	registry := prometheus.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry), otelprom.WithoutScopeInfo())
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"blog_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"blog_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.PostsCreated, err = meter.Int64Counter(
		"blog_posts_created_total",
		metric.WithDescription("Posts created"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.CommentsCreated, err = meter.Int64Counter(
		"blog_comments_created_total",
		metric.WithDescription("Comments created"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.ReactionsToggled, err = meter.Int64Counter(
		"blog_reactions_toggled_total",
		metric.WithDescription("Reaction toggles by resulting state"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, route string, status int, duration time.Duration) {
	m.HTTPRequests.Add(ctx, 1, metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
		attribute.Int("status", status),
	))
	m.HTTPDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("route", route),
	))
}

func (m *Metrics) RecordPostCreated(ctx context.Context) {
	m.PostsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordCommentCreated(ctx context.Context) {
	m.CommentsCreated.Add(ctx, 1)
}

func (m *Metrics) RecordReactionToggled(ctx context.Context, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	m.ReactionsToggled.Add(ctx, 1, metric.WithAttributes(attribute.String("state", state)))
}
