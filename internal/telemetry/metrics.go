package telemetry

import (
	"context"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

// InitMeterProvider initializes the Prometheus exporter and MeterProvider.
// It returns an http.Handler for the /metrics endpoint and a shutdown function.
func InitMeterProvider(serviceName, serviceVersion string) (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(serviceName),
		semconv.ServiceVersion(serviceVersion),
	)

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(exporter),
		sdkmetric.WithResource(res),
	)

	otel.SetMeterProvider(mp)

	return promhttp.Handler(), mp.Shutdown, nil
}

// Metrics holds the order workflow instruments. A nil *Metrics is valid
// and records nothing, so tests can skip meter setup.
type Metrics struct {
	ordersPlaced  metric.Int64Counter
	ordersDecided metric.Int64Counter
	notifyFailed  metric.Int64Counter
}

func NewMetrics() (*Metrics, error) {
	meter := otel.Meter("shopflow/workflow")

	ordersPlaced, err := meter.Int64Counter("shop_orders_placed_total",
		metric.WithDescription("Orders successfully persisted"))
	if err != nil {
		return nil, err
	}

	ordersDecided, err := meter.Int64Counter("shop_orders_decided_total",
		metric.WithDescription("Admin accept/reject decisions applied"))
	if err != nil {
		return nil, err
	}

	notifyFailed, err := meter.Int64Counter("shop_notifications_failed_total",
		metric.WithDescription("Notification attempts that failed"))
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ordersPlaced:  ordersPlaced,
		ordersDecided: ordersDecided,
		notifyFailed:  notifyFailed,
	}, nil
}

func (m *Metrics) OrderPlaced(ctx context.Context) {
	if m == nil {
		return
	}
	m.ordersPlaced.Add(ctx, 1)
}

func (m *Metrics) OrderDecided(ctx context.Context, accepted bool) {
	if m == nil {
		return
	}
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	m.ordersDecided.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}

func (m *Metrics) NotificationFailed(ctx context.Context) {
	if m == nil {
		return
	}
	m.notifyFailed.Add(ctx, 1)
}
