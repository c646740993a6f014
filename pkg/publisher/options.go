package publisher

import (
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/shmbus/shmbus/internal/metrics"
)

type options struct {
	uid     uuid.UUID
	hasUID  bool
	metrics *metrics.PublisherMetrics
	meter   metric.Meter
	tracer  trace.Tracer
}

// Option configures a Publisher at construction time.
type Option func(*options)

// WithUID pins the publisher's unique id; the default is random.
func WithUID(uid uuid.UUID) Option {
	return func(o *options) {
		o.uid = uid
		o.hasUID = true
	}
}

// WithMetrics attaches prometheus counters for the chunk lifecycle.
func WithMetrics(m *metrics.PublisherMetrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithMeter attaches an OpenTelemetry meter; loans are counted on it.
func WithMeter(m metric.Meter) Option {
	return func(o *options) { o.meter = m }
}

// WithTracer attaches an OpenTelemetry tracer; each publish gets a span.
func WithTracer(t trace.Tracer) Option {
	return func(o *options) { o.tracer = t }
}
