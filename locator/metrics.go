package locator

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	ag "github.com/rhansen/artifactgraph"
)

const (
	opDirectDependencies = "direct_dependencies"
	opProperties         = "properties"
)

// Instrumented wraps a [ag.Locator] and records a Prometheus request counter, error counter and
// latency histogram for every query, labeled by operation.
type Instrumented struct {
	next     ag.Locator
	requests *prometheus.CounterVec
	errors   *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

var _ ag.Locator = (*Instrumented)(nil)

// NewInstrumented registers the locator metrics with reg and returns an [Instrumented] locator
// that updates them.  Registering twice with the same registry fails.
func NewInstrumented(next ag.Locator, reg prometheus.Registerer) (*Instrumented, error) {
	l := &Instrumented{
		next: next,
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactgraph_locator_requests_total",
				Help: "Number of locator queries by operation.",
			},
			[]string{"op"},
		),
		errors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "artifactgraph_locator_errors_total",
				Help: "Number of failed locator queries by operation.",
			},
			[]string{"op"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "artifactgraph_locator_duration_seconds",
				Help:    "Time taken to answer locator queries.",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"op"},
		),
	}
	for _, c := range []prometheus.Collector{l.requests, l.errors, l.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return l, nil
}

func (l *Instrumented) observe(op string, start time.Time, err error) {
	l.requests.WithLabelValues(op).Inc()
	if err != nil {
		l.errors.WithLabelValues(op).Inc()
	}
	l.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (l *Instrumented) DirectDependencies(ctx context.Context, c ag.Coordinate) (_ []ag.DeclaredDependency, retErr error) {
	defer func(start time.Time) { l.observe(opDirectDependencies, start, retErr) }(time.Now())
	return l.next.DirectDependencies(ctx, c)
}

func (l *Instrumented) Properties(ctx context.Context, c ag.Coordinate) (_ map[string]string, retErr error) {
	defer func(start time.Time) { l.observe(opProperties, start, retErr) }(time.Now())
	return l.next.Properties(ctx, c)
}
