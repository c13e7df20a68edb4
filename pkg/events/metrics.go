package events

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsReporter counts outcomes and records attempt durations.
type MetricsReporter struct {
	attempts *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewMetricsReporter creates the collectors and registers them on reg.
func NewMetricsReporter(reg prometheus.Registerer) (*MetricsReporter, error) {
	m := &MetricsReporter{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "zomecall",
			Name:      "attempts_total",
			Help:      "Zome call attempts by remote function, outcome and error kind.",
		}, []string{"zome", "fn", "outcome", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "zomecall",
			Name:      "attempt_duration_seconds",
			Help:      "Wall time of a zome call attempt from connect to close.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"zome", "fn", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.attempts, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Report implements Reporter.
func (m *MetricsReporter) Report(_ context.Context, event *OutcomeEvent) error {
	m.attempts.WithLabelValues(event.ZomeName, event.FnName, event.Outcome, event.ErrorKind).Inc()
	m.duration.WithLabelValues(event.ZomeName, event.FnName, event.Outcome).Observe(event.Duration.Seconds())
	return nil
}
