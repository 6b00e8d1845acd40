package auth

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OutcomeOK is the kind label used for authenticated requests
const OutcomeOK = "OK"

// PrometheusObserver counts terminal outcomes per role and kind and tracks
// how long resolution takes.
type PrometheusObserver struct {
	outcomes *prometheus.CounterVec
	duration *prometheus.HistogramVec
}

// NewPrometheusObserver creates the collectors. Call Register to expose them.
func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roleauth",
			Name:      "outcomes_total",
			Help:      "Terminal authentication outcomes by role and kind.",
		}, []string{"role", "kind"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roleauth",
			Name:      "resolve_duration_seconds",
			Help:      "Time spent resolving a request into an outcome.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"role"}),
	}
}

// Register adds the collectors to reg
func (o *PrometheusObserver) Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{o.outcomes, o.duration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Outcomes exposes the outcome counter, mostly for tests
func (o *PrometheusObserver) Outcomes() *prometheus.CounterVec {
	return o.outcomes
}

func (o *PrometheusObserver) ObserveOutcome(role Role, kind ErrorKind, elapsed time.Duration) {
	label := string(kind)
	if label == "" {
		label = OutcomeOK
	}
	roleLabel := string(role)
	if roleLabel == "" {
		roleLabel = "unknown"
	}
	o.outcomes.WithLabelValues(roleLabel, label).Inc()
	o.duration.WithLabelValues(roleLabel).Observe(elapsed.Seconds())
}
