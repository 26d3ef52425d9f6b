// Package metrics counts intercepted calls by the dispatch step that
// produced their result.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome labels.
const (
	OutcomePrefix = "prefix"
	OutcomeReal   = "real"
	OutcomeSuffix = "suffix"
	OutcomeError  = "error"
)

// Metrics holds the dispatch collectors. A nil *Metrics records nothing.
type Metrics struct {
	dispatches      *prometheus.CounterVec
	duration        *prometheus.HistogramVec
	initializations *prometheus.CounterVec
}

// New creates the collectors and registers them with reg.
// Collectors already registered by an earlier call are reused.
func New(reg prometheus.Registerer, namespace string) (*Metrics, error) {
	m := &Metrics{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dispatches_total",
			Help:      "Intercepted calls by class, member and the step that produced the result.",
		}, []string{"class", "member", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "dispatch_duration_seconds",
			Help:      "Duration of intercepted calls, interceptors included.",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, []string{"class", "member"}),
		initializations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lazy_initializations_total",
			Help:      "Lazy initializer runs by class and result.",
		}, []string{"class", "result"}),
	}

	var err error
	if m.dispatches, err = register(reg, m.dispatches); err != nil {
		return nil, err
	}
	if m.duration, err = register(reg, m.duration); err != nil {
		return nil, err
	}
	if m.initializations, err = register(reg, m.initializations); err != nil {
		return nil, err
	}

	return m, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	err := reg.Register(c)
	if err == nil {
		return c, nil
	}

	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing, nil
		}
	}

	return c, err
}

// ObserveDispatch records one intercepted call.
func (m *Metrics) ObserveDispatch(class, member, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}

	m.dispatches.WithLabelValues(class, member, outcome).Inc()
	m.duration.WithLabelValues(class, member).Observe(elapsed.Seconds())
}

// ObserveInitialization records one run of a lazy initializer.
func (m *Metrics) ObserveInitialization(class string, err error) {
	if m == nil {
		return
	}

	result := "ok"
	if err != nil {
		result = "error"
	}
	m.initializations.WithLabelValues(class, result).Inc()
}
