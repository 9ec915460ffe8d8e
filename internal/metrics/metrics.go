package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	requestsCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "walk",
			Name:      "requests_created_total",
			Help:      "Count of walk requests created.",
		},
	)

	transitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walk",
			Name:      "transitions_total",
			Help:      "Count of successful walk request transitions by target status.",
		},
		[]string{"to"},
	)

	transitionFailures = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "walk",
			Name:      "transition_failures_total",
			Help:      "Count of rejected lifecycle operations by operation and failure kind.",
		},
		[]string{"op", "kind"},
	)
)

// Register registers metrics with the default registry (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(requestsCreated, transitions, transitionFailures)
	})
}

func IncRequestCreated() {
	requestsCreated.Inc()
}

func IncTransition(to string) {
	transitions.WithLabelValues(to).Inc()
}

func IncTransitionFailure(op, kind string) {
	transitionFailures.WithLabelValues(op, kind).Inc()
}
