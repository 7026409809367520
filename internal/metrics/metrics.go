package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spinify",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	groupsAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinify",
			Name:      "groups_added_total",
			Help:      "Broadcast targets added.",
		},
	)

	groupsEvicted = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinify",
			Name:      "groups_evicted_total",
			Help:      "Broadcast targets evicted by the per-user cap.",
		},
	)

	sessionsBound = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinify",
			Name:      "sessions_bound_total",
			Help:      "Worker sessions bound via the login handoff.",
		},
	)

	sessionsRevoked = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "spinify",
			Name:      "sessions_revoked_total",
			Help:      "Worker sessions revoked.",
		},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, groupsAdded, groupsEvicted, sessionsBound, sessionsRevoked)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

func IncGroupsAdded()     { groupsAdded.Inc() }
func IncGroupsEvicted()   { groupsEvicted.Inc() }
func IncSessionsBound()   { sessionsBound.Inc() }
func IncSessionsRevoked() { sessionsRevoked.Inc() }
