package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	apiRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "easybooking",
			Name:      "api_requests_total",
			Help:      "Backend API requests by endpoint, method and status.",
		},
		[]string{"endpoint", "method", "status"},
	)

	sessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "easybooking",
			Name:      "session_transitions_total",
			Help:      "Session lifecycle transitions.",
		},
		[]string{"event"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(apiRequests, sessionTransitions)
	})
}

// IncAPIRequest counts one backend call. status 0 marks a transport failure.
func IncAPIRequest(endpoint, method string, status int) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	apiRequests.WithLabelValues(endpoint, method, label).Inc()
}

// IncSession counts a session event such as login, logout or expired.
func IncSession(event string) {
	sessionTransitions.WithLabelValues(event).Inc()
}
