package bot

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the Telegram front-end.
type Metrics struct {
	UpdateProcessingTime prometheus.Histogram
	CommandsProcessed    *prometheus.CounterVec
	ErrorsTotal          prometheus.Counter
	ActiveSessions       prometheus.Gauge
	BookingsCreated      prometheus.Counter
}

// NewMetrics creates the collectors on reg. A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		UpdateProcessingTime: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "telegram_bot_update_processing_time_seconds",
			Help:    "Time spent processing updates",
			Buckets: prometheus.DefBuckets,
		}),

		CommandsProcessed: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "telegram_bot_commands_total",
			Help: "Commands received by name",
		}, []string{"command"}),

		ErrorsTotal: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_panics_total",
			Help: "Update handlers that panicked",
		}),

		ActiveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Name: "telegram_bot_sessions",
			Help: "Telegram users with a dashboard workspace",
		}),

		BookingsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "telegram_bot_bookings_created_total",
			Help: "Bookings created through the bot",
		}),
	}
}
