package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	HTTPRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwbot_http_requests_total",
			Help: "Total number of ops HTTP requests",
		},
		[]string{"path", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hwbot_http_request_duration_seconds",
			Help:    "Histogram of ops HTTP response durations",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)

	// PollCycles counts finished poll cycles by error kind.
	PollCycles = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwbot_poll_cycles_total",
			Help: "Number of poll cycles by outcome",
		},
		[]string{"outcome"},
	)

	// FetchDuration measures how long the homework_statuses request takes.
	FetchDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hwbot_fetch_duration_seconds",
			Help:    "Duration of review API requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"result"},
	)

	Notifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hwbot_notifications_total",
			Help: "Chat notifications by kind and delivery result",
		},
		[]string{"kind", "result"},
	)

	Cursor = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "hwbot_cursor_timestamp",
			Help: "Current from_date cursor as a Unix timestamp",
		},
	)
)

func Init() {
	prometheus.MustRegister(HTTPRequests, RequestDuration, PollCycles, FetchDuration, Notifications, Cursor)
}
