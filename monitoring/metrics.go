package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	holdOperations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "inventory_hold_operations_total",
			Help: "Hold attempts against the inventory ledger by result",
		},
		[]string{"result"},
	)

	callbackOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "payment_callback_outcomes_total",
			Help: "Gateway callback deliveries by mapped outcome",
		},
		[]string{"outcome"},
	)

	checkInResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkin_results_total",
			Help: "Gate scan results",
		},
		[]string{"result"},
	)

	sweepReleased = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_sweep_released_total",
			Help: "Reservations released by the expiry sweep",
		},
	)

	gatewayLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of payment gateway createTransaction calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
	)
)

func TrackHold(granted bool) {
	result := "granted"
	if !granted {
		result = "rejected"
	}
	holdOperations.WithLabelValues(result).Inc()
}

func TrackCallback(outcome string) {
	callbackOutcomes.WithLabelValues(outcome).Inc()
}

func TrackCheckIn(result string) {
	checkInResults.WithLabelValues(result).Inc()
}

func TrackSweep(released int) {
	sweepReleased.Add(float64(released))
}

func ObserveGatewayLatency(d time.Duration) {
	gatewayLatency.Observe(d.Seconds())
}
