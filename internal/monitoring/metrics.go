package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	settlementOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settlement_outcomes_total",
			Help: "Settlement attempts by outcome",
		},
		[]string{"outcome"},
	)

	bookingRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "booking_requests_total",
			Help: "Booking requests by result",
		},
		[]string{"result"},
	)

	gatewayRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gateway_request_duration_seconds",
			Help:    "Latency of payment gateway calls",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"provider", "operation", "status"},
	)

	revenueCacheRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "revenue_cache_requests_total",
			Help: "Revenue summary cache lookups by result",
		},
		[]string{"result"},
	)
)

func TrackSettlement(outcome string) {
	settlementOutcomes.WithLabelValues(outcome).Inc()
}

func TrackBookingRequest(result string) {
	bookingRequests.WithLabelValues(result).Inc()
}

func TrackGatewayRequest(provider, operation, status string, duration time.Duration) {
	gatewayRequestDuration.WithLabelValues(provider, operation, status).Observe(duration.Seconds())
}

func TrackRevenueCache(result string) {
	revenueCacheRequests.WithLabelValues(result).Inc()
}
