package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	slotComputations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "slot_computations_total",
			Help:      "Count of day slot computations by result.",
		},
		[]string{"result"},
	)

	artistFetchFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "artist_fetch_failures_total",
			Help:      "Count of artists skipped because their availability could not be read.",
		},
	)

	nextAvailableScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "next_available_scans_total",
			Help:      "Count of forward availability scans by mode and result.",
		},
		[]string{"mode", "result"},
	)

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "http_requests_total",
			Help:      "Count of API requests by endpoint and status code.",
		},
		[]string{"endpoint", "code"},
	)

	bookingChanges = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "studio",
			Name:      "booking_changes_total",
			Help:      "Count of booking changes by action.",
		},
		[]string{"action"},
	)
)

// Register registers metrics (idempotent).
func Register() {
	once.Do(func() {
		prometheus.MustRegister(slotComputations, artistFetchFailures, nextAvailableScans, httpRequests, bookingChanges)
	})
}

func IncSlotComputation(result string) {
	slotComputations.WithLabelValues(result).Inc()
}

func IncArtistFetchFailure() {
	artistFetchFailures.Inc()
}

func IncNextAvailableScan(mode, result string) {
	nextAvailableScans.WithLabelValues(mode, result).Inc()
}

func IncHTTPRequest(endpoint, code string) {
	httpRequests.WithLabelValues(endpoint, code).Inc()
}

func IncBookingChange(action string) {
	bookingChanges.WithLabelValues(action).Inc()
}
