package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	ReservationOutcomes = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_outcomes_total",
			Help: "Reserve-and-book attempts by outcome",
		},
		[]string{"outcome"},
	)

	ReservationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "reservation_duration_seconds",
			Help:    "Time taken to run a reserve-and-book attempt",
			Buckets: prometheus.DefBuckets,
		},
	)

	CASConflicts = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "reservation_cas_conflicts_total",
			Help: "Conditional credit decrements that affected zero rows",
		},
	)

	Compensations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "reservation_compensations_total",
			Help: "Credit reversals after a failed booking write, by result",
		},
		[]string{"result"},
	)

	LedgerAppendFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_append_failures_total",
			Help: "Ledger entries that could not be written",
		},
	)

	LedgerDropped = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "ledger_dropped_total",
			Help: "Ledger entries dropped because the recorder queue was full or closed",
		},
	)

	NotificationFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "booking_notification_failures_total",
			Help: "Booking confirmations that could not be published",
		},
	)
)

func Register() {
	prometheus.MustRegister(
		ReservationOutcomes,
		ReservationDuration,
		CASConflicts,
		Compensations,
		LedgerAppendFailures,
		LedgerDropped,
		NotificationFailures,
	)
}
