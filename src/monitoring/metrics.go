package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TransactionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veeniu_transactions_created_total",
		Help: "Number of transactions created and reserved",
	})
	TransactionsConfirmed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veeniu_transactions_confirmed_total",
		Help: "Number of transactions accepted by organizers",
	})
	TransactionsRejected = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veeniu_transactions_rejected_total",
		Help: "Number of transactions rejected by organizers",
	})
	TransactionsExpired = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veeniu_transactions_expired_total",
		Help: "Number of transactions expired by the scheduler",
	})
	ReservationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "veeniu_reservation_conflicts_total",
		Help: "Number of reservations refused for insufficient stock",
	})
)
