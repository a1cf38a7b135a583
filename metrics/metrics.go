package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "crown"

var (
	LedgerEntries = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "entries_total",
		Help:      "Ledger entries written, by entry type.",
	}, []string{"type"})

	LedgerRetries = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "ledger",
		Name:      "retries_total",
		Help:      "Ledger transactions retried after a concurrent modification.",
	})

	OrderTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "orders",
		Name:      "transitions_total",
		Help:      "Applied order state transitions, by target status.",
	}, []string{"status"})

	CommissionPaid = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "commission",
		Name:      "paid_units_total",
		Help:      "Currency units paid out as commission.",
	})

	Withdrawals = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "withdrawals",
		Name:      "total",
		Help:      "Withdrawal requests by resulting status.",
	}, []string{"status"})

	IntegrityViolations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "membership",
		Name:      "integrity_violations_total",
		Help:      "Upline chains that failed integrity checks.",
	})
)

func collectors() []prometheus.Collector {
	return []prometheus.Collector{
		LedgerEntries, LedgerRetries, OrderTransitions, CommissionPaid, Withdrawals, IntegrityViolations,
	}
}

// Register adds every collector to r. Registering twice is not an error.
func Register(r prometheus.Registerer) error {
	for _, c := range collectors() {
		if err := r.Register(c); err != nil {
			var are prometheus.AlreadyRegisteredError
			if errors.As(err, &are) {
				continue
			}
			return err
		}
	}
	return nil
}
