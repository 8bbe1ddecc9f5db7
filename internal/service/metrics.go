package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

const outcomeSuccess = "success"
const outcomeNoop = "noop"

var cartOperationsTotal = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Name: "cart_operations_total",
		Help: "Cart mutations by operation and outcome (success, noop or the failure kind)",
	},
	[]string{"operation", "outcome"},
)

func init() {
	prometheus.MustRegister(cartOperationsTotal)
}

func observe(op Operation, outcome string) {
	cartOperationsTotal.WithLabelValues(string(op), outcome).Inc()
}
