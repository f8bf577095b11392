package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// ordersCreated counts successfully created song requests.
	ordersCreated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "karaoke_orders_created_total",
			Help: "Total number of song requests created.",
		},
	)

	// orderTransitions counts committed status changes by target status.
	orderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "karaoke_order_transitions_total",
			Help: "Total number of order status transitions by resulting status.",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(ordersCreated, orderTransitions)
}
