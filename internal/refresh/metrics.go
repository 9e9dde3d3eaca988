package refresh

import "github.com/prometheus/client_golang/prometheus"

var (
	cycleDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "transitboard_cycle_duration_seconds",
		Help:    "Time taken by one fetch, normalize and aggregate cycle",
		Buckets: prometheus.DefBuckets,
	})
	boardArrivals = prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "transitboard_board_arrivals",
		Help: "Arrivals shown on the board after the last cycle",
	}, []string{"source"})
	feedFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "transitboard_feed_failure_count",
		Help: "Number of cycles in which a feed failed or returned partial data",
	}, []string{"source", "kind"})
)

func init() {
	prometheus.MustRegister(cycleDuration, boardArrivals, feedFailures)
}
