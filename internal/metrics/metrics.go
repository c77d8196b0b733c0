// Package metrics exposes Prometheus counters for the collection and
// ingestion path.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trainset_trades_collected_total", Help: "AggTrade records published to Kafka"},
		[]string{"symbol"},
	)
	SnapshotsCollected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trainset_snapshots_collected_total", Help: "Orderbook snapshots published to Kafka"},
		[]string{"symbol"},
	)
	TradesIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trainset_trades_ingested_total", Help: "AggTrade records written to storage"},
	)
	SnapshotsIngested = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "trainset_snapshots_ingested_total", Help: "Orderbook snapshots written to storage"},
	)
	RecordsRejected = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "trainset_records_rejected_total", Help: "Records dropped during validation"},
		[]string{"kind"},
	)
)

func init() {
	prometheus.MustRegister(TradesCollected, SnapshotsCollected, TradesIngested, SnapshotsIngested, RecordsRejected)
}

// Serve starts a /metrics endpoint in the background and returns the
// server so callers can shut it down.
func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
