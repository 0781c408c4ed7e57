package knowledge

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	strategyHits = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sangguni_retrieval_strategy_hits_total",
		Help: "Raw hits returned per retrieval strategy, before merge.",
	}, []string{"strategy"})

	strategyErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "sangguni_retrieval_strategy_errors_total",
		Help: "Strategy executions degraded to zero results by an error.",
	}, []string{"strategy"})

	retrievalDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "sangguni_retrieval_duration_seconds",
		Help:    "End-to-end latency of a retrieval, all strategies included.",
		Buckets: prometheus.DefBuckets,
	})

	documentsIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sangguni_documents_ingested_total",
		Help: "Documents fully ingested into the chunk store.",
	})

	chunksIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "sangguni_chunks_ingested_total",
		Help: "Chunks embedded and inserted into the chunk store.",
	})
)
