package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	TradesIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxmate_trades_ingested_total",
		Help: "Total number of trade rows ingested",
	}, []string{"status"})

	TransactionsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxmate_transactions_ingested_total",
		Help: "Total number of bank transactions ingested",
	}, []string{"bank"})

	GainsEmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxmate_gains_emitted_total",
		Help: "Total number of capital gain fragments emitted",
	}, []string{"reason"})

	PipelineDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxmate_pipeline_stage_duration_seconds",
		Help:    "Duration of each pipeline stage",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})

	CacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxmate_cache_hits_total",
		Help: "Total number of cache hits",
	})

	CacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "taxmate_cache_misses_total",
		Help: "Total number of cache misses",
	})

	DatabaseQueries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxmate_database_queries_total",
		Help: "Total number of database queries",
	}, []string{"query_type", "status"})

	DatabaseQueryDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taxmate_database_query_duration_seconds",
		Help:    "Duration of database queries",
		Buckets: prometheus.DefBuckets,
	}, []string{"query_type"})

	ReportRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taxmate_report_requests_total",
		Help: "Total number of report requests",
	}, []string{"report", "cached"})
)

func RecordCacheHit() {
	CacheHits.Inc()
}

func RecordCacheMiss() {
	CacheMisses.Inc()
}

func RecordDatabaseQuery(queryType, status string, duration float64) {
	DatabaseQueries.WithLabelValues(queryType, status).Inc()
	DatabaseQueryDuration.WithLabelValues(queryType).Observe(duration)
}

func RecordTradeIngested(status string) {
	TradesIngested.WithLabelValues(status).Inc()
}

func RecordTransactionIngested(bank string) {
	TransactionsIngested.WithLabelValues(bank).Inc()
}

func RecordGainEmitted(reason string) {
	GainsEmitted.WithLabelValues(reason).Inc()
}

func RecordReportRequest(report string, cached bool) {
	cachedStr := "false"
	if cached {
		cachedStr = "true"
	}
	ReportRequests.WithLabelValues(report, cachedStr).Inc()
}

type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{
		start: time.Now(),
	}
}

func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
