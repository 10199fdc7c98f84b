package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_requests_total",
		Help: "Total number of parcel queries by operation",
	}, []string{"op"})
	RequestErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_request_errors_total",
		Help: "Total number of rejected or failed parcel queries by operation and kind",
	}, []string{"op", "kind"})
	RequestDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parcelapi_request_duration_ms",
		Help:    "Query duration in milliseconds",
		Buckets: []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000},
	}, []string{"op"})
	Candidates = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "parcelapi_candidates",
		Help:    "Spatial index candidate set size before exact tests",
		Buckets: []float64{0, 1, 5, 10, 50, 100, 500, 1000, 5000},
	}, []string{"op"})
	EmptyResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_empty_results_total",
		Help: "Total number of queries answered with no parcel",
	}, []string{"op"})
	LoadRowsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_load_rows_total",
		Help: "Rows seen while building the parcel store, by result",
	}, []string{"result"})
	StoreRecords = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parcelapi_store_records",
		Help: "Number of parcels in the serving store",
	})
	StoreGeneration = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "parcelapi_store_generation",
		Help: "Generation number of the serving store",
	})
	CacheHitsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_cache_hits_total",
		Help: "Total cache hits by cache",
	}, []string{"cache"})
	CacheMissesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parcelapi_cache_misses_total",
		Help: "Total cache misses by cache",
	}, []string{"cache"})
)

func init() {
	prometheus.MustRegister(RequestsTotal)
	prometheus.MustRegister(RequestErrorsTotal)
	prometheus.MustRegister(RequestDurationMs)
	prometheus.MustRegister(Candidates)
	prometheus.MustRegister(EmptyResultsTotal)
	prometheus.MustRegister(LoadRowsTotal)
	prometheus.MustRegister(StoreRecords)
	prometheus.MustRegister(StoreGeneration)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
}

// 文档注释：返回 Prometheus 指标监听器
// 背景：统一暴露注册指标到 /metrics 路径，供 Prometheus 抓取；在主入口挂载。
func Handler() http.Handler { return promhttp.Handler() }
