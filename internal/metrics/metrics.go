package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000, 5000}

var (
	RouteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnav_route_requests_total",
		Help: "Total routing requests by coordinator operation",
	}, []string{"op"})
	RouteFailTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnav_route_fail_total",
		Help: "Total failed routing requests by operation and failure kind",
	}, []string{"op", "kind"})
	RouteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "campusnav_route_duration_ms",
		Help:    "Routing request duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"op"})
	OSRMRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusnav_osrm_requests_total",
		Help: "Total walking-route provider requests",
	})
	OSRMFailTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusnav_osrm_fail_total",
		Help: "Total walking-route provider failures",
	})
	OSRMDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "campusnav_osrm_duration_ms",
		Help:    "Walking-route provider call duration in milliseconds",
		Buckets: durationBuckets,
	})
	RouteCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusnav_route_cache_hits_total",
		Help: "Total walking-route cache hits",
	})
	RouteCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "campusnav_route_cache_misses_total",
		Help: "Total walking-route cache misses",
	})
	SurveyFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "campusnav_survey_fetch_total",
		Help: "Survey dataset fetch attempts by dataset and status",
	}, []string{"dataset", "status"})
)

func init() {
	prometheus.MustRegister(RouteRequestsTotal)
	prometheus.MustRegister(RouteFailTotal)
	prometheus.MustRegister(RouteDurationMs)
	prometheus.MustRegister(OSRMRequestsTotal)
	prometheus.MustRegister(OSRMFailTotal)
	prometheus.MustRegister(OSRMDurationMs)
	prometheus.MustRegister(RouteCacheHitsTotal)
	prometheus.MustRegister(RouteCacheMissesTotal)
	prometheus.MustRegister(SurveyFetchTotal)
}

// Handler：Prometheus 抓取入口，挂载于 API_BASE + "/metrics"
func Handler() http.Handler { return promhttp.Handler() }
