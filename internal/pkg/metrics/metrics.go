// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TileFetchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopin_tile_fetch_total",
		Help: "Tile fetches by style and outcome (ok, fallback, failed)",
	}, []string{"style", "outcome"})
	OfflineJobsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopin_offline_jobs_total",
		Help: "Offline download jobs by terminal phase",
	}, []string{"result"})
	GeocoderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopin_geocoder_requests_total",
		Help: "Geocoder requests by operation and status",
	}, []string{"op", "status"})
	GeocoderDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "geopin_geocoder_duration_ms",
		Help:    "Geocoder call duration in milliseconds",
		Buckets: []float64{10, 50, 100, 200, 500, 1000, 2000, 5000},
	}, []string{"op"})
	PostalRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopin_postal_requests_total",
		Help: "Postal code lookups by status",
	}, []string{"status"})
	ReconcileOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "geopin_reconcile_outcome_total",
		Help: "Postal reconciliation outcomes (as_is, merged, auto_resolved, pending)",
	}, []string{"outcome"})
	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geopin_cache_hits_total",
		Help: "Total geocoder cache hits",
	})
	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "geopin_cache_misses_total",
		Help: "Total geocoder cache misses",
	})
	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "geopin_active_sessions",
		Help: "Number of live map widget sessions",
	})
)

func init() {
	prometheus.MustRegister(TileFetchTotal)
	prometheus.MustRegister(OfflineJobsTotal)
	prometheus.MustRegister(GeocoderRequestsTotal)
	prometheus.MustRegister(GeocoderDurationMs)
	prometheus.MustRegister(PostalRequestsTotal)
	prometheus.MustRegister(ReconcileOutcomeTotal)
	prometheus.MustRegister(CacheHitsTotal)
	prometheus.MustRegister(CacheMissesTotal)
	prometheus.MustRegister(ActiveSessions)
}

// Handler exposes the registered collectors for scraping.
func Handler() http.Handler { return promhttp.Handler() }
