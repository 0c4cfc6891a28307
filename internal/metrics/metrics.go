// Package metrics holds the bridge's Prometheus instruments.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	AuthDenials = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_auth_denials_total",
			Help: "Requests rejected by the auth decision",
		},
		[]string{"reason"},
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bridge_rate_limit_hits_total",
			Help: "Remote requests rejected by the rate limiter",
		},
	)

	AssetDownloadsStarted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_asset_downloads_started_total",
			Help: "Background asset downloads started",
		},
		[]string{"kind"},
	)

	AssetDownloadsFinished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_asset_downloads_finished_total",
			Help: "Background asset downloads finished, by result",
		},
		[]string{"kind", "result"},
	)

	AssetDownloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bridge_asset_download_duration_seconds",
			Help:    "Duration of background asset downloads",
			Buckets: []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
		[]string{"kind"},
	)

	AssetDownloadsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "bridge_asset_downloads_in_flight",
			Help: "Asset downloads currently running",
		},
	)

	AssetResponses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_asset_responses_total",
			Help: "Asset requests by outcome (ready, downloading, unavailable)",
		},
		[]string{"kind", "outcome"},
	)

	SettingsReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bridge_settings_reloads_total",
			Help: "Settings reloads by result",
		},
		[]string{"result"},
	)

	CloudBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "bridge_cloud_breaker_state",
			Help: "Cloud origin circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)
)

// RecordHTTPRequest records one served request.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	HTTPRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	HTTPRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordDownload records the end of one asset download.
func RecordDownload(kind string, duration time.Duration, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	AssetDownloadsFinished.WithLabelValues(kind, result).Inc()
	AssetDownloadDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

// RecordSettingsReload records a reload attempt.
func RecordSettingsReload(err error) {
	if err != nil {
		SettingsReloads.WithLabelValues("error").Inc()
		return
	}
	SettingsReloads.WithLabelValues("ok").Inc()
}
