// Package metrics provides Prometheus metrics for the panel sync engine.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	scansTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duopane_scans_total",
			Help: "Total number of directory scans by outcome",
		},
		[]string{"side", "outcome"},
	)

	scanDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "duopane_scan_duration_seconds",
			Help:    "Directory scan duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"side"},
	)

	triggersCoalesced = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duopane_triggers_coalesced_total",
			Help: "Scan triggers absorbed by an in-flight scan",
		},
		[]string{"side", "reason"},
	)

	accessRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "duopane_access_requests_total",
			Help: "Access grant requests by result",
		},
		[]string{"result"},
	)

	panelEntries = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "duopane_panel_entries",
			Help: "Number of entries currently listed in a panel",
		},
		[]string{"side"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordScan records a completed scan. outcome is "ok" or an error kind.
func RecordScan(side, outcome string, duration time.Duration) {
	scansTotal.WithLabelValues(side, outcome).Inc()
	scanDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// RecordCoalesced records a trigger that did not start a new scan.
func RecordCoalesced(side, reason string) {
	triggersCoalesced.WithLabelValues(side, reason).Inc()
}

// RecordAccessRequest records the result of an access prompt.
func RecordAccessRequest(granted bool) {
	result := "denied"
	if granted {
		result = "granted"
	}
	accessRequests.WithLabelValues(result).Inc()
}

// SetPanelEntries sets the entry count gauge for a side.
func SetPanelEntries(side string, n int) {
	panelEntries.WithLabelValues(side).Set(float64(n))
}
