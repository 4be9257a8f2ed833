package obs

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FetchAttempts counts upstream quote fetches by outcome
	// ("success", "retry", "failure").
	FetchAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_fetch_attempts_total",
		Help: "Upstream quote fetch attempts by outcome",
	}, []string{"outcome"})

	// DatasetSaves counts dataset save operations by result
	// ("plain", "compressed", "quota_exceeded", "error").
	DatasetSaves = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "screener_dataset_saves_total",
		Help: "Dataset save operations by result",
	}, []string{"result"})

	// DatasetBytes tracks the size of the last persisted dataset payload.
	DatasetBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "screener_dataset_bytes",
		Help: "Size in bytes of the persisted dataset payload",
	})

	// ScreeningDuration measures full-universe screening passes per bucket.
	ScreeningDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "screener_screening_duration_seconds",
		Help:    "Duration of a full screening pass",
		Buckets: prometheus.DefBuckets,
	}, []string{"bucket"})

	// ScreeningMatches tracks the latest match count per bucket.
	ScreeningMatches = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "screener_screening_matches",
		Help: "Stocks matching a screening bucket at the last pass",
	}, []string{"bucket"})
)
