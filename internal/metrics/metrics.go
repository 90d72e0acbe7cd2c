// Package metrics holds the Prometheus collectors for downloads, deliveries
// and the janitor.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const metricsNamespace = "clipbot"

const (
	FormatVideo = "video"
	FormatAudio = "audio"
)

var (
	// downloadsTotal counts finished download attempts.
	// Labels:
	//   - platform: YouTube or Pinterest
	//   - format: video or audio
	//   - result: success or a failure reason (too_long, too_large, ...)
	downloadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "downloads_total",
			Help:      "Total number of download attempts by result",
		},
		[]string{"platform", "format", "result"},
	)

	// downloadDuration measures probe plus fetch time.
	// Buckets cover short clips (a few seconds) up to slow three minute videos.
	downloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Name:      "download_duration_seconds",
			Help:      "Duration of downloads in seconds",
			Buckets:   []float64{1, 2, 5, 10, 15, 30, 45, 60, 120, 300},
		},
		[]string{"platform", "format"},
	)

	deliveredBytes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "delivered_bytes_total",
			Help:      "Total bytes uploaded to chats",
		},
		[]string{"format"},
	)

	janitorRemoved = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "janitor_removed_files_total",
			Help:      "Total number of stale files removed by the janitor",
		},
	)

	linkTokens = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "link_tokens",
			Help:      "Number of link tokens held in memory",
		},
	)
)

const resultSuccess = "success"

func Format(audio bool) string {
	if audio {
		return FormatAudio
	}
	return FormatVideo
}

// RecordDownload records one download attempt. An empty reason means success.
func RecordDownload(platform string, audio bool, reason string, d time.Duration) {
	format := Format(audio)
	result := reason
	if result == "" {
		result = resultSuccess
	}
	downloadsTotal.WithLabelValues(platform, format, result).Inc()
	downloadDuration.WithLabelValues(platform, format).Observe(d.Seconds())
}

func RecordDelivered(audio bool, size int64) {
	deliveredBytes.WithLabelValues(Format(audio)).Add(float64(size))
}

func RecordJanitorRemoved(n int) {
	if n > 0 {
		janitorRemoved.Add(float64(n))
	}
}

func SetLinkTokens(n int) {
	linkTokens.Set(float64(n))
}
