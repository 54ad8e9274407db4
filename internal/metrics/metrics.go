package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Extractor label values
const (
	ModeMetadata = "metadata"
	ModeDownload = "download"

	StatusOK        = "ok"
	StatusFailed    = "failed"
	StatusMalformed = "malformed"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelget",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelget",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60, 300},
	}, []string{"method", "route"})

	ExtractorRunsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "reelget",
		Name:      "extractor_runs_total",
		Help:      "Total yt-dlp invocations by mode and result.",
	}, []string{"mode", "status"})

	ExtractorDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "reelget",
		Name:      "extractor_duration_seconds",
		Help:      "yt-dlp subprocess wall time in seconds.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 60, 300},
	}, []string{"mode"})

	ExtractorInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "reelget",
		Name:      "extractor_in_flight",
		Help:      "yt-dlp subprocesses currently running.",
	})

	DownloadBytesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reelget",
		Name:      "download_bytes_total",
		Help:      "Bytes streamed to clients from yt-dlp.",
	})

	DownloadsTruncatedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reelget",
		Name:      "downloads_truncated_total",
		Help:      "Downloads that failed after the response headers were sent.",
	})

	DownloadsClientGoneTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "reelget",
		Name:      "downloads_client_gone_total",
		Help:      "Downloads cut short because the client stopped reading.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ExtractorRunsTotal,
		ExtractorDuration,
		ExtractorInFlight,
		DownloadBytesTotal,
		DownloadsTruncatedTotal,
		DownloadsClientGoneTotal,
	)
}
