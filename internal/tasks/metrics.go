package tasks

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes pipeline counters to Prometheus.
//
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	jobsTotal      *prometheus.CounterVec
	jobDuration    *prometheus.HistogramVec
	jobsInflight   prometheus.Gauge
	batchesTotal   prometheus.Counter
	tracksIngested prometheus.Counter
	fileErrors     prometheus.Counter
	itemsFetched   *prometheus.CounterVec
}

// NewMetrics registers the pipeline metrics with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		jobsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundsync_jobs_total",
				Help: "Total number of sync jobs by outcome",
			},
			[]string{"outcome"},
		),

		jobDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "soundsync_job_duration_seconds",
				Help:    "Wall-clock duration of sync jobs",
				Buckets: []float64{1, 10, 60, 300, 900, 1800, 3600, 7200, 10800}, // 1s to 3h
			},
			[]string{"outcome"},
		),

		jobsInflight: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "soundsync_jobs_inflight",
				Help: "Number of users with a queued or running sync job",
			},
		),

		batchesTotal: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundsync_batches_total",
				Help: "Total number of scheduled batches started",
			},
		),

		tracksIngested: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundsync_tracks_ingested_total",
				Help: "Total number of new tracks recorded by scans",
			},
		),

		fileErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "soundsync_scan_file_errors_total",
				Help: "Total number of audio files skipped because their tags could not be read",
			},
		),

		itemsFetched: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "soundsync_fetch_items_total",
				Help: "Items reported by the fetch tool",
			},
			[]string{"status"}, // downloaded, skipped
		),
	}
}

func (m *Metrics) recordJob(res JobResult) {
	if m == nil {
		return
	}
	m.recordOutcome(res.Outcome, res.Duration.Seconds())

	if res.Fetch != nil {
		m.itemsFetched.WithLabelValues("downloaded").Add(float64(res.Fetch.Downloaded))
		m.itemsFetched.WithLabelValues("skipped").Add(float64(res.Fetch.Skipped))
	}
	if res.Scan != nil {
		m.tracksIngested.Add(float64(res.Scan.Inserted))
		m.fileErrors.Add(float64(res.Scan.Failed))
	}
}

func (m *Metrics) recordOutcome(o Outcome, seconds float64) {
	if m == nil {
		return
	}
	m.jobsTotal.WithLabelValues(o.String()).Inc()
	m.jobDuration.WithLabelValues(o.String()).Observe(seconds)
}

func (m *Metrics) recordBatch() {
	if m == nil {
		return
	}
	m.batchesTotal.Inc()
}

func (m *Metrics) setInflight(n int) {
	if m == nil {
		return
	}
	m.jobsInflight.Set(float64(n))
}
