// Package metrics provides the Prometheus metrics of the track library.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// TrackMetrics contains all Prometheus metrics related to tracks and their
// metadata synchronization.
type TrackMetrics struct {
	LiveTracks     prometheus.Gauge
	SavedTracks    prometheus.Counter
	CacheEvictions prometheus.Counter
	JobsRunning    prometheus.Gauge
	importsTotal   *prometheus.CounterVec
	exportsTotal   *prometheus.CounterVec
}

// NewTrackMetrics creates and registers the metrics. It returns an error if
// registration fails, e.g. because the metrics are already registered.
func NewTrackMetrics(registry prometheus.Registerer) (*TrackMetrics, error) {
	m := &TrackMetrics{}
	m.initMetrics()
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register track metrics: %w", err)
	}
	return m, nil
}

func (m *TrackMetrics) initMetrics() {
	m.LiveTracks = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "djtrack_live_tracks",
		Help: "Number of track objects that have not been released.",
	})

	m.SavedTracks = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "djtrack_library_saved_tracks_total",
		Help: "Total number of dirty tracks written to the library.",
	})

	m.CacheEvictions = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "djtrack_library_cache_evictions_total",
		Help: "Total number of tracks evicted from the live track cache.",
	})

	m.JobsRunning = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "djtrack_jobs_running",
		Help: "Number of export jobs currently running.",
	})

	m.importsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "djtrack_metadata_imports_total",
		Help: "Total number of metadata imports by source and result.",
	}, []string{"source", "result"})

	m.exportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "djtrack_metadata_exports_total",
		Help: "Total number of metadata exports by result.",
	}, []string{"result"})
}

// RecordImport counts a metadata import of the given source.
func (m *TrackMetrics) RecordImport(source string, result fmt.Stringer) {
	m.importsTotal.WithLabelValues(source, result.String()).Inc()
}

// RecordExport counts a metadata export.
func (m *TrackMetrics) RecordExport(result fmt.Stringer) {
	m.exportsTotal.WithLabelValues(result.String()).Inc()
}

// Describe implements the prometheus.Collector interface.
func (m *TrackMetrics) Describe(ch chan<- *prometheus.Desc) {
	ch <- m.LiveTracks.Desc()
	ch <- m.SavedTracks.Desc()
	ch <- m.CacheEvictions.Desc()
	ch <- m.JobsRunning.Desc()
	m.importsTotal.Describe(ch)
	m.exportsTotal.Describe(ch)
}

// Collect implements the prometheus.Collector interface.
func (m *TrackMetrics) Collect(ch chan<- prometheus.Metric) {
	ch <- m.LiveTracks
	ch <- m.SavedTracks
	ch <- m.CacheEvictions
	ch <- m.JobsRunning
	m.importsTotal.Collect(ch)
	m.exportsTotal.Collect(ch)
}
