// Package metrics registers the Prometheus instrumentation for a running
// Pipeline: throughput counters, structural-object gauges, and per-bar
// latency histograms. Grounded on the donor's prometheus bootstrap in
// cmd/.../main.go and its client_golang-based counters/histograms.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/forex24/czsc-go/internal/pipeline"
)

// Set holds every collector registered for one Pipeline instance.
type Set struct {
	BarsAppended     prometheus.Counter
	BarsRejected     prometheus.Counter
	StrokesConfirmed prometheus.Counter
	SegmentsConfirmed prometheus.Counter
	ZonesConfirmed   prometheus.Counter
	SignalsEmitted   prometheus.Counter
	AppendLatency    prometheus.Histogram

	MergedBarGauge  prometheus.Gauge
	StrokeGauge     prometheus.Gauge
	SegmentGauge    prometheus.Gauge
	ZoneGauge       prometheus.Gauge
	SignalGauge     prometheus.Gauge
}

// NewSet builds and registers a fresh collector set on reg.
func NewSet(reg prometheus.Registerer, series string) *Set {
	labels := prometheus.Labels{"series": series}
	s := &Set{
		BarsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "bars_appended_total", Help: "Bars successfully appended to the pipeline.", ConstLabels: labels,
		}),
		BarsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "bars_rejected_total", Help: "Bars rejected on ingest (invalid OHLC or non-monotone timestamp).", ConstLabels: labels,
		}),
		StrokesConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "strokes_confirmed_total", Help: "Strokes that transitioned to sure.", ConstLabels: labels,
		}),
		SegmentsConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "segments_confirmed_total", Help: "Segments that transitioned to sure.", ConstLabels: labels,
		}),
		ZonesConfirmed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "zones_confirmed_total", Help: "Zones that transitioned to sure.", ConstLabels: labels,
		}),
		SignalsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "czsc", Name: "signals_emitted_total", Help: "Buy/sell points emitted.", ConstLabels: labels,
		}),
		AppendLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "czsc", Name: "append_latency_seconds", Help: "Pipeline.Append wall time per bar.",
			Buckets: prometheus.DefBuckets, ConstLabels: labels,
		}),
		MergedBarGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "czsc", Name: "merged_bars", Help: "Current merged-bar arena size.", ConstLabels: labels,
		}),
		StrokeGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "czsc", Name: "strokes", Help: "Current stroke arena size.", ConstLabels: labels,
		}),
		SegmentGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "czsc", Name: "segments", Help: "Current segment arena size.", ConstLabels: labels,
		}),
		ZoneGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "czsc", Name: "zones", Help: "Current zone arena size.", ConstLabels: labels,
		}),
		SignalGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "czsc", Name: "signals", Help: "Current signal arena size.", ConstLabels: labels,
		}),
	}
	reg.MustRegister(
		s.BarsAppended, s.BarsRejected, s.StrokesConfirmed, s.SegmentsConfirmed,
		s.ZonesConfirmed, s.SignalsEmitted, s.AppendLatency,
		s.MergedBarGauge, s.StrokeGauge, s.SegmentGauge, s.ZoneGauge, s.SignalGauge,
	)
	return s
}

// Observe updates the arena-size gauges from a pipeline snapshot. It does
// not touch the counters or the AppendLatency histogram, and no caller in
// this module increments them.
func (s *Set) Observe(snap pipeline.Snapshot) {
	s.MergedBarGauge.Set(float64(snap.MergedCount))
	s.StrokeGauge.Set(float64(snap.StrokeCount))
	s.SegmentGauge.Set(float64(snap.SegmentCount))
	s.ZoneGauge.Set(float64(snap.ZoneCount))
	s.SignalGauge.Set(float64(snap.SignalCount))
}
