package prometheus

import (
	"net/http"

	portalAuth "github.com/MrEthical07/portalAuth"
	"github.com/MrEthical07/portalAuth/metrics/export/internaldefs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type metricsSource interface {
	MetricsSnapshot() portalAuth.MetricsSnapshot
	AuditDropped() uint64
}

type histogramDesc struct {
	id   portalAuth.MetricID
	desc *prometheus.Desc
}

type counterDesc struct {
	id   portalAuth.MetricID
	desc *prometheus.Desc
}

// PrometheusExporter is a prometheus.Collector over a manager's metrics.
// Each scrape takes one snapshot.
type PrometheusExporter struct {
	source       metricsSource
	counters     []counterDesc
	histograms   []histogramDesc
	auditDropped *prometheus.Desc
	registry     *prometheus.Registry
}

var _ prometheus.Collector = (*PrometheusExporter)(nil)

func NewPrometheusExporter(m *portalAuth.Manager) *PrometheusExporter {
	return NewPrometheusExporterFromSource(m)
}

func NewPrometheusExporterFromSource(source metricsSource) *PrometheusExporter {
	e := &PrometheusExporter{
		source:     source,
		counters:   make([]counterDesc, 0, len(internaldefs.CounterDefs)),
		histograms: make([]histogramDesc, 0, len(internaldefs.HistogramDefs)),
		auditDropped: prometheus.NewDesc(
			internaldefs.AuditDroppedName,
			"Audit events dropped on a full dispatcher queue.",
			nil, nil,
		),
	}
	for _, def := range internaldefs.CounterDefs {
		e.counters = append(e.counters, counterDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	for _, def := range internaldefs.HistogramDefs {
		e.histograms = append(e.histograms, histogramDesc{
			id:   def.ID,
			desc: prometheus.NewDesc(def.Name, def.Help, nil, nil),
		})
	}
	return e
}

func (e *PrometheusExporter) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range e.counters {
		ch <- c.desc
	}
	for _, h := range e.histograms {
		ch <- h.desc
	}
	ch <- e.auditDropped
}

// Collect emits only the series present in the snapshot, so a manager
// with metrics disabled exports the audit drop counter alone.
func (e *PrometheusExporter) Collect(ch chan<- prometheus.Metric) {
	if e.source == nil {
		return
	}
	snapshot := e.source.MetricsSnapshot()

	for _, c := range e.counters {
		v, ok := snapshot.Counters[c.id]
		if !ok {
			continue
		}
		ch <- prometheus.MustNewConstMetric(c.desc, prometheus.CounterValue, float64(v))
	}

	for _, h := range e.histograms {
		raw, ok := snapshot.Histograms[h.id]
		if !ok {
			continue
		}
		cumulative := internaldefs.CumulativeBuckets(internaldefs.NormalizeBuckets(raw))
		buckets := make(map[float64]uint64, len(internaldefs.HistogramUpperBounds))
		for i, bound := range internaldefs.HistogramUpperBounds {
			buckets[bound] = cumulative[i]
		}
		sum := snapshot.HistogramSums[h.id].Seconds()
		ch <- prometheus.MustNewConstHistogram(h.desc, cumulative[len(cumulative)-1], sum, buckets)
	}

	ch <- prometheus.MustNewConstMetric(e.auditDropped, prometheus.CounterValue, float64(e.source.AuditDropped()))
}

// Register adds the exporter to reg.
func (e *PrometheusExporter) Register(reg prometheus.Registerer) error {
	return reg.Register(e)
}

// Handler serves the exporter from a private registry. It never touches
// the global default registry.
func (e *PrometheusExporter) Handler() http.Handler {
	if e.registry == nil {
		e.registry = prometheus.NewRegistry()
		e.registry.MustRegister(e)
	}
	return promhttp.HandlerFor(e.registry, promhttp.HandlerOpts{})
}
