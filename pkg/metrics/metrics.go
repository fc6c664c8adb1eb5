package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// HistogramBuckets are millisecond latency buckets shared by the HTTP and
// provider-call histograms. Hosted checkout calls to the provider commonly
// land in the 500ms to 2s band.
var HistogramBuckets = []float64{
	10, 25, 50, 100, 200, 350, 500,
	750, 1000, 1500, 2000,
	3000, 5000, 10000, 15000,
	// provider calls are capped by stripe.timeout
	30000, 60000,
}

// Metric describes a collector to build with NewMetric.
type Metric struct {
	MetricCollector prometheus.Collector
	ID              string
	Name            string
	Description     string
	// Type is one of counter_vec, histogram_vec or summary_vec.
	Type string
	Args []string
}

// NewMetric builds the labelled collector named by m.Type under subsystem and
// stores it on m. It panics on an unknown type.
func NewMetric(m *Metric, subsystem string) prometheus.Collector {
	var metric prometheus.Collector
	switch m.Type {
	case "counter_vec":
		metric = prometheus.NewCounterVec(prometheus.CounterOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	case "histogram_vec":
		metric = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
			Buckets:   HistogramBuckets,
		}, m.Args)
	case "summary_vec":
		metric = prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Subsystem: subsystem,
			Name:      m.Name,
			Help:      m.Description,
		}, m.Args)
	default:
		panic("metrics: unsupported metric type " + m.Type)
	}
	m.MetricCollector = metric
	return metric
}
