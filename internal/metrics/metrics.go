package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder receives aggregation and loading measurements.
type Recorder interface {
	ObserveAggregation(operation string, duration time.Duration, err error)
	CacheLookup(operation string, hit bool)
	RowsLoaded(table string, loaded, dropped int)
}

type Prometheus struct {
	registry            *prometheus.Registry
	aggregationsTotal   *prometheus.CounterVec
	aggregationDuration *prometheus.HistogramVec
	cacheLookups        *prometheus.CounterVec
	rowsLoaded          *prometheus.GaugeVec
	rowsDropped         *prometheus.GaugeVec
}

// NewPrometheus registers the collectors on a private registry so several
// instances can coexist in one process.
func NewPrometheus() *Prometheus {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Prometheus{
		registry: reg,
		aggregationsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_aggregations_total",
				Help: "Total number of aggregation passes",
			},
			[]string{"operation", "status"},
		),
		aggregationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "sales_aggregation_duration_milliseconds",
				Help:    "Aggregation pass duration in milliseconds",
				Buckets: prometheus.ExponentialBuckets(0.25, 2, 14),
			},
			[]string{"operation"},
		),
		cacheLookups: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "sales_aggregation_cache_lookups_total",
				Help: "Aggregation cache lookups by result",
			},
			[]string{"operation", "result"},
		),
		rowsLoaded: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sales_rows_loaded",
				Help: "Rows in the currently loaded input tables",
			},
			[]string{"table"},
		),
		rowsDropped: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "sales_rows_unparseable",
				Help: "Rows of the current input tables with at least one unparseable cell",
			},
			[]string{"table"},
		),
	}
}

func (p *Prometheus) ObserveAggregation(operation string, duration time.Duration, err error) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	p.aggregationsTotal.WithLabelValues(operation, status).Inc()
	p.aggregationDuration.WithLabelValues(operation).Observe(float64(duration.Microseconds()) / 1000)
}

func (p *Prometheus) CacheLookup(operation string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	p.cacheLookups.WithLabelValues(operation, result).Inc()
}

func (p *Prometheus) RowsLoaded(table string, loaded, dropped int) {
	p.rowsLoaded.WithLabelValues(table).Set(float64(loaded))
	p.rowsDropped.WithLabelValues(table).Set(float64(dropped))
}

// Handler serves the registry in the Prometheus exposition format.
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}

func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Noop discards every measurement.
type Noop struct{}

func (Noop) ObserveAggregation(string, time.Duration, error) {}
func (Noop) CacheLookup(string, bool)                        {}
func (Noop) RowsLoaded(string, int, int)                     {}
