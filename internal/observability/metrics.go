package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	datasetRowsGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cancerdash",
		Subsystem: "dataset",
		Name:      "rows",
		Help:      "Number of observations in the currently served dataset snapshot.",
	})
	datasetLoadedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cancerdash",
		Subsystem: "dataset",
		Name:      "loaded_timestamp_seconds",
		Help:      "Unix timestamp of the most recent dataset snapshot load.",
	})
	seriesQueryCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cancerdash",
		Subsystem: "api",
		Name:      "series_queries_total",
		Help:      "Series queries served, labelled by measure.",
	}, []string{"measure"})
	reloadCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cancerdash",
		Subsystem: "dataset",
		Name:      "reloads_total",
		Help:      "Administrative dataset reloads performed.",
	})
)

func init() {
	prometheus.MustRegister(datasetRowsGauge, datasetLoadedGauge, seriesQueryCounter, reloadCounter)
}

// RecordDatasetLoaded updates the snapshot gauges.
func RecordDatasetLoaded(rows int, ts time.Time) {
	datasetRowsGauge.Set(float64(rows))
	if !ts.IsZero() {
		datasetLoadedGauge.Set(float64(ts.Unix()))
	}
}

// RecordSeriesQuery counts a served series query.
func RecordSeriesQuery(measure string) {
	seriesQueryCounter.WithLabelValues(measure).Inc()
}

// RecordReload counts an administrative reload.
func RecordReload() {
	reloadCounter.Inc()
}
