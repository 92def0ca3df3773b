// Package metrics exposes Prometheus collectors for analysis passes and the
// HTTP API.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "ekaya_quality"

// Analysis outcomes.
const (
	OutcomeSuccess   = "success"
	OutcomeError     = "error"
	OutcomeCancelled = "cancelled"
)

// Table outcomes.
const (
	TableAnalyzed = "analyzed"
	TableFailed   = "failed"
)

// Recorder holds the collectors. A nil *Recorder is valid and records nothing,
// so components can take one without requiring it.
type Recorder struct {
	analyses        *prometheus.CounterVec
	analysisSeconds *prometheus.HistogramVec
	inFlight        prometheus.Gauge
	tables          *prometheus.CounterVec
	tableSeconds    *prometheus.HistogramVec
	grades          *prometheus.CounterVec
	httpRequests    *prometheus.CounterVec
	httpSeconds     *prometheus.HistogramVec
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) (*Recorder, error) {
	r := &Recorder{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "analyses_total",
			Help:      "Analysis passes by datasource type and outcome.",
		}, []string{"datasource_type", "outcome"}),
		analysisSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "analysis_duration_seconds",
			Help:      "Wall time of one analysis pass.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 30, 60, 120, 300},
		}, []string{"datasource_type"}),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "analyses_in_flight",
			Help:      "Analysis passes currently running.",
		}),
		tables: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tables_total",
			Help:      "Tables processed by datasource type and outcome.",
		}, []string{"datasource_type", "outcome"}),
		tableSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "table_duration_seconds",
			Help:      "Time to introspect, collect and analyze one table.",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		}, []string{"datasource_type"}),
		grades: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "table_grades_total",
			Help:      "Grades assigned to tables.",
		}, []string{"grade"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		}, []string{"method", "route", "status"}),
		httpSeconds: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route pattern.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}

	for _, c := range []prometheus.Collector{
		r.analyses, r.analysisSeconds, r.inFlight, r.tables,
		r.tableSeconds, r.grades, r.httpRequests, r.httpSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// AnalysisStarted marks a pass as running and returns the func that ends it.
func (r *Recorder) AnalysisStarted() func() {
	if r == nil {
		return func() {}
	}
	r.inFlight.Inc()
	return r.inFlight.Dec
}

// ObserveAnalysis records a finished pass.
func (r *Recorder) ObserveAnalysis(dsType, outcome string, d time.Duration) {
	if r == nil {
		return
	}
	r.analyses.WithLabelValues(dsType, outcome).Inc()
	r.analysisSeconds.WithLabelValues(dsType).Observe(d.Seconds())
}

// ObserveTable records one table's report. Failed tables carry grade N/A.
func (r *Recorder) ObserveTable(dsType, outcome, grade string, d time.Duration) {
	if r == nil {
		return
	}
	r.tables.WithLabelValues(dsType, outcome).Inc()
	r.tableSeconds.WithLabelValues(dsType).Observe(d.Seconds())
	r.grades.WithLabelValues(grade).Inc()
}

// ObserveRequest records one HTTP request. route is the matched mux pattern.
func (r *Recorder) ObserveRequest(method, route string, status int, d time.Duration) {
	if r == nil {
		return
	}
	r.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	r.httpSeconds.WithLabelValues(method, route).Observe(d.Seconds())
}
