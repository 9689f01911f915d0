package scraper

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the fetch layer and pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	RequestsTotal    *prometheus.CounterVec
	RequestDuration  prometheus.Histogram
	RetriesTotal     prometheus.Counter
	ErrorsTotal      *prometheus.CounterVec
	DuplicatesTotal  prometheus.Counter
	RecordsTotal     *prometheus.CounterVec
	SkippedTotal     *prometheus.CounterVec
	MembersProcessed *prometheus.CounterVec
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	requests := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_requests_total",
			Help: "Total HTTP requests issued, by outcome.",
		},
		[]string{"phase"},
	)
	requestDuration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "attendance_request_duration_seconds",
			Help:    "HTTP request latency including pacing delay.",
			Buckets: prometheus.DefBuckets,
		},
	)
	retries := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_retries_total",
			Help: "Total number of retry attempts scheduled.",
		},
	)
	errorsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_errors_total",
			Help: "Total number of fetch errors by type.",
		},
		[]string{"error_type"},
	)
	duplicates := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "attendance_roster_duplicates_total",
			Help: "Directory entries dropped because their member id was already seen.",
		},
	)
	records := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_records_parsed_total",
			Help: "Records extracted from markup, by parser.",
		},
		[]string{"parser"},
	)
	skipped := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_skipped_fragments_total",
			Help: "Malformed rows or blocks dropped, by parser.",
		},
		[]string{"parser"},
	)
	members := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "attendance_members_processed_total",
			Help: "Members whose attendance collection finished, by outcome.",
		},
		[]string{"outcome"},
	)

	registry.MustRegister(requests, requestDuration, retries, errorsTotal, duplicates, records, skipped, members)

	return &Metrics{
		Registry:         registry,
		RequestsTotal:    requests,
		RequestDuration:  requestDuration,
		RetriesTotal:     retries,
		ErrorsTotal:      errorsTotal,
		DuplicatesTotal:  duplicates,
		RecordsTotal:     records,
		SkippedTotal:     skipped,
		MembersProcessed: members,
	}
}

// IncRequest increments the requests total counter.
func (m *Metrics) IncRequest(phase string) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(phase).Inc()
}

// ObserveDuration records an HTTP request duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.RequestDuration.Observe(d.Seconds())
}

// IncRetries increments the retries counter.
func (m *Metrics) IncRetries() {
	if m == nil {
		return
	}
	m.RetriesTotal.Inc()
}

// IncError increments the errors counter for a type label.
func (m *Metrics) IncError(errorType string) {
	if m == nil {
		return
	}
	m.ErrorsTotal.WithLabelValues(errorType).Inc()
}

// IncDuplicate increments the roster duplicate counter.
func (m *Metrics) IncDuplicate() {
	if m == nil {
		return
	}
	m.DuplicatesTotal.Inc()
}

// AddParsed records how many records and skipped fragments a parser produced.
func (m *Metrics) AddParsed(parser string, records, skipped int) {
	if m == nil {
		return
	}
	m.RecordsTotal.WithLabelValues(parser).Add(float64(records))
	m.SkippedTotal.WithLabelValues(parser).Add(float64(skipped))
}

// IncMember counts a member whose collection finished with outcome.
func (m *Metrics) IncMember(outcome string) {
	if m == nil {
		return
	}
	m.MembersProcessed.WithLabelValues(outcome).Inc()
}
