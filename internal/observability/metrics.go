package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "itsm"

// Job outcome labels.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the service's Prometheus collectors.
type Metrics struct {
	requests       *prometheus.CounterVec
	requestLatency *prometheus.HistogramVec
	errors         *prometheus.CounterVec
	jobRuns        *prometheus.CounterVec
	slaBreaches    *prometheus.CounterVec
	escalations    *prometheus.CounterVec
}

// NewMetrics builds collectors and registers them on reg. Collectors already
// registered are tolerated so tests can share the default registry.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests partitioned by route, method and status.",
		}, []string{"path", "method", "status"}),
		requestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_seconds",
			Help:      "HTTP request latency in seconds.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"path", "method"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_errors_total",
			Help:      "HTTP errors partitioned by domain error code.",
		}, []string{"path", "method", "code"}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "job_runs_total",
			Help:      "Batch job runs partitioned by job and outcome.",
		}, []string{"job", "outcome"}),
		slaBreaches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sla_breaches_total",
			Help:      "SLA breach alerts emitted, partitioned by priority.",
		}, []string{"priority"}),
		escalations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "escalations_total",
			Help:      "Escalation notifications dispatched, partitioned by target kind.",
		}, []string{"kind"}),
	}

	collectors := []prometheus.Collector{m.requests, m.requestLatency, m.errors, m.jobRuns, m.slaBreaches, m.escalations}
	for i, c := range collectors {
		if err := reg.Register(c); err != nil {
			are, ok := err.(prometheus.AlreadyRegisteredError)
			if !ok {
				return nil, err
			}
			collectors[i] = are.ExistingCollector
		}
	}
	m.requests = collectors[0].(*prometheus.CounterVec)
	m.requestLatency = collectors[1].(*prometheus.HistogramVec)
	m.errors = collectors[2].(*prometheus.CounterVec)
	m.jobRuns = collectors[3].(*prometheus.CounterVec)
	m.slaBreaches = collectors[4].(*prometheus.CounterVec)
	m.escalations = collectors[5].(*prometheus.CounterVec)
	return m, nil
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(path, method, strconv.Itoa(status)).Inc()
	if duration < 0 {
		duration = 0
	}
	m.requestLatency.WithLabelValues(path, method).Observe(duration.Seconds())
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.errors.WithLabelValues(path, method, code).Inc()
}

// RecordJob counts a batch job run.
func (m *Metrics) RecordJob(job string, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.jobRuns.WithLabelValues(job, outcome).Inc()
}

// RecordBreach counts an SLA breach alert.
func (m *Metrics) RecordBreach(priority string) {
	if m == nil {
		return
	}
	m.slaBreaches.WithLabelValues(priority).Inc()
}

// RecordEscalation counts a dispatched escalation.
func (m *Metrics) RecordEscalation(kind string) {
	if m == nil {
		return
	}
	m.escalations.WithLabelValues(kind).Inc()
}
