// ABOUTME: Prometheus metrics for the web host: HTTP requests, backend submissions, controller events and sessions.
// ABOUTME: InstrumentedSubmitter wraps any workflow.Submitter to count outcomes by error kind and time backend calls.
package web

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/2389-research/modelselector/visualizer"
	"github.com/2389-research/modelselector/workflow"
)

// OutcomeOK labels a successful submission; failures use workflow.Kind.
const OutcomeOK = "ok"

// Metrics holds every collector the web host exports.
type Metrics struct {
	Requests        *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	Submissions     *prometheus.CounterVec
	BackendDuration prometheus.Histogram
	Events          *prometheus.CounterVec
	Sessions        prometheus.GaugeFunc
}

// NewMetrics creates the collectors and registers them with reg. sessions
// reports the live session count when scraped.
func NewMetrics(reg prometheus.Registerer, sessions func() int) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelselector_http_requests_total",
				Help: "HTTP requests served, by method, route and status",
			},
			[]string{"method", "route", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "modelselector_http_request_duration_seconds",
				Help:    "Duration of HTTP requests, by route",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelselector_submissions_total",
				Help: "Backend submissions, by outcome (ok, transport, api, decode, unknown)",
			},
			[]string{"outcome"},
		),
		BackendDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "modelselector_backend_duration_seconds",
				Help:    "Duration of backend /chat calls",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Events: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "modelselector_controller_events_total",
				Help: "Visualizer controller events, by type",
			},
			[]string{"type"},
		),
		Sessions: prometheus.NewGaugeFunc(
			prometheus.GaugeOpts{
				Name: "modelselector_sessions",
				Help: "Active visitor sessions",
			},
			func() float64 { return float64(sessions()) },
		),
	}
	reg.MustRegister(m.Requests, m.RequestDuration, m.Submissions, m.BackendDuration, m.Events, m.Sessions)
	return m
}

// ObserveEvent counts a controller event.
func (m *Metrics) ObserveEvent(evt visualizer.Event) {
	m.Events.WithLabelValues(string(evt.Type)).Inc()
}

// InstrumentedSubmitter records metrics around another Submitter.
type InstrumentedSubmitter struct {
	next    workflow.Submitter
	metrics *Metrics
}

// Instrument wraps next so every call is counted and timed.
func (m *Metrics) Instrument(next workflow.Submitter) *InstrumentedSubmitter {
	return &InstrumentedSubmitter{next: next, metrics: m}
}

func (s *InstrumentedSubmitter) SubmitWorkflow(ctx context.Context, query, sessionID string) (*workflow.Result, error) {
	start := time.Now()
	result, err := s.next.SubmitWorkflow(ctx, query, sessionID)
	s.metrics.BackendDuration.Observe(time.Since(start).Seconds())

	outcome := OutcomeOK
	if err != nil {
		outcome = workflow.Kind(err)
	}
	s.metrics.Submissions.WithLabelValues(outcome).Inc()
	return result, err
}
