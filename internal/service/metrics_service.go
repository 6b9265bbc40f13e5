package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exposes the application's Prometheus instruments. HTTP-level
// metrics live in the middleware; these counters track domain events.
type Metrics struct {
	submissions *prometheus.CounterVec
	decisions   *prometheus.CounterVec
	logins      *prometheus.CounterVec
	exports     *prometheus.CounterVec
}

// NewMetrics registers the domain counters on the provided registerer.
// Pass prometheus.DefaultRegisterer in production.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_submissions_total",
			Help: "Daily submissions stored, labelled by resulting status.",
		}, []string{"status"}),
		decisions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_decisions_total",
			Help: "Staff decisions on submissions.",
		}, []string{"action"}),
		logins: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_logins_total",
			Help: "Successful logins by role.",
		}, []string{"role"}),
		exports: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "camp_export_jobs_total",
			Help: "Export jobs by format and terminal status.",
		}, []string{"format", "status"}),
	}
}

// SubmissionRecorded counts a stored submission.
func (m *Metrics) SubmissionRecorded(status string) {
	m.submissions.WithLabelValues(status).Inc()
}

// DecisionRecorded counts an approve, reject or edit.
func (m *Metrics) DecisionRecorded(action string) {
	m.decisions.WithLabelValues(action).Inc()
}

// LoginRecorded counts a successful login.
func (m *Metrics) LoginRecorded(role string) {
	m.logins.WithLabelValues(role).Inc()
}

// ExportRecorded counts a finished export job.
func (m *Metrics) ExportRecorded(format, status string) {
	m.exports.WithLabelValues(format, status).Inc()
}
