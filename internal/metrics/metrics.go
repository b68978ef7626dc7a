// Package metrics provides Prometheus metrics for the report bot.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics. A nil *Metrics is valid and records nothing.
type Metrics struct {
	ReportsGenerated       *prometheus.CounterVec
	ReportFailures         *prometheus.CounterVec
	CompileDuration        prometheus.Histogram
	NormalizationFallbacks prometheus.Counter
	UploadFailures         prometheus.Counter
	QuotaDenied            prometheus.Counter
	SessionEvents          *prometheus.CounterVec
	UpdatesDropped         prometheus.Counter
}

// New creates and registers all metrics on reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		ReportsGenerated: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldreport_reports_generated_total",
				Help: "Total number of reports compiled and delivered",
			},
			[]string{"format"},
		),
		ReportFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldreport_report_failures_total",
				Help: "Total number of report requests that did not produce a report",
			},
			[]string{"reason"},
		),
		CompileDuration: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "fieldreport_compile_duration_seconds",
			Help:    "Duration of report compilations in seconds",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 30, 60},
		}),
		NormalizationFallbacks: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldreport_normalization_fallbacks_total",
			Help: "Notes that kept their raw text because cleaning failed",
		}),
		UploadFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldreport_upload_failures_total",
			Help: "Rendered reports that could not be stored",
		}),
		QuotaDenied: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldreport_quota_denied_total",
			Help: "Report requests rejected by the daily quota",
		}),
		SessionEvents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fieldreport_session_events_total",
				Help: "Notes, photos and clears applied to sessions",
			},
			[]string{"kind"},
		),
		UpdatesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "fieldreport_updates_dropped_total",
			Help: "Updates refused because the dispatcher was stopping",
		}),
	}
}

func (m *Metrics) ObserveReport(format string, started time.Time) {
	if m == nil {
		return
	}
	m.ReportsGenerated.WithLabelValues(format).Inc()
	m.CompileDuration.Observe(time.Since(started).Seconds())
}

func (m *Metrics) ReportFailed(reason string) {
	if m == nil {
		return
	}
	m.ReportFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) NormalizationFellBack() {
	if m == nil {
		return
	}
	m.NormalizationFallbacks.Inc()
}

func (m *Metrics) UploadFailed() {
	if m == nil {
		return
	}
	m.UploadFailures.Inc()
}

func (m *Metrics) QuotaRejected() {
	if m == nil {
		return
	}
	m.QuotaDenied.Inc()
}

func (m *Metrics) SessionEvent(kind string) {
	if m == nil {
		return
	}
	m.SessionEvents.WithLabelValues(kind).Inc()
}

func (m *Metrics) UpdateDropped() {
	if m == nil {
		return
	}
	m.UpdatesDropped.Inc()
}
