// internal/common/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_http_requests_total",
			Help: "Total number of HTTP requests by route and status",
		},
		[]string{"method", "route", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "wizard_http_request_duration_seconds",
			Help: "Duration of HTTP request handling in seconds",
		},
		[]string{"method", "route"},
	)

	DocumentsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_documents_generated_total",
			Help: "Total number of generated documents",
		},
		[]string{"claim_type", "format"},
	)

	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_uploads_total",
			Help: "Total number of submission uploads by kind and result",
		},
		[]string{"kind", "result"},
	)

	RemindersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_reminders_sent_total",
			Help: "Total number of session reminders sent",
		},
		[]string{"channel", "reminder_number"},
	)

	EmailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wizard_emails_sent_total",
			Help: "Total number of emails sent by kind and result",
		},
		[]string{"kind", "result"},
	)

	ActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "wizard_http_requests_active",
			Help: "Number of in-flight HTTP requests",
		},
	)
)
