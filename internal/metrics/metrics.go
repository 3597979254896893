package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the application's prometheus collectors.
type Metrics struct {
	RowsSkipped        *prometheus.CounterVec
	AttendanceRows     *prometheus.CounterVec
	SubmissionsRefused *prometheus.CounterVec
	StoreRetries       *prometheus.CounterVec
	FeesRecorded       *prometheus.CounterVec
	RateLimited        prometheus.Counter
}

// New creates the collectors and registers them with reg. A nil reg
// leaves them unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RowsSkipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "rows_skipped_total",
			Help:      "Rows excluded from a computation because a field failed to parse.",
		}, []string{"table"}),
		AttendanceRows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "attendance_rows_total",
			Help:      "Attendance rows appended, by final status.",
		}, []string{"status"}),
		SubmissionsRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "attendance_submissions_refused_total",
			Help:      "Attendance submissions rejected before append.",
		}, []string{"reason"}),
		StoreRetries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "store_retries_total",
			Help:      "Backing store reads retried after a rate-limit response.",
		}, []string{"op"}),
		FeesRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "fees_recorded_total",
			Help:      "Fee payments appended, by payment status.",
		}, []string{"status"}),
		RateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "academy",
			Name:      "http_rate_limited_total",
			Help:      "HTTP requests refused by the per-client limiter.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.RowsSkipped, m.AttendanceRows, m.SubmissionsRefused, m.StoreRetries, m.FeesRecorded, m.RateLimited)
	}
	return m
}

// Skipped records n rows of table dropped for a parse failure.
func (m *Metrics) Skipped(table string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.RowsSkipped.WithLabelValues(table).Add(float64(n))
}
