package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Outcome label values.
const (
	OutcomeOK       = "ok"
	OutcomeFallback = "fallback"
	OutcomeError    = "error"
)

var (
	once sync.Once

	// StageOutcomeTotal counts completion stages by result (ok, fallback, error).
	StageOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "stage_outcome_total",
		Help:      "Total number of completion stage runs, labeled by stage and result.",
	}, []string{"stage", "result"})

	// StageDurationSeconds is the time spent waiting on the completion service per stage.
	StageDurationSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "stage_duration_seconds",
		Help:      "Time spent in a single completion call, labeled by stage.",
		Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"stage"})

	// ReportsTotal counts submissions by final result.
	ReportsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "reports_total",
		Help:      "Total number of complaint submissions processed, labeled by result.",
	}, []string{"result"})

	// ReportDurationSeconds is end-to-end time per submission.
	ReportDurationSeconds = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "report_duration_seconds",
		Help:      "End-to-end time to process a complaint submission.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	})

	// ReportsInFlight is the number of submissions currently in the pipeline.
	ReportsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "reports_in_flight",
		Help:      "Current number of complaint submissions being processed.",
	})

	// DispatchTotal counts email deliveries by department and result.
	DispatchTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityguardian",
		Subsystem: "dispatch",
		Name:      "email_total",
		Help:      "Total number of complaint emails sent, labeled by department and result.",
	}, []string{"department", "result"})

	// NotificationTotal counts workflow notifications by sink and result.
	NotificationTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "cityguardian",
		Subsystem: "dispatch",
		Name:      "notification_total",
		Help:      "Total number of workflow notifications, labeled by sink and result.",
	}, []string{"sink", "result"})

	// VerificationRejectedTotal counts decisions the verification stage did not approve.
	VerificationRejectedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "cityguardian",
		Subsystem: "pipeline",
		Name:      "verification_rejected_total",
		Help:      "Total number of routing decisions not approved by verification.",
	})

	// LastDispatchSeconds is a unix timestamp (seconds) of the last successful dispatch.
	LastDispatchSeconds = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "cityguardian",
		Subsystem: "dispatch",
		Name:      "last_success_timestamp_seconds",
		Help:      "Unix timestamp (seconds) of the last successfully dispatched complaint email.",
	})
)

// Register registers service metrics with the default Prometheus registry.
// Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(
			StageOutcomeTotal,
			StageDurationSeconds,
			ReportsTotal,
			ReportDurationSeconds,
			ReportsInFlight,
			DispatchTotal,
			NotificationTotal,
			VerificationRejectedTotal,
			LastDispatchSeconds,
		)
	})
}

func NowUnixSeconds() float64 {
	return float64(time.Now().Unix())
}
