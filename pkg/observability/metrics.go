package observability

import (
	"context"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/aretw0/intake/pkg/domain"
)

// Metrics counts wizard activity.
type Metrics struct {
	StepViews          *prometheus.CounterVec
	Transitions        *prometheus.CounterVec
	ValidationBlocked  *prometheus.CounterVec
	Submissions        *prometheus.CounterVec
	SubmissionDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		StepViews: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_step_views_total",
				Help: "Total number of step mounts",
			},
			[]string{"step"},
		),
		Transitions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_transitions_total",
				Help: "Total number of step transitions",
			},
			[]string{"step", "direction"},
		),
		ValidationBlocked: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_validation_blocked_total",
				Help: "Forward attempts blocked by validation",
			},
			[]string{"step"},
		),
		Submissions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "intake_submissions_total",
				Help: "Submission attempts by outcome",
			},
			[]string{"outcome"},
		),
		SubmissionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "intake_submission_duration_seconds",
				Help:    "Duration of submission requests",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
	if reg != nil {
		reg.MustRegister(m.StepViews, m.Transitions, m.ValidationBlocked, m.Submissions, m.SubmissionDuration)
	}
	return m
}

// Hooks returns lifecycle hooks recording into m.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(_ context.Context, e *domain.StepEvent) {
			m.StepViews.WithLabelValues(string(e.StepID)).Inc()
		},
		OnStepLeave: func(_ context.Context, e *domain.StepEvent) {
			m.Transitions.WithLabelValues(string(e.StepID), string(e.Direction.Kind)).Inc()
		},
		OnValidation: func(_ context.Context, e *domain.ValidationEvent) {
			if !e.Valid {
				m.ValidationBlocked.WithLabelValues(string(e.StepID)).Inc()
			}
		},
		OnSubmit: func(_ context.Context, e *domain.SubmitEvent) {
			outcome := "success"
			if e.Err != nil {
				outcome = "failure"
			}
			m.Submissions.WithLabelValues(outcome).Inc()
			m.SubmissionDuration.Observe(e.Duration.Seconds())
		},
	}
}

// LogHooks returns lifecycle hooks writing one structured line per event.
func LogHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnStepEnter: func(ctx context.Context, e *domain.StepEvent) {
			logger.DebugContext(ctx, "step_enter", "device", e.DeviceID, "step", e.StepID, "route", e.Route)
		},
		OnStepLeave: func(ctx context.Context, e *domain.StepEvent) {
			logger.InfoContext(ctx, "step_leave",
				"device", e.DeviceID,
				"step", e.StepID,
				"direction", e.Direction.String(),
				"target", e.Target,
			)
		},
		OnValidation: func(ctx context.Context, e *domain.ValidationEvent) {
			if e.Valid {
				return
			}
			logger.InfoContext(ctx, "validation_blocked", "device", e.DeviceID, "step", e.StepID, "fields", e.Invalid)
		},
		OnSubmit: func(ctx context.Context, e *domain.SubmitEvent) {
			if e.Err != nil {
				logger.WarnContext(ctx, "submit", "device", e.DeviceID, "duration", e.Duration, "err", e.Err)
				return
			}
			logger.InfoContext(ctx, "submit", "device", e.DeviceID, "submission_id", e.SubmissionID, "duration", e.Duration)
		},
	}
}
