package metrics

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

var meter = otel.Meter("analysis-metrics")

// AnalysisMetrics provides metrics collection for pipeline runs
type AnalysisMetrics struct {
	runsStartedCounter     metric.Int64Counter
	runsCompletedCounter   metric.Int64Counter
	runsFailedCounter      metric.Int64Counter
	runsCancelledCounter   metric.Int64Counter
	runDurationHistogram   metric.Float64Histogram
	stageDurationHistogram metric.Float64Histogram
	runsActiveGauge        metric.Int64UpDownCounter
}

// NewAnalysisMetrics creates a new analysis metrics collector
func NewAnalysisMetrics() (*AnalysisMetrics, error) {
	runsStartedCounter, err := meter.Int64Counter(
		"justicebot.analysis.runs.started",
		metric.WithDescription("Total number of analysis runs started"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsCompletedCounter, err := meter.Int64Counter(
		"justicebot.analysis.runs.completed",
		metric.WithDescription("Total number of analysis runs completed successfully"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsFailedCounter, err := meter.Int64Counter(
		"justicebot.analysis.runs.failed",
		metric.WithDescription("Total number of analysis runs that failed"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runsCancelledCounter, err := meter.Int64Counter(
		"justicebot.analysis.runs.cancelled",
		metric.WithDescription("Total number of analysis runs cancelled by the user"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	runDurationHistogram, err := meter.Float64Histogram(
		"justicebot.analysis.run.duration",
		metric.WithDescription("Duration of full pipeline runs in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	stageDurationHistogram, err := meter.Float64Histogram(
		"justicebot.analysis.stage.duration",
		metric.WithDescription("Duration of individual stage execution in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	runsActiveGauge, err := meter.Int64UpDownCounter(
		"justicebot.analysis.runs.active",
		metric.WithDescription("Number of currently running analyses"),
		metric.WithUnit("{run}"),
	)
	if err != nil {
		return nil, err
	}

	return &AnalysisMetrics{
		runsStartedCounter:     runsStartedCounter,
		runsCompletedCounter:   runsCompletedCounter,
		runsFailedCounter:      runsFailedCounter,
		runsCancelledCounter:   runsCancelledCounter,
		runDurationHistogram:   runDurationHistogram,
		stageDurationHistogram: stageDurationHistogram,
		runsActiveGauge:        runsActiveGauge,
	}, nil
}

// RecordRunStarted records the start of a new analysis run
func (am *AnalysisMetrics) RecordRunStarted(ctx context.Context, caseType, jurisdiction string) {
	am.runsStartedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("case.type", caseType),
			attribute.String("case.jurisdiction", jurisdiction),
		),
	)
	am.runsActiveGauge.Add(ctx, 1)
}

// RecordRunCompleted records a successful run completion
func (am *AnalysisMetrics) RecordRunCompleted(ctx context.Context, caseType string, duration time.Duration) {
	am.runsCompletedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("case.type", caseType),
			attribute.String("status", "completed"),
		),
	)
	am.runDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("case.type", caseType),
			attribute.String("status", "completed"),
		),
	)
	am.runsActiveGauge.Add(ctx, -1)
}

// RecordRunFailed records a failed run together with the stage that failed
func (am *AnalysisMetrics) RecordRunFailed(ctx context.Context, caseType, stage string) {
	am.runsFailedCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("case.type", caseType),
			attribute.String("stage", stage),
			attribute.String("status", "failed"),
		),
	)
	am.runsActiveGauge.Add(ctx, -1)
}

// RecordRunCancelled records a user-cancelled run
func (am *AnalysisMetrics) RecordRunCancelled(ctx context.Context, caseType string) {
	am.runsCancelledCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("case.type", caseType),
			attribute.String("status", "cancelled"),
		),
	)
	am.runsActiveGauge.Add(ctx, -1)
}

// RecordStageDuration records how long one stage took
func (am *AnalysisMetrics) RecordStageDuration(ctx context.Context, stage string, duration time.Duration) {
	am.stageDurationHistogram.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("stage", stage),
		),
	)
}
