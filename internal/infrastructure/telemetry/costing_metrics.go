package telemetry

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// Commit outcomes used as the result label of erp_costing_commits_total
const (
	CommitResultCommitted = "committed"
	CommitResultSkipped   = "skipped"
	CommitResultDuplicate = "duplicate"
	CommitResultContended = "contended"
	CommitResultFailed    = "failed"
)

// CostingMetrics records costing engine activity.
// A nil *CostingMetrics is valid and records nothing.
type CostingMetrics struct {
	logger *zap.Logger

	valuations     *Counter
	commits        *Counter
	shortfalls     *Counter
	receipts       *Counter
	commitDuration *Histogram
}

// CostingMetricsConfig holds configuration for costing metrics
type CostingMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// NewCostingMetrics creates the costing instruments on the given meter
func NewCostingMetrics(cfg CostingMetricsConfig) (*CostingMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &CostingMetrics{logger: logger}
	var err error

	m.valuations, err = NewCounter(cfg.Meter,
		"erp_costing_valuations_total",
		"Total number of cost valuations",
		"{valuations}",
	)
	if err != nil {
		return nil, err
	}

	m.commits, err = NewCounter(cfg.Meter,
		"erp_costing_commits_total",
		"Total number of commit attempts by outcome",
		"{commits}",
	)
	if err != nil {
		return nil, err
	}

	m.shortfalls, err = NewCounter(cfg.Meter,
		"erp_costing_shortfalls_total",
		"Total number of valuations that could not be fully covered by batches",
		"{valuations}",
	)
	if err != nil {
		return nil, err
	}

	m.receipts, err = NewCounter(cfg.Meter,
		"erp_costing_receipts_total",
		"Total number of batch receipts",
		"{receipts}",
	)
	if err != nil {
		return nil, err
	}

	m.commitDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "erp_costing_commit_duration_seconds",
		Description: "Duration of batch decrement commits including lock waits",
		Unit:        "s",
		Boundaries:  []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
	})
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordValuation counts a valuation for the given method
func (m *CostingMetrics) RecordValuation(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.valuations.Inc(ctx, AttrMethod.String(method))
}

// RecordShortfall counts a valuation that left a shortfall
func (m *CostingMetrics) RecordShortfall(ctx context.Context, method string) {
	if m == nil {
		return
	}
	m.shortfalls.Inc(ctx, AttrMethod.String(method))
}

// RecordCommit counts a commit attempt and its duration
func (m *CostingMetrics) RecordCommit(ctx context.Context, result string, d time.Duration) {
	if m == nil {
		return
	}
	m.commits.Inc(ctx, AttrResult.String(result))
	m.commitDuration.RecordDuration(ctx, d, AttrResult.String(result))
	if result == CommitResultContended {
		m.logger.Debug("Costing commit contended", zap.Duration("duration", d))
	}
}

// RecordReceipt counts a batch receipt
func (m *CostingMetrics) RecordReceipt(ctx context.Context) {
	if m == nil {
		return
	}
	m.receipts.Inc(ctx)
}
