package scheduler

import (
	"context"
	"sync"
	"time"

	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"go.uber.org/zap"
)

// AlertEvaluationService is the slice of AlertService the evaluator drives
type AlertEvaluationService interface {
	Evaluate(ctx context.Context, now time.Time) (*appsettlement.EvaluationSummary, error)
}

// AlertEvaluator periodically runs the alert evaluation pass over all
// schedules. Evaluation is idempotent, so overlapping or repeated runs are
// harmless.
type AlertEvaluator struct {
	service   AlertEvaluationService
	logger    *zap.Logger
	config    AlertEvaluatorConfig
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// AlertEvaluatorConfig holds configuration for the alert evaluation loop
type AlertEvaluatorConfig struct {
	// Enabled determines if the evaluator is active
	Enabled bool

	// Interval is how often the evaluation pass runs
	Interval time.Duration

	// PassTimeout is the maximum time for a single evaluation pass
	PassTimeout time.Duration
}

// DefaultAlertEvaluatorConfig returns default configuration
func DefaultAlertEvaluatorConfig() AlertEvaluatorConfig {
	return AlertEvaluatorConfig{
		Enabled:     true,
		Interval:    30 * time.Second,
		PassTimeout: 2 * time.Minute,
	}
}

// NewAlertEvaluator creates a new alert evaluator
func NewAlertEvaluator(service AlertEvaluationService, logger *zap.Logger, config AlertEvaluatorConfig) *AlertEvaluator {
	if config.Interval <= 0 {
		config.Interval = 30 * time.Second
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = 2 * time.Minute
	}
	return &AlertEvaluator{
		service: service,
		logger:  logger,
		config:  config,
	}
}

// Start starts the evaluation loop
func (e *AlertEvaluator) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.isRunning {
		e.mu.Unlock()
		return nil
	}
	if !e.config.Enabled {
		e.mu.Unlock()
		e.logger.Info("Alert evaluator is disabled")
		return nil
	}
	e.isRunning = true
	e.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	e.wg.Add(1)
	go e.run(ctx)

	e.logger.Info("Alert evaluator started",
		zap.Duration("interval", e.config.Interval),
	)

	return nil
}

// Stop gracefully stops the evaluation loop
func (e *AlertEvaluator) Stop(ctx context.Context) error {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return nil
	}
	e.isRunning = false
	e.mu.Unlock()

	if e.cancel != nil {
		e.cancel()
	}

	done := make(chan struct{})
	go func() {
		e.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		e.logger.Info("Alert evaluator stopped gracefully")
		return nil
	case <-ctx.Done():
		e.logger.Warn("Alert evaluator stop timed out")
		return ctx.Err()
	}
}

// TriggerImmediateEvaluation runs an evaluation pass outside the regular
// interval
func (e *AlertEvaluator) TriggerImmediateEvaluation(ctx context.Context) error {
	e.mu.Lock()
	if !e.isRunning {
		e.mu.Unlock()
		return ErrWorkerPoolNotRunning
	}
	e.wg.Add(1)
	e.mu.Unlock()

	go func() {
		defer e.wg.Done()
		e.evaluate(ctx)
	}()

	return nil
}

// IsRunning returns whether the evaluator is running
func (e *AlertEvaluator) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.isRunning
}

// run drives the ticker loop
func (e *AlertEvaluator) run(ctx context.Context) {
	defer e.wg.Done()

	ticker := time.NewTicker(e.config.Interval)
	defer ticker.Stop()

	// One pass immediately on startup so restarts do not delay alerting
	e.evaluate(ctx)

	for {
		select {
		case <-ctx.Done():
			e.logger.Debug("Alert evaluation loop stopping")
			return
		case <-ticker.C:
			e.evaluate(ctx)
		}
	}
}

// evaluate runs a single evaluation pass
func (e *AlertEvaluator) evaluate(ctx context.Context) {
	passCtx, cancel := context.WithTimeout(ctx, e.config.PassTimeout)
	defer cancel()

	startTime := time.Now()
	summary, err := e.service.Evaluate(passCtx, time.Now().UTC())
	duration := time.Since(startTime)

	if err != nil {
		e.logger.Error("Alert evaluation pass failed",
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	e.logger.Info("Alert evaluation pass completed",
		zap.Duration("duration", duration),
		zap.Int("schedules_evaluated", summary.SchedulesEvaluated),
		zap.Int("alerts_raised", summary.AlertsRaised),
		zap.Int("alerts_refreshed", summary.AlertsRefreshed),
		zap.Int("marked_overdue", summary.MarkedOverdue),
	)
}
