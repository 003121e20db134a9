package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	appsettlement "github.com/pharmalink/settlement/internal/application/settlement"
	"go.uber.org/zap"
)

// TransactionResolver is the slice of TransactionService the workers drive
type TransactionResolver interface {
	Resolve(ctx context.Context, transactionID uuid.UUID) error
}

// ResolutionWorkerPool resolves in-flight transactions on a bounded worker
// pool. It implements the application's ResolutionEnqueuer so the
// transaction service can hand off freshly created transactions without
// blocking the request.
type ResolutionWorkerPool struct {
	service TransactionResolver
	logger  *zap.Logger
	config  ResolutionWorkerConfig

	jobs      chan uuid.UUID
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// ResolutionWorkerConfig holds configuration for the resolution worker pool
type ResolutionWorkerConfig struct {
	// Workers is the number of concurrent resolution workers
	Workers int

	// QueueSize bounds the number of transactions waiting for a worker
	QueueSize int

	// JobTimeout bounds each resolution attempt. A rail call that exceeds
	// it fails the transaction with a confirmation timeout.
	JobTimeout time.Duration
}

// DefaultResolutionWorkerConfig returns default configuration
func DefaultResolutionWorkerConfig() ResolutionWorkerConfig {
	return ResolutionWorkerConfig{
		Workers:    4,
		QueueSize:  256,
		JobTimeout: 30 * time.Second,
	}
}

// NewResolutionWorkerPool creates a new resolution worker pool
func NewResolutionWorkerPool(logger *zap.Logger, config ResolutionWorkerConfig) *ResolutionWorkerPool {
	if config.Workers <= 0 {
		config.Workers = 4
	}
	if config.QueueSize <= 0 {
		config.QueueSize = 256
	}
	if config.JobTimeout <= 0 {
		config.JobTimeout = 30 * time.Second
	}
	return &ResolutionWorkerPool{
		logger: logger,
		config: config,
		jobs:   make(chan uuid.UUID, config.QueueSize),
	}
}

// Bind attaches the transaction service the workers resolve through. The
// pool and the service reference each other, so binding happens after both
// are constructed.
func (p *ResolutionWorkerPool) Bind(service TransactionResolver) {
	p.service = service
}

// Start starts the worker pool
func (p *ResolutionWorkerPool) Start(ctx context.Context) error {
	p.mu.Lock()
	if p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = true
	p.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	p.cancel = cancel

	for i := 0; i < p.config.Workers; i++ {
		p.wg.Add(1)
		go p.worker(ctx, i)
	}

	p.logger.Info("Resolution worker pool started",
		zap.Int("workers", p.config.Workers),
		zap.Duration("job_timeout", p.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the worker pool
func (p *ResolutionWorkerPool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return nil
	}
	p.isRunning = false
	p.mu.Unlock()

	// The jobs channel stays open: a request racing this shutdown may
	// still be sending on it, and workers exit through ctx anyway.
	if p.cancel != nil {
		p.cancel()
	}

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Info("Resolution worker pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn("Resolution worker pool stop timed out")
		return ctx.Err()
	}
}

// Enqueue submits a transaction for background resolution
func (p *ResolutionWorkerPool) Enqueue(transactionID uuid.UUID) error {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		return ErrWorkerPoolNotRunning
	}
	p.mu.Unlock()

	select {
	case p.jobs <- transactionID:
		p.logger.Debug("Transaction queued for resolution",
			zap.String("transaction_id", transactionID.String()),
		)
		return nil
	default:
		return ErrJobQueueFull
	}
}

// IsRunning returns whether the pool is running
func (p *ResolutionWorkerPool) IsRunning() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.isRunning
}

// worker processes transactions from the queue
func (p *ResolutionWorkerPool) worker(ctx context.Context, workerID int) {
	defer p.wg.Done()

	p.logger.Debug("Resolution worker started", zap.Int("worker_id", workerID))

	for {
		select {
		case <-ctx.Done():
			p.logger.Debug("Resolution worker stopping", zap.Int("worker_id", workerID))
			return
		case transactionID := <-p.jobs:
			p.resolve(ctx, transactionID, workerID)
		}
	}
}

// resolve runs a single resolution attempt under the job timeout
func (p *ResolutionWorkerPool) resolve(ctx context.Context, transactionID uuid.UUID, workerID int) {
	jobCtx, cancel := context.WithTimeout(ctx, p.config.JobTimeout)
	defer cancel()

	startTime := time.Now()
	err := p.service.Resolve(jobCtx, transactionID)
	duration := time.Since(startTime)

	if err != nil {
		p.logger.Error("Transaction resolution failed",
			zap.Int("worker_id", workerID),
			zap.String("transaction_id", transactionID.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return
	}

	p.logger.Debug("Transaction resolution finished",
		zap.Int("worker_id", workerID),
		zap.String("transaction_id", transactionID.String()),
		zap.Duration("duration", duration),
	)
}

// Ensure ResolutionWorkerPool implements ResolutionEnqueuer
var _ appsettlement.ResolutionEnqueuer = (*ResolutionWorkerPool)(nil)
