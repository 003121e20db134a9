package settlement

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pharmalink/settlement/internal/domain/settlement"
	"github.com/pharmalink/settlement/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// ResolutionEnqueuer hands a freshly created transaction to the background
// resolution machinery. Implemented by the scheduler's worker pool.
type ResolutionEnqueuer interface {
	Enqueue(transactionID uuid.UUID) error
}

// IdempotencyStore remembers which idempotency key produced which
// transaction, so a retried submission returns the original result
// instead of moving money twice.
type IdempotencyStore interface {
	// Get returns the transaction ID previously stored under the key,
	// or uuid.Nil if the key is unknown.
	Get(ctx context.Context, key string) (uuid.UUID, error)
	// Set stores the transaction ID under the key with a TTL.
	Set(ctx context.Context, key string, transactionID uuid.UUID, ttl time.Duration) error
}

// TransactionService drives settlement transactions from creation to a
// terminal state
type TransactionService struct {
	scheduleRepo   settlement.ScheduleRepository
	txRepo         settlement.TransactionRepository
	alertService   *AlertService
	rail           settlement.PaymentRail
	enqueuer       ResolutionEnqueuer
	idempotency    IdempotencyStore
	idempotencyTTL time.Duration
	eventPublisher shared.EventPublisher
	logger         *zap.Logger

	// Mutations to one schedule are serialized so at most one process
	// call is in flight per schedule.
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// TransactionServiceOption is a functional option for configuring
// TransactionService
type TransactionServiceOption func(*TransactionService)

// WithIdempotencyStore enables idempotency-key deduplication
func WithIdempotencyStore(store IdempotencyStore, ttl time.Duration) TransactionServiceOption {
	return func(s *TransactionService) {
		s.idempotency = store
		s.idempotencyTTL = ttl
	}
}

// WithResolutionEnqueuer routes resolution through a background worker
// pool instead of resolving inline
func WithResolutionEnqueuer(enqueuer ResolutionEnqueuer) TransactionServiceOption {
	return func(s *TransactionService) {
		s.enqueuer = enqueuer
	}
}

// NewTransactionService creates a new TransactionService
func NewTransactionService(
	scheduleRepo settlement.ScheduleRepository,
	txRepo settlement.TransactionRepository,
	alertService *AlertService,
	rail settlement.PaymentRail,
	eventPublisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...TransactionServiceOption,
) *TransactionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &TransactionService{
		scheduleRepo:   scheduleRepo,
		txRepo:         txRepo,
		alertService:   alertService,
		rail:           rail,
		eventPublisher: eventPublisher,
		idempotencyTTL: 24 * time.Hour,
		logger:         logger,
		locks:          map[uuid.UUID]*sync.Mutex{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// TransactionResponse represents a transaction in API responses
type TransactionResponse struct {
	ID              uuid.UUID       `json:"id"`
	ScheduleID      uuid.UUID       `json:"schedule_id"`
	EntityID        uuid.UUID       `json:"entity_id"`
	EntityName      string          `json:"entity_name"`
	EntityType      string          `json:"entity_type"`
	TransactionType string          `json:"transaction_type"`
	Amount          decimal.Decimal `json:"amount"`
	Status          string          `json:"status"`
	ScheduledDate   time.Time       `json:"scheduled_date"`
	ProcessedDate   *time.Time      `json:"processed_date,omitempty"`
	ConfirmedDate   *time.Time      `json:"confirmed_date,omitempty"`
	PaymentMethod   string          `json:"payment_method"`
	Reference       string          `json:"reference"`
	FailureReason   string          `json:"failure_reason,omitempty"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func toTransactionResponse(t *settlement.PaymentTransaction) *TransactionResponse {
	return &TransactionResponse{
		ID:              t.ID,
		ScheduleID:      t.ScheduleID,
		EntityID:        t.EntityID,
		EntityName:      t.EntityName,
		EntityType:      t.EntityType.String(),
		TransactionType: t.TransactionType.String(),
		Amount:          t.Amount,
		Status:          t.Status.String(),
		ScheduledDate:   t.ScheduledDate,
		ProcessedDate:   t.ProcessedDate,
		ConfirmedDate:   t.ConfirmedDate,
		PaymentMethod:   t.PaymentMethod.String(),
		Reference:       t.Reference,
		FailureReason:   t.FailureReason,
		Notes:           t.Notes,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// ProcessRequest carries the fields of a process submission
type ProcessRequest struct {
	Notes          string `json:"notes"`
	IdempotencyKey string `json:"-"`
}

// Process creates a transaction for a schedule's pending amount and hands
// it to asynchronous resolution. Rejections are synchronous: NOT_FOUND
// for an unknown schedule, INVALID_STATE when there is nothing pending or
// the schedule is cancelled, CONCURRENCY_CONFLICT when a transaction is
// already in flight.
func (s *TransactionService) Process(ctx context.Context, scheduleID uuid.UUID, req ProcessRequest) (*TransactionResponse, error) {
	if req.IdempotencyKey != "" && s.idempotency != nil {
		if existingID, err := s.idempotency.Get(ctx, req.IdempotencyKey); err == nil && existingID != uuid.Nil {
			existing, err := s.txRepo.FindByID(ctx, existingID)
			if err != nil {
				return nil, err
			}
			return toTransactionResponse(existing), nil
		}
	}

	lock := s.scheduleLock(scheduleID)
	lock.Lock()
	defer lock.Unlock()

	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	tx, err := settlement.NewPaymentTransaction(schedule, req.Notes)
	if err != nil {
		return nil, err
	}
	if err := schedule.BeginSettlement(tx.ID); err != nil {
		return nil, err
	}

	if err := s.txRepo.Save(ctx, tx); err != nil {
		return nil, err
	}
	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return nil, err
	}

	if s.enqueuer != nil {
		if err := s.enqueuer.Enqueue(tx.ID); err != nil {
			s.logger.Error("failed to enqueue transaction resolution",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
			return nil, s.abortUnqueued(ctx, tx, schedule)
		}
	}

	if req.IdempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.Set(ctx, req.IdempotencyKey, tx.ID, s.idempotencyTTL); err != nil {
			s.logger.Warn("failed to record idempotency key", zap.Error(err))
		}
	}

	s.publishEvents(ctx, tx.GetDomainEvents())
	tx.ClearDomainEvents()

	return toTransactionResponse(tx), nil
}

// abortUnqueued undoes an accepted submission that never reached the
// resolution queue. The transaction fails and the schedule's in-flight
// marker is released without marking it overdue, so the caller can
// retry once the queue drains.
func (s *TransactionService) abortUnqueued(ctx context.Context, tx *settlement.PaymentTransaction, schedule *settlement.Schedule) error {
	if err := tx.Fail("resolution queue unavailable"); err != nil {
		return err
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return err
	}

	schedule.ReleaseSettlement()
	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return err
	}

	s.publishEvents(ctx, tx.GetDomainEvents())
	tx.ClearDomainEvents()

	return shared.NewDomainError("SERVICE_UNAVAILABLE", "Settlement processing is temporarily unavailable, try again shortly")
}

// RecoverInFlight re-enqueues transactions a previous run left in a
// non-terminal state, so a crash or restart between acceptance and
// resolution cannot strand a schedule behind its in-flight marker.
// Called once at startup, after the worker pool has started.
func (s *TransactionService) RecoverInFlight(ctx context.Context) (int, error) {
	if s.enqueuer == nil {
		return 0, nil
	}

	transactions, err := s.txRepo.FindInFlight(ctx)
	if err != nil {
		return 0, err
	}

	recovered := 0
	for i := range transactions {
		tx := &transactions[i]
		if err := s.enqueuer.Enqueue(tx.ID); err != nil {
			s.logger.Error("failed to re-enqueue in-flight transaction",
				zap.String("transaction_id", tx.ID.String()),
				zap.Error(err))
			continue
		}
		recovered++
	}

	if recovered > 0 {
		s.logger.Info("re-enqueued in-flight transactions", zap.Int("count", recovered))
	}
	return recovered, nil
}

// Resolve drives one in-flight transaction to a terminal state by
// submitting it to the payment rail. Called by the resolution worker; the
// context carries the per-job timeout. A rail rejection or timeout is not
// an error here, it is recorded as a failed settlement.
func (s *TransactionService) Resolve(ctx context.Context, transactionID uuid.UUID) error {
	tx, err := s.txRepo.FindByID(ctx, transactionID)
	if err != nil {
		return err
	}
	if !tx.IsInFlight() {
		return nil
	}

	result, err := s.rail.SubmitTransfer(ctx, &settlement.TransferRequest{
		TransactionID: tx.ID,
		Reference:     tx.Reference,
		EntityID:      tx.EntityID,
		EntityType:    tx.EntityType,
		Direction:     tx.TransactionType,
		Amount:        tx.Amount,
		Method:        tx.PaymentMethod,
	})

	switch {
	case err != nil:
		reason := "confirmation timeout"
		if ctx.Err() == nil {
			reason = err.Error()
		}
		return s.finalizeFailure(tx, reason)
	case result.Succeeded:
		return s.finalizeSuccess(tx, result.ConfirmedAt)
	default:
		return s.finalizeFailure(tx, result.FailureReason)
	}
}

// GetTransaction gets a transaction by ID
func (s *TransactionService) GetTransaction(ctx context.Context, id uuid.UUID) (*TransactionResponse, error) {
	tx, err := s.txRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return toTransactionResponse(tx), nil
}

// TransactionListFilter defines filtering options for transaction list
// queries
type TransactionListFilter struct {
	ScheduleID      *uuid.UUID `form:"schedule_id"`
	TransactionType string     `form:"transaction_type"`
	Status          string     `form:"status"`
	Page            int        `form:"page"`
	PageSize        int        `form:"page_size"`
}

// ListTransactions lists transactions with filtering, newest first
func (s *TransactionService) ListTransactions(ctx context.Context, filter TransactionListFilter) ([]TransactionResponse, int64, error) {
	domainFilter := settlement.TransactionFilter{
		ScheduleID: filter.ScheduleID,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize

	if filter.TransactionType != "" {
		txType := settlement.ScheduleType(filter.TransactionType)
		if !txType.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid transaction type filter")
		}
		domainFilter.TransactionType = &txType
	}
	if filter.Status != "" {
		status := settlement.TransactionStatus(filter.Status)
		if !status.IsValid() {
			return nil, 0, shared.NewDomainError("VALIDATION_ERROR", "Invalid status filter")
		}
		domainFilter.Status = &status
	}

	transactions, err := s.txRepo.FindAll(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.txRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]TransactionResponse, len(transactions))
	for i := range transactions {
		responses[i] = *toTransactionResponse(&transactions[i])
	}

	return responses, total, nil
}

// finalizeSuccess applies the success side effects: the transaction
// completes, the schedule's totals and due date advance, and open alerts
// for the entity resolve.
func (s *TransactionService) finalizeSuccess(tx *settlement.PaymentTransaction, confirmedAt time.Time) error {
	// Finalization uses a background context so a resolution timeout
	// cannot leave the records half-updated.
	ctx := context.Background()

	lock := s.scheduleLock(tx.ScheduleID)
	lock.Lock()
	defer lock.Unlock()

	if err := tx.Complete(confirmedAt); err != nil {
		return err
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return err
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, tx.ScheduleID)
	if err != nil {
		return err
	}
	if err := schedule.CompleteSettlement(tx.Amount, confirmedAt, tx.ProcessingTime()); err != nil {
		return err
	}
	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return err
	}

	if s.alertService != nil {
		if _, err := s.alertService.ResolveForEntity(ctx, tx.EntityID, confirmedAt); err != nil {
			s.logger.Error("failed to resolve alerts after settlement",
				zap.String("entity_id", tx.EntityID.String()),
				zap.Error(err))
		}
	}

	s.publishEvents(ctx, tx.GetDomainEvents())
	tx.ClearDomainEvents()
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Info("settlement completed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("amount", tx.Amount.String()))

	return nil
}

// finalizeFailure applies the failure side effects: the transaction fails
// with the given reason and the schedule becomes overdue. No alert is
// auto-resolved.
func (s *TransactionService) finalizeFailure(tx *settlement.PaymentTransaction, reason string) error {
	ctx := context.Background()

	lock := s.scheduleLock(tx.ScheduleID)
	lock.Lock()
	defer lock.Unlock()

	if err := tx.Fail(reason); err != nil {
		return err
	}
	if err := s.txRepo.Save(ctx, tx); err != nil {
		return err
	}

	schedule, err := s.scheduleRepo.FindByID(ctx, tx.ScheduleID)
	if err != nil {
		return err
	}
	if err := schedule.FailSettlement(tx.FailureReason); err != nil {
		return err
	}
	if err := s.scheduleRepo.SaveWithLock(ctx, schedule); err != nil {
		return err
	}

	s.publishEvents(ctx, tx.GetDomainEvents())
	tx.ClearDomainEvents()
	s.publishEvents(ctx, schedule.GetDomainEvents())
	schedule.ClearDomainEvents()

	s.logger.Warn("settlement failed",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("reason", tx.FailureReason))

	return nil
}

func (s *TransactionService) scheduleLock(scheduleID uuid.UUID) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[scheduleID]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[scheduleID] = lock
	}
	return lock
}

func (s *TransactionService) publishEvents(ctx context.Context, events []shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
}
