package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrRailInvalidTransactionID = errors.New("rail: invalid transaction ID")
	ErrRailInvalidAmount        = errors.New("rail: invalid transfer amount")
	ErrRailInvalidMethod        = errors.New("rail: invalid payment method")
	ErrRailUnavailable          = errors.New("rail: temporarily unavailable")
)

// TransferRequest represents a transfer submitted to a payment rail
type TransferRequest struct {
	// TransactionID is our internal transaction ID
	TransactionID uuid.UUID
	// Reference is our unique transaction reference
	Reference string
	// EntityID is the counterparty entity
	EntityID uuid.UUID
	// EntityType is the counterparty entity type
	EntityType EntityType
	// Direction indicates collection (money in) or payout (money out)
	Direction ScheduleType
	// Amount is the transfer amount
	Amount decimal.Decimal
	// Method is the payment method to use
	Method PaymentMethod
}

// Validate validates the transfer request
func (r *TransferRequest) Validate() error {
	if r.TransactionID == uuid.Nil {
		return ErrRailInvalidTransactionID
	}
	if r.Amount.LessThanOrEqual(decimal.Zero) {
		return ErrRailInvalidAmount
	}
	if !r.Method.IsValid() {
		return ErrRailInvalidMethod
	}
	return nil
}

// TransferResult represents the outcome of a transfer attempt
type TransferResult struct {
	// Succeeded indicates whether the rail confirmed the transfer
	Succeeded bool
	// RailReference is the confirmation reference assigned by the rail
	RailReference string
	// ConfirmedAt is when the rail confirmed or rejected the transfer
	ConfirmedAt time.Time
	// FailureReason describes why the transfer was rejected
	FailureReason string
}

// PaymentRail defines the port interface for external payment rails.
// The interface lives in the domain layer; concrete adapters (bank
// transfer, UPI, wallet) live in the infrastructure layer.
type PaymentRail interface {
	// Name returns the rail identifier for logging and references
	Name() string

	// SubmitTransfer submits a transfer and blocks until the rail
	// confirms or rejects it, or the context is cancelled
	SubmitTransfer(ctx context.Context, req *TransferRequest) (*TransferResult, error)
}
