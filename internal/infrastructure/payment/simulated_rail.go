package payment

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/pharmalink/settlement/internal/domain/settlement"
)

// SimulatedRail is a payment rail adapter that confirms or rejects
// transfers locally. Used for development, sqlite deployments, and tests;
// a real bank or UPI adapter implements the same interface.
type SimulatedRail struct {
	config SimulatedRailConfig

	mu  sync.Mutex
	rng *rand.Rand
}

// SimulatedRailConfig controls simulated rail behavior
type SimulatedRailConfig struct {
	// SuccessRatio is the fraction of transfers confirmed, in [0, 1]
	SuccessRatio float64

	// MinLatency and MaxLatency bound the simulated confirmation delay
	MinLatency time.Duration
	MaxLatency time.Duration

	// Seed makes the rail deterministic when non-zero
	Seed int64
}

// DefaultSimulatedRailConfig returns a rail that almost always confirms
func DefaultSimulatedRailConfig() SimulatedRailConfig {
	return SimulatedRailConfig{
		SuccessRatio: 0.95,
		MinLatency:   50 * time.Millisecond,
		MaxLatency:   500 * time.Millisecond,
	}
}

// NewSimulatedRail creates a new simulated payment rail
func NewSimulatedRail(config SimulatedRailConfig) *SimulatedRail {
	if config.SuccessRatio < 0 {
		config.SuccessRatio = 0
	}
	if config.SuccessRatio > 1 {
		config.SuccessRatio = 1
	}
	if config.MaxLatency < config.MinLatency {
		config.MaxLatency = config.MinLatency
	}

	seed := config.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &SimulatedRail{
		config: config,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Name returns the rail identifier
func (r *SimulatedRail) Name() string {
	return "simulated"
}

// SubmitTransfer simulates a transfer against the rail. It waits out the
// simulated latency, honoring context cancellation, then confirms or
// rejects according to the configured success ratio.
func (r *SimulatedRail) SubmitTransfer(ctx context.Context, req *settlement.TransferRequest) (*settlement.TransferResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	delay, succeeded := r.draw()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(delay):
	}

	if !succeeded {
		return &settlement.TransferResult{
			Succeeded:     false,
			ConfirmedAt:   time.Now().UTC(),
			FailureReason: rejectionReason(req),
		}, nil
	}

	return &settlement.TransferResult{
		Succeeded:     true,
		RailReference: r.railReference(req),
		ConfirmedAt:   time.Now().UTC(),
	}, nil
}

// draw picks the latency and outcome for one transfer
func (r *SimulatedRail) draw() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delay := r.config.MinLatency
	if span := r.config.MaxLatency - r.config.MinLatency; span > 0 {
		delay += time.Duration(r.rng.Int63n(int64(span)))
	}
	return delay, r.rng.Float64() < r.config.SuccessRatio
}

// railReference builds a confirmation reference like SIM-UPI-1A2B3C4D
func (r *SimulatedRail) railReference(req *settlement.TransferRequest) string {
	short := strings.ToUpper(strings.ReplaceAll(req.TransactionID.String(), "-", ""))[:8]
	return fmt.Sprintf("SIM-%s-%s", req.Method, short)
}

// rejectionReason picks a plausible rejection for the payment method
func rejectionReason(req *settlement.TransferRequest) string {
	switch req.Method {
	case settlement.PaymentMethodUPI:
		return "UPI transfer declined by issuing bank"
	case settlement.PaymentMethodWallet:
		return "wallet balance insufficient"
	case settlement.PaymentMethodCheque:
		return "cheque could not be cleared"
	default:
		return "bank transfer rejected by beneficiary bank"
	}
}

// Ensure SimulatedRail implements PaymentRail
var _ settlement.PaymentRail = (*SimulatedRail)(nil)
