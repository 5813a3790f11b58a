package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// Service creates deposit checkouts for booked appointment series and settles
// them when the gateway reports back.
type Service struct {
	provider       Provider
	repo           Repository
	depositPercent int
	checkoutExpiry time.Duration
	logger         *logging.Logger
	now            func() time.Time
}

// NewService creates the payments service. depositPercent is clamped to
// [1, 100]; zero selects full prepayment.
func NewService(provider Provider, repo Repository, depositPercent int, checkoutExpiry time.Duration, logger *logging.Logger) *Service {
	if provider == nil {
		panic("payments: checkout provider required")
	}
	if repo == nil {
		panic("payments: repository required")
	}
	if depositPercent <= 0 {
		depositPercent = 100
	}
	if depositPercent > 100 {
		depositPercent = 100
	}
	if checkoutExpiry <= 0 {
		checkoutExpiry = 15 * time.Minute
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		provider:       provider,
		repo:           repo,
		depositPercent: depositPercent,
		checkoutExpiry: checkoutExpiry,
		logger:         logger,
		now:            time.Now,
	}
}

// DepositAmount computes the deposit owed for a series from its line prices.
func (s *Service) DepositAmount(series []*appointments.Appointment) int64 {
	var total int64
	for _, appt := range series {
		for _, line := range appt.Lines {
			total += line.Price
		}
	}
	return total * int64(s.depositPercent) / 100
}

// CreateDepositCheckout records a checkout intent and returns the hosted
// payment link for it.
func (s *Service) CreateDepositCheckout(ctx context.Context, childID uuid.UUID, series []*appointments.Appointment, clientIP string) (*CheckoutResponse, error) {
	if len(series) == 0 {
		return nil, fmt.Errorf("payments: checkout requires at least one appointment")
	}
	amount := s.DepositAmount(series)
	if amount <= 0 {
		return nil, fmt.Errorf("payments: series has no payable amount")
	}

	intent := &CheckoutIntent{
		ID:        uuid.New(),
		ChildID:   childID,
		AmountVND: amount,
		Status:    StatusPending,
		CreatedAt: s.now().UTC(),
	}

	resp, err := s.provider.CreatePaymentLink(ctx, CheckoutParams{
		BookingRef: intent.ID,
		ChildID:    childID,
		AmountVND:  amount,
		OrderInfo:  fmt.Sprintf("Vaccination deposit, %d appointments", len(series)),
		ClientIP:   clientIP,
		ExpiresAt:  s.now().Add(s.checkoutExpiry),
	})
	if err != nil {
		return nil, err
	}
	intent.ProviderRef = resp.ProviderRef

	if err := s.repo.CreateIntent(ctx, intent); err != nil {
		return nil, err
	}
	s.logger.Info("deposit checkout created",
		"checkout_id", intent.ID,
		"child_id", childID,
		"amount_vnd", amount,
	)
	return resp, nil
}

// Settle records the gateway outcome for a checkout intent.
func (s *Service) Settle(ctx context.Context, checkoutID uuid.UUID, paid bool) error {
	status := StatusFailed
	if paid {
		status = StatusPaid
	}
	if err := s.repo.SetStatus(ctx, checkoutID, status); err != nil {
		return err
	}
	s.logger.Info("deposit checkout settled", "checkout_id", checkoutID, "status", status)
	return nil
}
