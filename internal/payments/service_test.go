package payments

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/appointments"
)

func seriesWithPrices(childID uuid.UUID, prices ...int64) []*appointments.Appointment {
	series := make([]*appointments.Appointment, 0, len(prices))
	for i, price := range prices {
		id := uuid.New()
		series = append(series, &appointments.Appointment{
			ID:      id,
			ChildID: childID,
			Date:    time.Now().AddDate(0, 0, i*30),
			Status:  appointments.StatusPending,
			Lines: []appointments.VaccineLine{{
				ID:            uuid.New(),
				AppointmentID: id,
				VaccineID:     uuid.New(),
				DoseNumber:    i + 1,
				Price:         price,
			}},
		})
	}
	return series
}

func TestDepositAmount(t *testing.T) {
	svc := NewService(NewFakeCheckoutService("https://clinic.example.com", nil), NewInMemoryRepository(), 20, 0, nil)

	series := seriesWithPrices(uuid.New(), 500000, 500000, 500000)
	if got := svc.DepositAmount(series); got != 300000 {
		t.Errorf("expected 20%% of 1.5M = 300000, got %d", got)
	}
}

func TestDepositPercentDefaults(t *testing.T) {
	provider := NewFakeCheckoutService("https://clinic.example.com", nil)
	repo := NewInMemoryRepository()

	svc := NewService(provider, repo, 0, 0, nil)
	if got := svc.DepositAmount(seriesWithPrices(uuid.New(), 1000)); got != 1000 {
		t.Errorf("expected full prepayment by default, got %d of 1000", got)
	}

	svc = NewService(provider, repo, 150, 0, nil)
	if got := svc.DepositAmount(seriesWithPrices(uuid.New(), 1000)); got != 1000 {
		t.Errorf("expected clamp to 100%%, got %d of 1000", got)
	}
}

func TestCreateDepositCheckout(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(NewFakeCheckoutService("https://clinic.example.com", nil), repo, 25, time.Hour, nil)

	childID := uuid.New()
	resp, err := svc.CreateDepositCheckout(context.Background(), childID, seriesWithPrices(childID, 400000, 400000), "203.0.113.9")
	if err != nil {
		t.Fatalf("CreateDepositCheckout: %v", err)
	}
	if !strings.HasPrefix(resp.URL, "https://clinic.example.com/payments/fake/") {
		t.Errorf("unexpected checkout url %q", resp.URL)
	}

	checkoutID, err := uuid.Parse(strings.TrimPrefix(resp.ProviderRef, "fake:"))
	if err != nil {
		t.Fatalf("provider ref should carry the intent id: %v", err)
	}
	intent, err := repo.GetIntent(context.Background(), checkoutID)
	if err != nil {
		t.Fatalf("intent should be persisted: %v", err)
	}
	if intent.AmountVND != 200000 {
		t.Errorf("expected 25%% of 800000 = 200000, got %d", intent.AmountVND)
	}
	if intent.Status != StatusPending {
		t.Errorf("expected pending intent, got %s", intent.Status)
	}
	if intent.ChildID != childID {
		t.Error("intent should reference the child")
	}
}

func TestCreateDepositCheckoutRejectsEmptySeries(t *testing.T) {
	svc := NewService(NewFakeCheckoutService("https://clinic.example.com", nil), NewInMemoryRepository(), 20, 0, nil)

	if _, err := svc.CreateDepositCheckout(context.Background(), uuid.New(), nil, ""); err == nil {
		t.Error("expected error for empty series")
	}
	if _, err := svc.CreateDepositCheckout(context.Background(), uuid.New(), seriesWithPrices(uuid.New(), 0), ""); err == nil {
		t.Error("expected error for zero-amount series")
	}
}

func TestSettle(t *testing.T) {
	repo := NewInMemoryRepository()
	svc := NewService(NewFakeCheckoutService("https://clinic.example.com", nil), repo, 20, 0, nil)

	childID := uuid.New()
	resp, err := svc.CreateDepositCheckout(context.Background(), childID, seriesWithPrices(childID, 500000), "")
	if err != nil {
		t.Fatalf("CreateDepositCheckout: %v", err)
	}
	checkoutID := uuid.MustParse(strings.TrimPrefix(resp.ProviderRef, "fake:"))

	if err := svc.Settle(context.Background(), checkoutID, true); err != nil {
		t.Fatalf("Settle: %v", err)
	}
	intent, _ := repo.GetIntent(context.Background(), checkoutID)
	if intent.Status != StatusPaid {
		t.Errorf("expected paid, got %s", intent.Status)
	}
	if intent.PaidAt == nil {
		t.Error("expected paid_at to be set")
	}

	if err := svc.Settle(context.Background(), uuid.New(), true); err == nil {
		t.Error("expected error settling unknown checkout")
	}
}
