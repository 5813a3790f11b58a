package scheduling

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/kidsvax/clinic-platform/internal/appointments"
)

func TestConflictGuardBlocksRecentBooking(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	guard := NewConflictGuard(repo)
	ctx := context.Background()

	childID := uuid.New()
	vaccineID := uuid.New()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	storeAppointment(t, repo, childID, vaccineID, now.AddDate(0, 0, -1), appointments.StatusPending)

	recent, err := guard.HasRecentBooking(ctx, childID, vaccineID, now)
	if err != nil {
		t.Fatalf("HasRecentBooking: %v", err)
	}
	if !recent {
		t.Error("expected booking one day ago to be inside the 3-day window")
	}
}

func TestConflictGuardIgnoresOldBookings(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	guard := NewConflictGuard(repo)
	ctx := context.Background()

	childID := uuid.New()
	vaccineID := uuid.New()
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

	storeAppointment(t, repo, childID, vaccineID, now.AddDate(0, 0, -4), appointments.StatusPending)

	recent, err := guard.HasRecentBooking(ctx, childID, vaccineID, now)
	if err != nil {
		t.Fatalf("HasRecentBooking: %v", err)
	}
	if recent {
		t.Error("expected booking four days ago to be outside the window")
	}
}

func TestConflictGuardIgnoresCancelled(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	guard := NewConflictGuard(repo)
	ctx := context.Background()

	childID := uuid.New()
	vaccineID := uuid.New()
	now := time.Now().UTC()

	id := storeAppointment(t, repo, childID, vaccineID, now.AddDate(0, 0, -1), appointments.StatusPending)
	repo.SetStatus(id, appointments.StatusCancelled)

	recent, err := guard.HasRecentBooking(ctx, childID, vaccineID, now)
	if err != nil {
		t.Fatalf("HasRecentBooking: %v", err)
	}
	if recent {
		t.Error("cancelled appointments must not block new bookings")
	}
}

func TestConflictGuardIgnoresOtherVaccines(t *testing.T) {
	repo := appointments.NewInMemoryRepository()
	guard := NewConflictGuard(repo)
	ctx := context.Background()

	childID := uuid.New()
	now := time.Now().UTC()

	storeAppointment(t, repo, childID, uuid.New(), now, appointments.StatusPending)

	recent, err := guard.HasRecentBooking(ctx, childID, uuid.New(), now)
	if err != nil {
		t.Fatalf("HasRecentBooking: %v", err)
	}
	if recent {
		t.Error("bookings for other vaccines must not trigger the guard")
	}
}

func TestAttemptDamperLimits(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	damper := NewAttemptDamper(client, 3, time.Hour, nil)
	ctx := context.Background()
	childID := uuid.New()
	vaccineID := uuid.New()

	for i := 0; i < 3; i++ {
		if !damper.Allow(ctx, childID, vaccineID) {
			t.Fatalf("attempt %d should be allowed", i+1)
		}
	}
	if damper.Allow(ctx, childID, vaccineID) {
		t.Error("fourth attempt should be blocked")
	}

	// A different child is unaffected.
	if !damper.Allow(ctx, uuid.New(), vaccineID) {
		t.Error("other child's attempt should be allowed")
	}
}

func TestAttemptDamperFailsOpenWithoutRedis(t *testing.T) {
	damper := NewAttemptDamper(nil, 1, time.Hour, nil)
	if !damper.Allow(context.Background(), uuid.New(), uuid.New()) {
		t.Error("damper without redis must fail open")
	}
}

func storeAppointment(t *testing.T, repo *appointments.InMemoryRepository, childID, vaccineID uuid.UUID, date time.Time, status appointments.Status) uuid.UUID {
	t.Helper()
	id := uuid.New()
	err := repo.CreateSeries(context.Background(), []*appointments.Appointment{{
		ID:      id,
		ChildID: childID,
		Date:    date,
		Status:  status,
		Lines: []appointments.VaccineLine{{
			ID:            uuid.New(),
			AppointmentID: id,
			VaccineID:     vaccineID,
			DoseNumber:    1,
		}},
	}})
	if err != nil {
		t.Fatalf("store appointment: %v", err)
	}
	return id
}
