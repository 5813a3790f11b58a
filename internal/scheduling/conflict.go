package scheduling

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// blockWindowDays is the fixed backward-looking window in which a second
// booking of the same vaccine for the same child is refused. Policy constant,
// not user-configurable.
const blockWindowDays = 3

// ConflictGuard refuses duplicate near-term bookings of the same vaccine.
type ConflictGuard struct {
	appts appointments.Repository
}

// NewConflictGuard creates a guard over the appointment store.
func NewConflictGuard(appts appointments.Repository) *ConflictGuard {
	if appts == nil {
		panic("scheduling: appointment repository required")
	}
	return &ConflictGuard{appts: appts}
}

// HasRecentBooking reports whether the child has any non-cancelled appointment
// for the vaccine dated within [asOf - blockWindowDays, asOf].
func (g *ConflictGuard) HasRecentBooking(ctx context.Context, childID, vaccineID uuid.UUID, asOf time.Time) (bool, error) {
	from := asOf.AddDate(0, 0, -blockWindowDays)
	existing, err := g.appts.ListActiveByChild(ctx, childID, appointments.ListFilter{
		VaccineID: &vaccineID,
		From:      &from,
		To:        &asOf,
	})
	if err != nil {
		return false, fmt.Errorf("scheduling: recent booking lookup: %w", err)
	}
	return len(existing) > 0, nil
}

// AttemptDamper rate-limits scheduling attempts per child+vaccine so a
// misbehaving client cannot hammer the booking flow. Fails open when redis is
// unavailable; the ConflictGuard remains the source of truth.
type AttemptDamper struct {
	redis       *redis.Client
	maxAttempts int
	window      time.Duration
	logger      *logging.Logger
}

// NewAttemptDamper creates a damper. A nil redis client disables damping.
func NewAttemptDamper(redisClient *redis.Client, maxAttempts int, window time.Duration, logger *logging.Logger) *AttemptDamper {
	if maxAttempts <= 0 {
		maxAttempts = 10
	}
	if window <= 0 {
		window = time.Hour
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AttemptDamper{
		redis:       redisClient,
		maxAttempts: maxAttempts,
		window:      window,
		logger:      logger,
	}
}

// Allow records one attempt and reports whether it is within the limit.
func (d *AttemptDamper) Allow(ctx context.Context, childID, vaccineID uuid.UUID) bool {
	if d == nil || d.redis == nil {
		return true
	}
	key := fmt.Sprintf("bookattempt:%s:%s", childID, vaccineID)
	count, err := d.redis.Incr(ctx, key).Result()
	if err != nil {
		d.logger.Error("attempt damper unavailable", "error", err, "key", key)
		return true
	}
	if count == 1 {
		d.redis.Expire(ctx, key, d.window)
	}
	if count > int64(d.maxAttempts) {
		d.logger.Warn("scheduling attempts exceeded",
			"child_id", childID,
			"vaccine_id", vaccineID,
			"count", count,
			"max", d.maxAttempts,
		)
		return false
	}
	return true
}
