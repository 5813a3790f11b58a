package scheduling

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/internal/children"
	"github.com/kidsvax/clinic-platform/internal/observability/metrics"
	"github.com/kidsvax/clinic-platform/internal/records"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("kidsvax.internal.scheduling")

// Notifier sends booking confirmations after a series is persisted. Failures
// are logged and swallowed, never rolled back.
type Notifier interface {
	SendSeriesConfirmation(ctx context.Context, child *children.Child, vaccineName string, series []*appointments.Appointment) error
	SendPackageConfirmation(ctx context.Context, child *children.Child, packageName string, series []*appointments.Appointment) error
	SendRescheduleNotice(ctx context.Context, child *children.Child, appt *appointments.Appointment, oldDate time.Time) error
}

// PushDispatcher enqueues a per-appointment push notification.
type PushDispatcher interface {
	EnqueueAppointmentPush(ctx context.Context, child *children.Child, appt *appointments.Appointment) error
}

// ScheduleVaccineRequest asks for a dose series of one vaccine.
type ScheduleVaccineRequest struct {
	ChildID   uuid.UUID `json:"child_id"`
	VaccineID uuid.UUID `json:"vaccine_id"`
	StartDate time.Time `json:"start_date"`
}

// SchedulePackageRequest asks for dose series of every vaccine in a package,
// all anchored at the same start date.
type SchedulePackageRequest struct {
	ChildID   uuid.UUID `json:"child_id"`
	PackageID uuid.UUID `json:"package_id"`
	StartDate time.Time `json:"start_date"`
}

// RescheduleRequest moves one appointment to a new date.
type RescheduleRequest struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	NewDate       time.Time `json:"new_date"`
}

// ScheduleResult is the persisted outcome of a scheduling attempt.
type ScheduleResult struct {
	Appointments []*appointments.Appointment `json:"appointments"`
}

// Service orchestrates a scheduling attempt: validate, sequence, persist
// atomically, then fire best-effort notifications.
type Service struct {
	catalog  catalog.Repository
	children children.Repository
	appts    appointments.Repository
	records  records.Repository
	locker   *ChildLocker
	guard    *ConflictGuard
	damper   *AttemptDamper
	notifier Notifier
	push     PushDispatcher
	metrics  *metrics.SchedulingMetrics
	logger   *logging.Logger
	now      func() time.Time
}

// NewService constructs the scheduling orchestrator. notifier, push, damper
// and metrics may be nil; the engine's validation semantics never depend on
// them.
func NewService(
	catalogRepo catalog.Repository,
	childrenRepo children.Repository,
	apptsRepo appointments.Repository,
	recordsRepo records.Repository,
	locker *ChildLocker,
	damper *AttemptDamper,
	notifier Notifier,
	push PushDispatcher,
	m *metrics.SchedulingMetrics,
	logger *logging.Logger,
) *Service {
	if catalogRepo == nil {
		panic("scheduling: catalog repository required")
	}
	if childrenRepo == nil {
		panic("scheduling: children repository required")
	}
	if apptsRepo == nil {
		panic("scheduling: appointment repository required")
	}
	if recordsRepo == nil {
		panic("scheduling: records repository required")
	}
	if locker == nil {
		locker = NewChildLocker(nil, logger)
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		catalog:  catalogRepo,
		children: childrenRepo,
		appts:    apptsRepo,
		records:  recordsRepo,
		locker:   locker,
		guard:    NewConflictGuard(apptsRepo),
		damper:   damper,
		notifier: notifier,
		push:     push,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// ScheduleVaccine validates and persists the remaining dose series for one
// vaccine. No partial series is ever written.
func (s *Service) ScheduleVaccine(ctx context.Context, req ScheduleVaccineRequest) (*ScheduleResult, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.schedule_vaccine")
	defer span.End()
	span.SetAttributes(
		attribute.String("kidsvax.child_id", req.ChildID.String()),
		attribute.String("kidsvax.vaccine_id", req.VaccineID.String()),
	)
	started := s.now()
	defer func() { s.metrics.ObserveScheduleLatency("vaccine", s.now().Sub(started)) }()

	child, vaccine, verr, err := s.loadChildAndVaccine(ctx, req.ChildID, req.VaccineID)
	if verr != nil {
		return nil, s.reject("vaccine", verr)
	}
	if err != nil {
		return nil, err
	}
	if dateOnly(req.StartDate).Before(dateOnly(s.now())) {
		return nil, s.reject("vaccine", invalidInput(vaccine.Name, "start date cannot be in the past"))
	}

	release, err := s.locker.Acquire(ctx, child.ID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: acquire child lock: %w", err)
	}
	defer release()

	series, verr, err := s.prepareSeries(ctx, child, vaccine, req.StartDate)
	if verr != nil {
		return nil, s.reject("vaccine", verr)
	}
	if err != nil {
		return nil, err
	}

	if err := s.appts.CreateSeries(ctx, series); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: persist series: %w", err)
	}
	s.metrics.ObserveSeriesCreated("vaccine", len(series))
	s.logger.Info("appointment series created",
		"child_id", child.ID,
		"vaccine", vaccine.Name,
		"appointments", len(series),
	)

	s.notifySeries(ctx, child, vaccine.Name, series, false)
	return &ScheduleResult{Appointments: series}, nil
}

// SchedulePackage validates every vaccine in the package and persists all
// per-vaccine series in one transaction. Every vaccine's first dose lands on
// the package's shared start date; series advance in parallel, never
// staggered across vaccines. Any single validation failure rejects the whole
// attempt.
func (s *Service) SchedulePackage(ctx context.Context, req SchedulePackageRequest) (*ScheduleResult, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.schedule_package")
	defer span.End()
	span.SetAttributes(
		attribute.String("kidsvax.child_id", req.ChildID.String()),
		attribute.String("kidsvax.package_id", req.PackageID.String()),
	)
	started := s.now()
	defer func() { s.metrics.ObserveScheduleLatency("package", s.now().Sub(started)) }()

	child, err := s.children.GetByID(ctx, req.ChildID)
	if err != nil {
		if errors.Is(err, children.ErrChildNotFound) {
			return nil, s.reject("package", notFound("child not found"))
		}
		return nil, fmt.Errorf("scheduling: load child: %w", err)
	}
	pkg, err := s.catalog.GetPackage(ctx, req.PackageID)
	if err != nil {
		if errors.Is(err, catalog.ErrPackageNotFound) {
			return nil, s.reject("package", notFound("vaccine package not found"))
		}
		return nil, fmt.Errorf("scheduling: load package: %w", err)
	}
	if dateOnly(req.StartDate).Before(dateOnly(s.now())) {
		return nil, s.reject("package", invalidInput("", "start date cannot be in the past"))
	}
	vaccineIDs := pkg.DistinctVaccineIDs()
	if len(vaccineIDs) == 0 {
		return nil, s.reject("package", invalidInput(pkg.Name, "package contains no vaccines"))
	}

	release, err := s.locker.Acquire(ctx, child.ID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: acquire child lock: %w", err)
	}
	defer release()

	var combined []*appointments.Appointment
	for _, vaccineID := range vaccineIDs {
		vaccine, err := s.catalog.GetVaccine(ctx, vaccineID)
		if err != nil {
			if errors.Is(err, catalog.ErrVaccineNotFound) {
				return nil, s.reject("package", notFound("vaccine in package not found"))
			}
			return nil, fmt.Errorf("scheduling: load package vaccine: %w", err)
		}
		series, verr, err := s.prepareSeries(ctx, child, vaccine, req.StartDate)
		if verr != nil {
			return nil, s.reject("package", verr)
		}
		if err != nil {
			return nil, err
		}
		combined = append(combined, series...)
	}

	if err := s.appts.CreateSeries(ctx, combined); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: persist package series: %w", err)
	}
	s.metrics.ObserveSeriesCreated("package", len(combined))
	s.logger.Info("package series created",
		"child_id", child.ID,
		"package", pkg.Name,
		"vaccines", len(vaccineIDs),
		"appointments", len(combined),
	)

	s.notifySeries(ctx, child, pkg.Name, combined, true)
	return &ScheduleResult{Appointments: combined}, nil
}

// Reschedule validates and persists a date move for one appointment.
func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*appointments.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("kidsvax.appointment_id", req.AppointmentID.String()))

	appt, err := s.appts.GetByID(ctx, req.AppointmentID)
	if err != nil {
		if errors.Is(err, appointments.ErrAppointmentNotFound) {
			return nil, s.reject("reschedule", notFound("appointment not found"))
		}
		return nil, fmt.Errorf("scheduling: load appointment: %w", err)
	}

	prev, err := s.appts.LatestActiveBefore(ctx, appt.ChildID, appt.Date, appt.ID)
	if err != nil {
		return nil, fmt.Errorf("scheduling: load preceding appointment: %w", err)
	}

	if verr := ValidateReschedule(appt, prev, req.NewDate, s.now()); verr != nil {
		return nil, s.reject("reschedule", verr)
	}

	oldDate := appt.Date
	if err := s.appts.Reschedule(ctx, appt.ID, req.NewDate); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("scheduling: persist reschedule: %w", err)
	}
	appt.Date = req.NewDate
	appt.Status = appointments.StatusRescheduled
	s.logger.Info("appointment rescheduled",
		"appointment_id", appt.ID,
		"old_date", oldDate,
		"new_date", req.NewDate,
	)

	if s.notifier != nil {
		if child, err := s.children.GetByID(ctx, appt.ChildID); err == nil {
			if err := s.notifier.SendRescheduleNotice(ctx, child, appt, oldDate); err != nil {
				s.metrics.ObserveNotification("email", "failed")
				s.logger.Error("reschedule notice failed", "error", err, "appointment_id", appt.ID)
			} else {
				s.metrics.ObserveNotification("email", "sent")
			}
		}
	}
	return appt, nil
}

// prepareSeries runs eligibility, compatibility, the duplicate-booking guard
// and dose sequencing for one vaccine, in that order. It returns either a
// ready-to-persist series, a validation failure, or a system error.
func (s *Service) prepareSeries(ctx context.Context, child *children.Child, vaccine *catalog.Vaccine, startDate time.Time) ([]*appointments.Appointment, *ValidationError, error) {
	if verr := CheckEligibility(child, vaccine); verr != nil {
		return nil, verr, nil
	}

	booked, err := s.activeBookedVaccines(ctx, child.ID, vaccine.ID)
	if err != nil {
		return nil, nil, err
	}
	rules, err := s.catalog.ListRules(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling: load interval rules: %w", err)
	}
	if verr := CheckCompatibility(catalog.NewRuleBook(rules), vaccine, booked, startDate, s.logger); verr != nil {
		return nil, verr, nil
	}

	if !s.damper.Allow(ctx, child.ID, vaccine.ID) {
		return nil, conflict(vaccine.Name, "too many scheduling attempts, try again later"), nil
	}

	recent, err := s.guard.HasRecentBooking(ctx, child.ID, vaccine.ID, s.now())
	if err != nil {
		return nil, nil, err
	}
	if recent {
		return nil, conflict(vaccine.Name, "a recent booking for this vaccine already exists"), nil
	}

	administered, err := s.records.CountDoses(ctx, child.ID, vaccine.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("scheduling: count administered doses: %w", err)
	}
	nextDose := NextDoseNumber(administered)
	if nextDose > vaccine.RequiredDoses {
		return nil, invalidInput(vaccine.Name, "child is already fully vaccinated"), nil
	}

	return BuildSeries(child.ID, vaccine, nextDose, startDate, s.now().UTC()), nil, nil
}

// activeBookedVaccines collects the distinct other vaccines the child has
// active bookings for, each with its most recent appointment date.
func (s *Service) activeBookedVaccines(ctx context.Context, childID, excludeVaccineID uuid.UUID) ([]BookedVaccine, error) {
	active, err := s.appts.ListActiveByChild(ctx, childID, appointments.ListFilter{})
	if err != nil {
		return nil, fmt.Errorf("scheduling: list active bookings: %w", err)
	}

	latest := make(map[uuid.UUID]time.Time)
	for _, appt := range active {
		for _, line := range appt.Lines {
			if line.VaccineID == excludeVaccineID {
				continue
			}
			if existing, ok := latest[line.VaccineID]; !ok || appt.Date.After(existing) {
				latest[line.VaccineID] = appt.Date
			}
		}
	}

	booked := make([]BookedVaccine, 0, len(latest))
	for vaccineID, lastDate := range latest {
		name := vaccineID.String()
		if v, err := s.catalog.GetVaccine(ctx, vaccineID); err == nil {
			name = v.Name
		}
		booked = append(booked, BookedVaccine{VaccineID: vaccineID, Name: name, LastDate: lastDate})
	}
	return booked, nil
}

// notifySeries fires email and push notifications after a successful persist.
// Failures are logged and counted, never returned.
func (s *Service) notifySeries(ctx context.Context, child *children.Child, name string, series []*appointments.Appointment, isPackage bool) {
	if s.notifier != nil {
		var err error
		if isPackage {
			err = s.notifier.SendPackageConfirmation(ctx, child, name, series)
		} else {
			err = s.notifier.SendSeriesConfirmation(ctx, child, name, series)
		}
		if err != nil {
			s.metrics.ObserveNotification("email", "failed")
			s.logger.Error("confirmation email failed", "error", err, "child_id", child.ID)
		} else {
			s.metrics.ObserveNotification("email", "sent")
		}
	}
	if s.push != nil {
		for _, appt := range series {
			if err := s.push.EnqueueAppointmentPush(ctx, child, appt); err != nil {
				s.metrics.ObserveNotification("push", "failed")
				s.logger.Error("push enqueue failed", "error", err, "appointment_id", appt.ID)
			} else {
				s.metrics.ObserveNotification("push", "queued")
			}
		}
	}
}

func (s *Service) reject(flow string, verr *ValidationError) error {
	s.metrics.ObserveValidationFailure(flow, string(verr.Code))
	s.logger.Info("scheduling attempt rejected",
		"flow", flow,
		"code", string(verr.Code),
		"vaccine", verr.VaccineName,
		"reason", verr.Reason,
	)
	return verr
}

func (s *Service) loadChildAndVaccine(ctx context.Context, childID, vaccineID uuid.UUID) (*children.Child, *catalog.Vaccine, *ValidationError, error) {
	child, err := s.children.GetByID(ctx, childID)
	if err != nil {
		if errors.Is(err, children.ErrChildNotFound) {
			return nil, nil, notFound("child not found"), nil
		}
		return nil, nil, nil, fmt.Errorf("scheduling: load child: %w", err)
	}
	vaccine, err := s.catalog.GetVaccine(ctx, vaccineID)
	if err != nil {
		if errors.Is(err, catalog.ErrVaccineNotFound) {
			return nil, nil, notFound("vaccine not found"), nil
		}
		return nil, nil, nil, fmt.Errorf("scheduling: load vaccine: %w", err)
	}
	return child, vaccine, nil, nil
}
