package notify

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/children"
	"github.com/kidsvax/clinic-platform/internal/scheduling"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

const dateLayout = "Monday, January 2, 2006"

// Service sends booking lifecycle emails to parents. It resolves the parent
// contact for each child before sending; children without a reachable parent
// contact are logged and skipped.
type Service struct {
	email    EmailSender
	children children.Repository
	logger   *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, childrenRepo children.Repository, logger *logging.Logger) *Service {
	if childrenRepo == nil {
		panic("notify: children repository required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		email:    email,
		children: childrenRepo,
		logger:   logger,
	}
}

// SendSeriesConfirmation emails the parent the full dose schedule for one
// vaccine.
func (s *Service) SendSeriesConfirmation(ctx context.Context, child *children.Child, vaccineName string, series []*appointments.Appointment) error {
	contact, err := s.parentContact(ctx, child)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Vaccination schedule confirmed for %s", child.FullName)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", contact.FullName)
	fmt.Fprintf(&b, "%s's %s vaccination series has been booked:\n\n", child.FullName, vaccineName)
	writeScheduleLines(&b, series)
	fmt.Fprintf(&b, "\nPlease arrive 15 minutes early for each visit.\n\n— KidsVax Clinic")

	return s.send(ctx, contact, EmailMessage{
		To:      contact.Email,
		ToName:  contact.FullName,
		Subject: subject,
		Body:    b.String(),
	})
}

// SendPackageConfirmation emails the parent the combined schedule for every
// vaccine in a booked package.
func (s *Service) SendPackageConfirmation(ctx context.Context, child *children.Child, packageName string, series []*appointments.Appointment) error {
	contact, err := s.parentContact(ctx, child)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Package %q booked for %s", packageName, child.FullName)
	var b strings.Builder
	fmt.Fprintf(&b, "Hello %s,\n\n", contact.FullName)
	fmt.Fprintf(&b, "The %s package has been booked for %s. %d appointments were scheduled:\n\n", packageName, child.FullName, len(series))
	writeScheduleLines(&b, series)
	fmt.Fprintf(&b, "\nPlease arrive 15 minutes early for each visit.\n\n— KidsVax Clinic")

	return s.send(ctx, contact, EmailMessage{
		To:      contact.Email,
		ToName:  contact.FullName,
		Subject: subject,
		Body:    b.String(),
	})
}

// SendRescheduleNotice emails the parent about a moved appointment.
func (s *Service) SendRescheduleNotice(ctx context.Context, child *children.Child, appt *appointments.Appointment, oldDate time.Time) error {
	contact, err := s.parentContact(ctx, child)
	if err != nil {
		return err
	}

	subject := fmt.Sprintf("Appointment rescheduled for %s", child.FullName)
	body := fmt.Sprintf(`Hello %s,

%s's appointment originally set for %s has been moved to %s.

If this change wasn't requested by you, please contact the clinic.

— KidsVax Clinic`,
		contact.FullName,
		child.FullName,
		oldDate.Format(dateLayout),
		appt.Date.Format(dateLayout),
	)

	return s.send(ctx, contact, EmailMessage{
		To:      contact.Email,
		ToName:  contact.FullName,
		Subject: subject,
		Body:    body,
	})
}

func (s *Service) parentContact(ctx context.Context, child *children.Child) (*children.ParentContact, error) {
	contact, err := s.children.GetParentContact(ctx, child.ParentID)
	if err != nil {
		s.logger.Warn("notify: parent contact unavailable", "error", err, "child_id", child.ID)
		return nil, fmt.Errorf("notify: parent contact lookup: %w", err)
	}
	if contact.Email == "" {
		return nil, fmt.Errorf("notify: parent %s has no email address", contact.ParentID)
	}
	return contact, nil
}

func (s *Service) send(ctx context.Context, contact *children.ParentContact, msg EmailMessage) error {
	if s.email == nil {
		s.logger.Debug("notify: email sender not configured, skipping", "to", contact.Email)
		return nil
	}
	return s.email.Send(ctx, msg)
}

func writeScheduleLines(b *strings.Builder, series []*appointments.Appointment) {
	for _, appt := range series {
		dose := 0
		if len(appt.Lines) > 0 {
			dose = appt.Lines[0].DoseNumber
		}
		if dose > 0 {
			fmt.Fprintf(b, "  Dose %d: %s\n", dose, appt.Date.Format(dateLayout))
		} else {
			fmt.Fprintf(b, "  %s\n", appt.Date.Format(dateLayout))
		}
	}
}

var _ scheduling.Notifier = (*Service)(nil)
