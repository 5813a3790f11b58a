package notify

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/children"
)

type captureSender struct {
	messages []EmailMessage
	fail     bool
}

func (c *captureSender) Send(ctx context.Context, msg EmailMessage) error {
	if c.fail {
		return errors.New("send failed")
	}
	c.messages = append(c.messages, msg)
	return nil
}

func notifyFixture(t *testing.T) (*Service, *captureSender, *children.Child) {
	t.Helper()
	sender := &captureSender{}
	repo := children.NewInMemoryRepository()

	parentID := uuid.New()
	repo.PutParent(&children.ParentContact{
		ParentID: parentID,
		FullName: "Linh Tran",
		Email:    "linh@example.com",
		Phone:    "+84901234567",
	})
	child := &children.Child{ID: uuid.New(), ParentID: parentID, FullName: "Bao Tran"}
	repo.Put(child)

	return NewService(sender, repo, nil), sender, child
}

func seriesOf(dates ...time.Time) []*appointments.Appointment {
	series := make([]*appointments.Appointment, 0, len(dates))
	for i, date := range dates {
		id := uuid.New()
		series = append(series, &appointments.Appointment{
			ID:     id,
			Date:   date,
			Status: appointments.StatusPending,
			Lines: []appointments.VaccineLine{{
				ID:            uuid.New(),
				AppointmentID: id,
				VaccineID:     uuid.New(),
				DoseNumber:    i + 1,
			}},
		})
	}
	return series
}

func TestSendSeriesConfirmation(t *testing.T) {
	svc, sender, child := notifyFixture(t)

	series := seriesOf(
		time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC),
	)
	if err := svc.SendSeriesConfirmation(context.Background(), child, "Pentaxim", series); err != nil {
		t.Fatalf("SendSeriesConfirmation: %v", err)
	}

	if len(sender.messages) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if msg.To != "linh@example.com" {
		t.Errorf("expected email to parent contact, got %q", msg.To)
	}
	if !strings.Contains(msg.Body, "Pentaxim") {
		t.Error("body should name the vaccine")
	}
	if !strings.Contains(msg.Body, "Dose 1") || !strings.Contains(msg.Body, "Dose 2") {
		t.Errorf("body should list every dose:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Body, "Wednesday, January 1, 2025") {
		t.Errorf("body should carry formatted dates:\n%s", msg.Body)
	}
}

func TestSendPackageConfirmation(t *testing.T) {
	svc, sender, child := notifyFixture(t)

	series := seriesOf(
		time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
	)
	if err := svc.SendPackageConfirmation(context.Background(), child, "Infant Starter", series); err != nil {
		t.Fatalf("SendPackageConfirmation: %v", err)
	}

	if len(sender.messages) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sender.messages))
	}
	msg := sender.messages[0]
	if !strings.Contains(msg.Subject, "Infant Starter") {
		t.Errorf("subject should name the package, got %q", msg.Subject)
	}
	if !strings.Contains(msg.Body, "3 appointments") {
		t.Errorf("body should state appointment count:\n%s", msg.Body)
	}
}

func TestSendRescheduleNotice(t *testing.T) {
	svc, sender, child := notifyFixture(t)

	appt := seriesOf(time.Date(2025, 5, 20, 0, 0, 0, 0, time.UTC))[0]
	oldDate := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)

	if err := svc.SendRescheduleNotice(context.Background(), child, appt, oldDate); err != nil {
		t.Fatalf("SendRescheduleNotice: %v", err)
	}

	msg := sender.messages[0]
	if !strings.Contains(msg.Body, "Saturday, May 10, 2025") || !strings.Contains(msg.Body, "Tuesday, May 20, 2025") {
		t.Errorf("body should carry both old and new dates:\n%s", msg.Body)
	}
}

func TestNotifyMissingParentContact(t *testing.T) {
	sender := &captureSender{}
	repo := children.NewInMemoryRepository()
	child := &children.Child{ID: uuid.New(), ParentID: uuid.New(), FullName: "Orphan Record"}
	repo.Put(child)
	svc := NewService(sender, repo, nil)

	err := svc.SendSeriesConfirmation(context.Background(), child, "Pentaxim", seriesOf(time.Now()))
	if err == nil {
		t.Fatal("expected error when parent contact is missing")
	}
	if len(sender.messages) != 0 {
		t.Errorf("no email may be sent without a contact, got %d", len(sender.messages))
	}
}

func TestNotifyParentWithoutEmail(t *testing.T) {
	sender := &captureSender{}
	repo := children.NewInMemoryRepository()
	parentID := uuid.New()
	repo.PutParent(&children.ParentContact{ParentID: parentID, FullName: "No Mail", Phone: "+84900000000"})
	child := &children.Child{ID: uuid.New(), ParentID: parentID}
	repo.Put(child)
	svc := NewService(sender, repo, nil)

	if err := svc.SendSeriesConfirmation(context.Background(), child, "Pentaxim", seriesOf(time.Now())); err == nil {
		t.Error("expected error when parent has no email address")
	}
}

func TestNotifyNilSenderSkips(t *testing.T) {
	repo := children.NewInMemoryRepository()
	parentID := uuid.New()
	repo.PutParent(&children.ParentContact{ParentID: parentID, FullName: "Linh", Email: "linh@example.com"})
	child := &children.Child{ID: uuid.New(), ParentID: parentID}
	repo.Put(child)
	svc := NewService(nil, repo, nil)

	if err := svc.SendSeriesConfirmation(context.Background(), child, "Pentaxim", seriesOf(time.Now())); err != nil {
		t.Errorf("nil sender should be a silent skip, got %v", err)
	}
}
