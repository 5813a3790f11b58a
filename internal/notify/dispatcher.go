package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kidsvax/clinic-platform/internal/appointments"
	"github.com/kidsvax/clinic-platform/internal/catalog"
	"github.com/kidsvax/clinic-platform/internal/children"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

// Dispatcher enqueues appointment reminder pushes onto the notification queue.
// Delivery happens asynchronously in the push worker.
type Dispatcher struct {
	queue   queueClient
	catalog catalog.Repository
	logger  *logging.Logger
}

// NewDispatcher creates a dispatcher over the given queue. The catalog is
// optional and only used to resolve vaccine names for the payload.
func NewDispatcher(queue queueClient, catalogRepo catalog.Repository, logger *logging.Logger) *Dispatcher {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Dispatcher{queue: queue, catalog: catalogRepo, logger: logger}
}

// EnqueueAppointmentPush serializes one appointment into a PushJob and sends
// it to the queue.
func (d *Dispatcher) EnqueueAppointmentPush(ctx context.Context, child *children.Child, appt *appointments.Appointment) error {
	job := PushJob{
		AppointmentID: appt.ID,
		ChildID:       child.ID,
		ParentID:      child.ParentID,
		ChildName:     child.FullName,
		Date:          appt.Date,
		EnqueuedAt:    time.Now().UTC(),
	}
	if len(appt.Lines) > 0 {
		line := appt.Lines[0]
		job.DoseNumber = line.DoseNumber
		if d.catalog != nil {
			if v, err := d.catalog.GetVaccine(ctx, line.VaccineID); err == nil {
				job.VaccineName = v.Name
			}
		}
	}

	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("notify: marshal push job: %w", err)
	}
	if err := d.queue.Send(ctx, string(payload)); err != nil {
		return err
	}
	d.logger.Debug("push job enqueued", "appointment_id", appt.ID, "child_id", child.ID)
	return nil
}
