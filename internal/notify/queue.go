package notify

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// queueClient abstracts the push-notification queue so the dispatcher and
// worker run against SQS in deployment and an in-memory channel in tests and
// local development.
type queueClient interface {
	Send(ctx context.Context, body string) error
	Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]queueMessage, error)
	Delete(ctx context.Context, receiptHandle string) error
}

type queueMessage struct {
	ID            string
	Body          string
	ReceiptHandle string
}

// PushJob is the queued payload for one appointment reminder push. It carries
// everything the worker needs so delivery requires no database round trip.
type PushJob struct {
	AppointmentID uuid.UUID `json:"appointment_id"`
	ChildID       uuid.UUID `json:"child_id"`
	ParentID      uuid.UUID `json:"parent_id"`
	ChildName     string    `json:"child_name"`
	VaccineName   string    `json:"vaccine_name,omitempty"`
	DoseNumber    int       `json:"dose_number,omitempty"`
	Date          time.Time `json:"date"`
	EnqueuedAt    time.Time `json:"enqueued_at"`
}
