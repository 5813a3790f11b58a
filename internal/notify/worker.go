package notify

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/kidsvax/clinic-platform/pkg/logging"
)

const (
	receiveBatchSize   = 10
	receiveWaitSeconds = 20
)

// PushSender delivers one decoded push job to the parent's device.
type PushSender interface {
	SendPush(ctx context.Context, job PushJob) error
}

// StubPushSender logs push jobs instead of delivering them, for local
// development and tests.
type StubPushSender struct {
	logger *logging.Logger
}

// NewStubPushSender creates a stub push sender.
func NewStubPushSender(logger *logging.Logger) *StubPushSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubPushSender{logger: logger}
}

// SendPush logs the job but doesn't deliver it.
func (s *StubPushSender) SendPush(ctx context.Context, job PushJob) error {
	s.logger.Info("stub push sender: would deliver push",
		"appointment_id", job.AppointmentID,
		"parent_id", job.ParentID,
		"date", job.Date,
	)
	return nil
}

// PushWorker polls the notification queue and delivers push jobs. Messages
// that fail delivery are left on the queue for redelivery; malformed messages
// are deleted so they cannot poison the queue.
type PushWorker struct {
	queue   queueClient
	sender  PushSender
	workers int
	logger  *logging.Logger
}

// NewPushWorker creates a worker pool over the queue.
func NewPushWorker(queue queueClient, sender PushSender, workers int, logger *logging.Logger) *PushWorker {
	if queue == nil {
		panic("notify: queue cannot be nil")
	}
	if sender == nil {
		panic("notify: push sender cannot be nil")
	}
	if workers <= 0 {
		workers = 2
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &PushWorker{
		queue:   queue,
		sender:  sender,
		workers: workers,
		logger:  logger,
	}
}

// Run polls until ctx is canceled. It blocks; callers run it in a goroutine
// or as the main loop of a worker process.
func (w *PushWorker) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	for i := 0; i < w.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w.poll(ctx)
		}()
	}
	wg.Wait()
	return ctx.Err()
}

func (w *PushWorker) poll(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, receiveBatchSize, receiveWaitSeconds)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("push worker receive failed", "error", err)
			continue
		}
		for _, msg := range messages {
			w.handle(ctx, msg)
		}
	}
}

func (w *PushWorker) handle(ctx context.Context, msg queueMessage) {
	var job PushJob
	if err := json.Unmarshal([]byte(msg.Body), &job); err != nil {
		w.logger.Error("push worker dropped malformed message", "error", err, "message_id", msg.ID)
		if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
			w.logger.Error("push worker delete failed", "error", err, "message_id", msg.ID)
		}
		return
	}

	if err := w.sender.SendPush(ctx, job); err != nil {
		w.logger.Error("push delivery failed, leaving message for retry",
			"error", err,
			"appointment_id", job.AppointmentID,
		)
		return
	}

	if err := w.queue.Delete(ctx, msg.ReceiptHandle); err != nil {
		w.logger.Error("push worker delete failed", "error", err, "message_id", msg.ID)
		return
	}
	w.logger.Info("push delivered", "appointment_id", job.AppointmentID, "parent_id", job.ParentID)
}
