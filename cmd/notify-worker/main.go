package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	"github.com/kidsvax/clinic-platform/cmd/mainconfig"
	appconfig "github.com/kidsvax/clinic-platform/internal/config"
	"github.com/kidsvax/clinic-platform/internal/notify"
	"github.com/kidsvax/clinic-platform/pkg/logging"
)

func main() {
	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)

	if cfg.UseMemoryQueue {
		logger.Error("USE_MEMORY_QUEUE is set; the standalone worker needs SQS. The API server runs an inline worker for the memory queue.")
		os.Exit(1)
	}
	if cfg.PushQueueURL == "" {
		logger.Error("PUSH_QUEUE_URL is required")
		os.Exit(1)
	}

	awsConfig, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
	if err != nil {
		logger.Error("failed to load AWS config", "error", err)
		os.Exit(1)
	}

	queue := notify.NewSQSQueue(sqs.NewFromConfig(awsConfig), cfg.PushQueueURL)
	worker := notify.NewPushWorker(queue, notify.NewStubPushSender(logger), cfg.WorkerCount, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("push worker stopped", "error", err)
		}
	}()
	logger.Info("notify worker started", "queue_url", cfg.PushQueueURL, "workers", cfg.WorkerCount)

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down notify worker...")
	cancel()

	select {
	case <-done:
		logger.Info("notify worker stopped")
	case <-time.After(30 * time.Second):
		logger.Error("notify worker shutdown timed out")
	}
}
