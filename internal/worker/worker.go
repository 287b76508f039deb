// Package worker consumes execution run messages from RabbitMQ and drives
// the task engine over each claimed execution.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/jobflowhq/jobflow/internal/engine"
	"github.com/jobflowhq/jobflow/internal/messaging"
	"github.com/jobflowhq/jobflow/internal/worker/storage"
	"github.com/jobflowhq/jobflow/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	Storage       *storage.Storage
	RabbitClient  *rabbitmq.Client
	Orchestrator  *engine.Orchestrator
	Concurrency   int
	PrefetchCount int
}

// runJob pairs a run message with its AMQP delivery tag for ack/nack.
type runJob struct {
	msg         messaging.RunMessage
	deliveryTag uint64
}

// Worker represents the execution worker service
type Worker struct {
	logger        *slog.Logger
	storage       *storage.Storage
	rabbitClient  *rabbitmq.Client
	orchestrator  *engine.Orchestrator
	concurrency   int
	prefetchCount int
	workerID      string

	jobsChan chan *runJob
	wg       sync.WaitGroup
	stopChan chan struct{}

	// cancels maps execution IDs to the cancel func of their run context.
	// The cancel listener uses it to abort a run owned by this instance.
	cancelMu sync.Mutex
	cancels  map[string]context.CancelFunc
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	prefetch := cfg.PrefetchCount
	if prefetch <= 0 {
		prefetch = cfg.Concurrency
	}

	return &Worker{
		logger:        cfg.Logger,
		storage:       cfg.Storage,
		rabbitClient:  cfg.RabbitClient,
		orchestrator:  cfg.Orchestrator,
		concurrency:   cfg.Concurrency,
		prefetchCount: prefetch,
		workerID:      "worker-" + uuid.New().String(),
		jobsChan:      make(chan *runJob),
		stopChan:      make(chan struct{}),
		cancels:       make(map[string]context.CancelFunc),
	}
}

// Start begins consuming and processing executions. It blocks until the
// context is canceled or the consumer setup fails.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup consumer: %w", err)
	}

	cancelDeliveries, err := w.setupCancelConsumer()
	if err != nil {
		return fmt.Errorf("failed to setup cancel consumer: %w", err)
	}

	w.spawnWorkerPool(ctx)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.startCancelListener(ctx, cancelDeliveries)
	}()

	w.startMessageDispatcher(ctx, deliveries)

	return nil
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...", slog.String("worker_id", w.workerID))
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped", slog.String("worker_id", w.workerID))
}

// registerCancel records the cancel func for a running execution.
func (w *Worker) registerCancel(executionID string, cancel context.CancelFunc) {
	w.cancelMu.Lock()
	defer w.cancelMu.Unlock()
	w.cancels[executionID] = cancel
}

// unregisterCancel removes the cancel func once the run finished.
func (w *Worker) unregisterCancel(executionID string) {
	w.cancelMu.Lock()
	defer w.cancelMu.Unlock()
	delete(w.cancels, executionID)
}

// cancelExecution aborts the run context of an execution held by this
// instance. Returns false when the execution is not running here.
func (w *Worker) cancelExecution(executionID string) bool {
	w.cancelMu.Lock()
	cancel, ok := w.cancels[executionID]
	w.cancelMu.Unlock()

	if !ok {
		return false
	}

	cancel()
	return true
}
