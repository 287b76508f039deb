package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jobflowhq/jobflow/internal/domain"
)

// spawnWorkerPool spawns N worker goroutines based on concurrency configuration
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the main processing loop for each worker goroutine
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case job, ok := <-w.jobsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - jobsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received execution",
				slog.String("worker_name", workerName),
				slog.String("execution_id", job.msg.ExecutionID),
				slog.Uint64("delivery_tag", job.deliveryTag),
			)

			err := w.processExecution(ctx, job.msg)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("execution_id", job.msg.ExecutionID),
				)
				continue
			}

			if err != nil {
				w.logger.Error("Execution processing failed",
					slog.String("worker_name", workerName),
					slog.String("execution_id", job.msg.ExecutionID),
					slog.String("error", err.Error()),
				)

				requeue := w.shouldRequeue(err)

				if nackErr := channel.Nack(job.deliveryTag, false, requeue); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("execution_id", job.msg.ExecutionID),
						slog.String("error", nackErr.Error()),
					)
				} else {
					w.logger.Info("Message NACKed",
						slog.String("worker_name", workerName),
						slog.String("execution_id", job.msg.ExecutionID),
						slog.Bool("requeue", requeue),
					)
				}
			} else {
				if ackErr := channel.Ack(job.deliveryTag, false); ackErr != nil {
					w.logger.Error("Failed to ACK message",
						slog.String("worker_name", workerName),
						slog.String("execution_id", job.msg.ExecutionID),
						slog.String("error", ackErr.Error()),
					)
				} else {
					w.logger.Info("Execution processed",
						slog.String("worker_name", workerName),
						slog.String("execution_id", job.msg.ExecutionID),
					)
				}
			}
		}
	}
}

// shouldRequeue decides whether a failed message goes back on the queue.
// Task-level failures never reach here; the orchestrator records those on
// the execution itself. Only infrastructure errors around the run do.
func (w *Worker) shouldRequeue(err error) bool {
	// Another worker already owns the execution
	if errors.Is(err, domain.ErrExecutionAlreadyClaimed) {
		return false
	}

	// The referenced rows are gone; retrying cannot help
	if errors.Is(err, domain.ErrExecutionNotFound) || errors.Is(err, domain.ErrJobNotFound) {
		return false
	}

	// Transient infrastructure errors are worth another delivery
	var retryableErr *domain.RetryableError
	if errors.As(err, &retryableErr) {
		return true
	}

	return false
}
