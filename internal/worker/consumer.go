package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/jobflowhq/jobflow/internal/messaging"
)

// setupConsumer sets up the run queue consumer with QoS and returns the
// delivery channel
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return nil, fmt.Errorf("rabbitmq channel is nil")
	}

	// prefetch_count bounds unacknowledged messages per consumer;
	// prefetch_size 0 means no byte limit; global false is per-consumer
	err := channel.Qos(
		w.prefetchCount, // prefetch count
		0,               // prefetch size
		false,           // global
	)

	if err != nil {
		return nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	w.logger.Info("RabbitMQ QoS configured",
		slog.Int("prefetch_count", w.prefetchCount),
	)

	deliveries, err := w.rabbitClient.Consume(w.workerID)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("worker_id", w.workerID),
	)

	return deliveries, nil
}

// setupCancelConsumer binds this instance to the broadcast cancel
// exchange and returns its delivery channel
func (w *Worker) setupCancelConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.rabbitClient.ConsumeBroadcast(w.workerID + "-cancel")
	if err != nil {
		return nil, fmt.Errorf("failed to start cancel consumer: %w", err)
	}

	return deliveries, nil
}

// parseRunMessage validates and decodes an execution run message.
func parseRunMessage(body []byte) (messaging.RunMessage, error) {
	var msg messaging.RunMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("malformed run message: %w", err)
	}

	if _, err := uuid.Parse(msg.ExecutionID); err != nil {
		return msg, fmt.Errorf("invalid execution_id %q: %w", msg.ExecutionID, err)
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		return msg, fmt.Errorf("invalid job_id %q: %w", msg.JobID, err)
	}

	return msg, nil
}

// parseCancelMessage validates and decodes a broadcast cancel message.
func parseCancelMessage(body []byte) (messaging.CancelMessage, error) {
	var msg messaging.CancelMessage
	if err := json.Unmarshal(body, &msg); err != nil {
		return msg, fmt.Errorf("malformed cancel message: %w", err)
	}

	if _, err := uuid.Parse(msg.ExecutionID); err != nil {
		return msg, fmt.Errorf("invalid execution_id %q: %w", msg.ExecutionID, err)
	}

	return msg, nil
}

// startMessageDispatcher listens to run deliveries and dispatches them to
// the worker pool. It blocks until the context is canceled or the
// delivery channel closes.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Message dispatcher started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			msg, err := parseRunMessage(delivery.Body)
			if err != nil {
				w.logger.Error("Dropping unparseable run message",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				// NACK without requeue; malformed messages go to the DLQ
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message",
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			job := &runJob{msg: msg, deliveryTag: delivery.DeliveryTag}

			select {
			case w.jobsChan <- job:
				w.logger.Debug("Execution dispatched to worker pool",
					slog.String("execution_id", msg.ExecutionID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.logger.Info("Message dispatcher stopped while dispatching")
				// NACK with requeue so another instance picks it up
				if nackErr := delivery.Nack(false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message on shutdown",
						slog.String("error", nackErr.Error()),
					)
				}
				return
			}
		}
	}
}

// startCancelListener reacts to broadcast cancellations. Deliveries are
// auto-acked; a cancel for an execution this instance does not hold is
// simply ignored.
func (w *Worker) startCancelListener(ctx context.Context, deliveries <-chan amqp.Delivery) {
	w.logger.Info("Cancel listener started",
		slog.String("worker_id", w.workerID),
	)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Cancel listener stopped - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("Cancel delivery channel closed")
				return
			}

			msg, err := parseCancelMessage(delivery.Body)
			if err != nil {
				w.logger.Error("Dropping unparseable cancel message",
					slog.String("error", err.Error()),
					slog.String("body", string(delivery.Body)),
				)
				continue
			}

			if w.cancelExecution(msg.ExecutionID) {
				w.logger.Info("Execution canceled by broadcast",
					slog.String("execution_id", msg.ExecutionID),
					slog.String("worker_id", w.workerID),
				)
			} else {
				w.logger.Debug("Cancel broadcast for execution not held here",
					slog.String("execution_id", msg.ExecutionID),
				)
			}
		}
	}
}
