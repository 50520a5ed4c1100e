package rabbitmq

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/streadway/amqp"

	"github.com/magabrotheeeer/dynasty-membership/internal/lib/sl"
)

// ErrDrop tells the consumer to reject a message without requeueing it.
var ErrDrop = errors.New("drop message")

// ConsumerMessage consumes queueName until ctx is done, running at most 10 handlers at once.
// A nil handler error acks, ErrDrop rejects, any other error requeues.
func ConsumerMessage(ctx context.Context, log *slog.Logger, ch *amqp.Channel, queueName string, handler func([]byte) error) error {
	const op = "rabbitmq.ConsumerMessage"
	delivery, err := ch.Consume(
		queueName,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	log = log.With(slog.String("op", op), slog.String("queue", queueName))
	sem := make(chan struct{}, 10)
	go func() {
		for {
			select {
			case d, ok := <-delivery:
				if !ok {
					return
				}
				sem <- struct{}{}
				go func(d amqp.Delivery) {
					defer func() { <-sem }()
					err := handler(d.Body)
					switch {
					case err == nil:
						if ackErr := d.Ack(false); ackErr != nil {
							log.Error("failed to ack message", sl.Err(ackErr))
						}
					case errors.Is(err, ErrDrop):
						log.Warn("dropping message", sl.Err(err))
						if nackErr := d.Nack(false, false); nackErr != nil {
							log.Error("failed to reject message", sl.Err(nackErr))
						}
					default:
						log.Error("handler failed, requeueing", sl.Err(err))
						if nackErr := d.Nack(false, true); nackErr != nil {
							log.Error("failed to nack message", sl.Err(nackErr))
						}
					}
				}(d)
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
