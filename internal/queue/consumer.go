package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Tail consumes the activity queue and writes one line per event to w
// until ctx is cancelled or the broker closes the delivery channel.
// Undecodable messages are rejected without requeue to avoid tight loops.
func Tail(ctx context.Context, url string, w io.Writer) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial broker: %w", err)
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("events: set QoS failed: %v", err)
	}
	if _, err := ch.QueueDeclare(ActivityQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.ConsumeWithContext(ctx, ActivityQueue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				if ctx.Err() != nil {
					return nil
				}
				return errors.New("deliveries channel closed")
			}
			line, err := formatMessage(d.Body)
			if err != nil {
				log.Printf("events: %v", err)
				_ = d.Nack(false, false)
				continue
			}
			if _, err := fmt.Fprintln(w, line); err != nil {
				_ = d.Nack(false, true)
				return fmt.Errorf("write event: %w", err)
			}
			_ = d.Ack(false)
		}
	}
}

func formatMessage(body []byte) (string, error) {
	var ev ActivityEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return "", fmt.Errorf("unmarshal: %w", err)
	}
	if ev.Type == "" {
		return "", errors.New("event without type")
	}
	return ev.Line(), nil
}
