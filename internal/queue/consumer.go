package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/library-seat-reservation/internal/logger"
)

// StartEventConsumer connects to the broker, declares the durable
// reservation.events queue and appends each event to logs/reservation.log.
// It runs a reconnect loop forever; processing errors reject the offending
// message without requeueing so a poison message cannot wedge the queue.
func StartEventConsumer() {
	log := logger.Get()

	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Warn("event consumer dial failed", "err", err, "retry_in", backoff.String())
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			log.Warn("event consumer loop ended", "err", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		logger.Get().Warn("event consumer set qos failed", "err", err)
	}

	if _, err := ch.QueueDeclare(eventsQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(eventsQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := recordEvent(d.Body); err != nil {
			logger.Get().Warn("event consumer record failed", "err", err)
			_ = d.Nack(false, false)
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func recordEvent(body []byte) error {
	var ev ReservationEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "reservation.log"), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	line := fmt.Sprintf("[%s] %s | reservation_id=%d | user_id=%d | seat=%s | slot=%s | status=%s | reason=%s | %s\n",
		ev.OccurredAt, ev.Kind, ev.ReservationID, ev.UserID, ev.SeatNo, ev.Slot, ev.Status, ev.Reason, ev.Message)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
