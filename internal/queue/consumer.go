package queue

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const auditLogPath = "logs/auth-audit.log"

// StartAuditConsumer connects to RabbitMQ, declares the auth.events queue and
// appends every event to logs/auth-audit.log in a single-line format. It runs
// a reconnect loop forever: broker outages are retried with exponential
// backoff and malformed messages are rejected without requeue so the service
// keeps operating.
func StartAuditConsumer(log *zap.Logger) {
	url := brokerURL()
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("audit consumer dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second // reset after successful connect

		if err := consumeLoop(conn, log); err != nil {
			log.Warn("audit consume loop ended, reconnecting", zap.Error(err))
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, log *zap.Logger) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer set QoS failed", zap.Error(err))
	}

	if _, err := ch.QueueDeclare(AuthQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	deliveries, err := ch.Consume(AuthQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range deliveries {
		if err := appendAuditLine(d.Body); err != nil {
			log.Error("write audit line failed", zap.Error(err))
			_ = d.Nack(false, false) // drop, do not requeue poison messages
			continue
		}
		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}

// appendAuditLine writes one event as a human-readable line.
func appendAuditLine(body []byte) error {
	var ev AuthEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("decode event: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(auditLogPath), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(auditLogPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	line := fmt.Sprintf("%s %s user=%d", ev.At.Format(time.RFC3339), ev.Type, ev.UserID)
	if ev.Email != "" {
		line += " email=" + ev.Email
	}
	_, err = fmt.Fprintln(f, line)
	return err
}
