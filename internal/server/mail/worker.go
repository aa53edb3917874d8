package mail

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/smtp"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/verdantlabs/accountd/internal/logging"
)

// Worker is the background consumer that drains the notification queue and
// delivers each message over SMTP. It runs outside the request path; retries
// happen through broker redelivery, never inside the workflow.
type Worker struct {
	url      string
	queue    string
	from     string
	smtpAddr string
	logger   logging.Logger

	// sendMail is a seam for tests; defaults to smtp.SendMail.
	sendMail func(addr, from string, to []string, msg []byte) error
}

// NewWorker constructs a delivery worker for the given broker URL and queue.
func NewWorker(url, queue, from, smtpAddr string, logger logging.Logger) *Worker {
	return &Worker{
		url:      url,
		queue:    queue,
		from:     from,
		smtpAddr: smtpAddr,
		logger:   logger.With("module", "mail_worker"),
		sendMail: func(addr, from string, to []string, msg []byte) error {
			return smtp.SendMail(addr, nil, from, to, msg)
		},
	}
}

// Run consumes the notification queue until ctx is cancelled. Broker
// failures are retried with exponential backoff; a failed delivery is
// rejected without requeue so a poisoned message cannot loop forever.
func (w *Worker) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		conn, err := amqp.Dial(w.url)
		if err != nil {
			w.logger.Warn(ctx, "broker dial failed", "error", err, "retry_in", backoff.String())
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := w.consumeLoop(ctx, conn); err != nil {
			_ = conn.Close()
			if errors.Is(err, context.Canceled) {
				return err
			}
			w.logger.Warn(ctx, "consume loop ended", "error", err)
			continue
		}
	}
}

func (w *Worker) consumeLoop(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if _, err := ch.QueueDeclare(w.queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(w.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return context.Canceled
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := w.deliver(d.Body); err != nil {
				w.logger.Error(ctx, "delivery failed", "error", err)
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// deliver renders and sends one notification.
func (w *Worker) deliver(body []byte) error {
	var n Notification
	if err := json.Unmarshal(body, &n); err != nil {
		return fmt.Errorf("unmarshal notification: %w", err)
	}
	msg := renderMessage(w.from, n)
	if err := w.sendMail(w.smtpAddr, w.from, []string{n.Recipient}, msg); err != nil {
		return fmt.Errorf("smtp send to %s: %w", n.Recipient, err)
	}
	return nil
}

// renderMessage builds a minimal RFC 5322 message for the notification.
func renderMessage(from string, n Notification) []byte {
	body := fmt.Sprintf("Hello %s,\r\n\r\n"+
		"Thank you for registering. Please verify your account by visiting:\r\n%s\r\n",
		n.Username, n.VerificationURL)
	msg := fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\nMIME-Version: 1.0\r\nContent-Type: text/plain; charset=utf-8\r\n\r\n%s",
		from, n.Recipient, n.Subject, body)
	return []byte(msg)
}
