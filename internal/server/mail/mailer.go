// Package mail defines the notification payload exchanged over the message
// broker and the Mailer contract the services layer depends on. Delivery is
// asynchronous and best-effort: the workflow only hands a notification to the
// broker and never waits for delivery.
package mail

import "context"

// Notification is the message published for every outbound account email.
// It carries enough context for the delivery worker to render and send the
// message without querying the primary database.
type Notification struct {
	Recipient       string `json:"recipient"`
	Subject         string `json:"subject"`
	Username        string `json:"username"`
	VerificationURL string `json:"verification_url,omitempty"`
}

// Mailer hands a notification off for asynchronous delivery. Implementations
// must not block on the actual send; returning nil means the notification is
// durably enqueued, not that it was delivered.
type Mailer interface {
	Send(ctx context.Context, n Notification) error
}
