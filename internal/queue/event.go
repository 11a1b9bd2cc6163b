// Package queue contains the auth event definitions, the RabbitMQ publisher
// and the background consumer that writes the audit log.
package queue

import "time"

// AuthQueueName is the durable queue carrying auth lifecycle events.
const AuthQueueName = "auth.events"

// Event types published by the services.
const (
	EventUserRegistered = "user.registered"
	EventUserLoggedIn   = "user.logged_in"
	EventSessionRevoked = "session.revoked"
	EventUserDeleted    = "user.deleted"
)

// AuthEvent is the message body published to the auth.events queue. Raw tokens
// and password material never appear in events.
type AuthEvent struct {
	Type   string    `json:"type"`
	UserID uint64    `json:"user_id"`
	Email  string    `json:"email,omitempty"`
	At     time.Time `json:"at"`
}
