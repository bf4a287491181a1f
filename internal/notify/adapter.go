// Package notify delivers maintenance digests to chat platforms and issue
// trackers.
package notify

import "context"

// Adapter is the interface that platform-specific implementations must satisfy.
type Adapter interface {
	// Connect prepares the platform client. Send must only be called after
	// Connect.
	Connect(ctx context.Context) error

	// Send delivers an outbound message to the platform.
	Send(ctx context.Context, msg OutboundMessage) error

	// Close releases the platform connection.
	Close() error
}

// OutboundMessage represents a message to be delivered.
type OutboundMessage struct {
	ChannelID string           // target channel; adapters fall back to their default
	Text      string           // headline or plain text
	Events    []FormattedEvent // structured attachments
}

// FormattedEvent is one attachment of a message, e.g. the report for one
// vessel.
type FormattedEvent struct {
	Title    string
	Body     string
	Severity string // "info", "warning", "error", "success"
	Color    string // sidebar color hint, e.g. "#e53935"
	Fields   []Field
}

// Field is a key-value pair displayed in an event attachment.
type Field struct {
	Name  string
	Value string
	Short bool // hint: render side-by-side with another field
}
