// Package mqtt provides MQTT publishing with abstraction for testing.
package mqtt

import (
	"encoding/json"
	"time"

	"github.com/sweeney/grinder/internal/logic"
)

// Topic is the MQTT topic for grinder state changes.
const Topic = "kitchen/grinder/events"

// TopicSystem is the MQTT topic for system lifecycle events.
const TopicSystem = "kitchen/grinder/system"

// Publisher publishes events to MQTT.
type Publisher interface {
	// Publish sends a state change to the broker.
	// Returns error if publishing fails (should not stop the control loop).
	Publish(t logic.Transition) error

	// PublishSystem sends a system lifecycle event to the broker.
	PublishSystem(event SystemEvent) error

	// Close disconnects from the broker.
	Close() error
}

// ConnectionStatus reports whether the MQTT connection is active.
type ConnectionStatus interface {
	IsConnected() bool
}

// SystemEvent represents a system lifecycle event (e.g., startup, shutdown, heartbeat).
type SystemEvent struct {
	Timestamp  time.Time
	Event      string // "STARTUP", "SHUTDOWN" or "HEARTBEAT"
	Reason     string // e.g., "SIGTERM", "RESTART"
	RawPayload []byte // Pre-formatted JSON payload; if set, FormatSystemPayload returns it directly
	Retained   bool
}

// Payload represents the MQTT message payload structure.
type Payload struct {
	Grinder GrinderPayload `json:"grinder"`
}

// GrinderPayload contains the state change details.
type GrinderPayload struct {
	Timestamp string `json:"timestamp"`
	Event     string `json:"event"`
	From      string `json:"from"`
	Reason    string `json:"reason"`
	Amount    uint8  `json:"amount,omitempty"`
}

// FormatPayload creates the JSON payload for a state change.
func FormatPayload(t logic.Transition) ([]byte, error) {
	payload := Payload{
		Grinder: GrinderPayload{
			Timestamp: t.Timestamp.UTC().Format(time.RFC3339),
			Event:     t.To.String(),
			From:      t.From.String(),
			Reason:    t.Reason,
			Amount:    t.Amount,
		},
	}
	return json.Marshal(payload)
}

// SystemPayload is the small system message used when there is no status
// snapshot to send: the broker will and RECONNECTED.
type SystemPayload struct {
	System struct {
		Timestamp string `json:"timestamp"`
		Event     string `json:"event"`
		Reason    string `json:"reason,omitempty"`
	} `json:"system"`
}

// FormatSystemPayload returns event.RawPayload when set, otherwise a
// SystemPayload.
func FormatSystemPayload(event SystemEvent) ([]byte, error) {
	if event.RawPayload != nil {
		return event.RawPayload, nil
	}
	var p SystemPayload
	p.System.Timestamp = event.Timestamp.UTC().Format(time.RFC3339)
	p.System.Event = event.Event
	p.System.Reason = event.Reason
	return json.Marshal(p)
}

// Discard is a Publisher used when no broker is configured.
type Discard struct{}

func (Discard) Publish(logic.Transition) error { return nil }
func (Discard) PublishSystem(SystemEvent) error { return nil }
func (Discard) Close() error                    { return nil }
func (Discard) IsConnected() bool               { return false }
