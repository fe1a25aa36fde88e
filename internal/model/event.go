package model

import "time"

// SecurityEvent is an immutable audit record. Once appended to the audit
// log its ID, Type and Timestamp never change; the log is the single
// source of truth for whether a security-relevant occurrence happened.
type SecurityEvent struct {
	ID          string                 `json:"id"`
	Type        EventType              `json:"type"`
	Timestamp   time.Time              `json:"timestamp"`
	Description string                 `json:"description"`
	Metadata    map[string]interface{} `json:"metadata,omitempty"`
	Location    *LocationFix           `json:"location,omitempty"`
	PhotoPath   *string                `json:"photoPath,omitempty"`
}

// EventType identifies the kind of security occurrence being recorded.
type EventType string

// Security event types
const (
	EventAuthFailure       EventType = "auth.failure"
	EventCommandReceived   EventType = "command.received"
	EventCommandExecuted   EventType = "command.executed"
	EventCommandRejected   EventType = "command.rejected"
	EventConfigChanged     EventType = "config.changed"
	EventConfigRejected    EventType = "config.rejected"
	EventPasswordChanged   EventType = "password.changed"
	EventDeviceTrusted     EventType = "device.trusted"
	EventDeviceUntrusted   EventType = "device.untrusted"
	EventDeviceConnected   EventType = "device.connected"
	EventCallLogged        EventType = "call.logged"
	EventLogsCleared       EventType = "logs.cleared"
	EventLogsExported      EventType = "logs.exported"
	EventLogsImported      EventType = "logs.imported"
	EventSimCardChanged    EventType = "sim.changed"
	EventAirplaneModeAlert EventType = "airplane_mode.alert"
	EventAgentPanic        EventType = "agent.panic"
)

// Rejection reasons recorded in command.rejected event metadata.
const (
	RejectReasonNotEmergencyContact = "not_emergency_contact"
	RejectReasonInvalidPassword     = "invalid_password"
	RejectReasonLockedOut           = "locked_out"
)

// LocationFix is a point-in-time device position produced by the
// platform location collaborator. Opaque to the audit log.
type LocationFix struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Accuracy  float64   `json:"accuracy"`
	FixedAt   time.Time `json:"fixedAt"`
}
