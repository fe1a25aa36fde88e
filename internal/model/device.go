package model

import "time"

// TrustedDevice is a peripheral identity allowlisted for data transfer.
// DeviceID is the sole identity and equality key; name and description
// are informational only.
type TrustedDevice struct {
	DeviceID    string    `json:"deviceId"`
	DeviceName  string    `json:"deviceName"`
	Description string    `json:"description,omitempty"`
	AddedAt     time.Time `json:"addedAt"`
}

// ConnectionEvent describes a peripheral attaching to the device,
// reported by the platform USB collaborator.
type ConnectionEvent struct {
	DeviceID   string    `json:"deviceId"`
	DeviceName string    `json:"deviceName"`
	OccurredAt time.Time `json:"occurredAt"`
}

// TransferDecision is the outcome of a connection trust check.
type TransferDecision string

const (
	// TransferAllowed keeps the data-transfer mode active.
	TransferAllowed TransferDecision = "allow"
	// TransferDenied reverts the connection to charging-only.
	TransferDenied TransferDecision = "charge_only"
)
