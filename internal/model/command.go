package model

// CommandType is one of the four remote actions the agent can perform.
type CommandType string

const (
	CommandLock   CommandType = "lock"
	CommandWipe   CommandType = "wipe"
	CommandLocate CommandType = "locate"
	CommandAlarm  CommandType = "alarm"
)

// RemoteCommand is a parsed, not-yet-authorized instruction extracted
// from an inbound text. It is consumed exactly once by the authenticator
// and never persisted; only its authorization outcome is recorded, and
// the raw password value must never reach the audit log.
type RemoteCommand struct {
	Type     CommandType
	Password string
	Sender   string
}
