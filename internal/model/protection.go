package model

// ProtectionConfig is the device's current protection posture. It is
// persisted wholesale: updates replace the entire struct, never merge.
type ProtectionConfig struct {
	Protected           bool `json:"protected"`
	KioskMode           bool `json:"kioskMode"`
	StealthMode         bool `json:"stealthMode"`
	PanicMode           bool `json:"panicMode"`
	BlockSettings       bool `json:"blockSettings"`
	BlockFileManagers   bool `json:"blockFileManagers"`
	MonitorCalls        bool `json:"monitorCalls"`
	MonitorAirplaneMode bool `json:"monitorAirplaneMode"`
	MonitorSimCard      bool `json:"monitorSimCard"`
	DailyReport         bool `json:"dailyReport"`

	// EmergencyContact is the sole phone number authorized to issue
	// remote commands and receive reports.
	EmergencyContact string `json:"emergencyContact"`
}

// DefaultProtectionConfig returns the all-disabled posture used before
// any configuration has been persisted.
func DefaultProtectionConfig() ProtectionConfig {
	return ProtectionConfig{}
}
