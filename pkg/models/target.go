package models

// ConnectionState mirrors the management server's host connection states.
type ConnectionState string

const (
	StateConnected    ConnectionState = "connected"
	StateMaintenance  ConnectionState = "maintenance"
	StateDisconnected ConnectionState = "disconnected"
	StateUnknown      ConnectionState = "unknown"
)

func ParseConnectionState(s string) ConnectionState {
	switch s {
	case "connected", "Connected":
		return StateConnected
	case "maintenance", "maintenanceMode", "Maintenance":
		return StateMaintenance
	case "disconnected", "notResponding", "Disconnected":
		return StateDisconnected
	default:
		return StateUnknown
	}
}

// Eligible reports whether a host in this state may be scanned and fetched.
func (s ConnectionState) Eligible() bool {
	return s == StateConnected || s == StateMaintenance
}

// Target is one managed host selected for a compliance run.
type Target struct {
	Name   string          `json:"name"`
	Ref    string          `json:"ref"`
	State  ConnectionState `json:"state"`
	Source string          `json:"source"`
}

// SkipEntry records a host excluded from a run and why.
type SkipEntry struct {
	Target string          `json:"target"`
	State  ConnectionState `json:"state"`
	Reason string          `json:"reason"`
}
