package models

import "time"

type OnlineStatus string

const (
	StatusOnline  OnlineStatus = "ONLINE"
	StatusOffline OnlineStatus = "OFFLINE"
	StatusFault   OnlineStatus = "FAULT"
)

// Valid reports whether s is one of the known statuses.
func (s OnlineStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusFault:
		return true
	}
	return false
}

// DeviceState is the registry snapshot of one device.
type DeviceState struct {
	DeviceID   string                `json:"deviceId"`
	Status     OnlineStatus          `json:"status"`
	LastSeenAt time.Time             `json:"lastSeenAt"`
	Actuators  map[ActuatorKind]bool `json:"actuators"`
	HVACMode   HVACMode              `json:"hvacMode,omitempty"`
}

// DeviceStatusMessage is published by devices on the status topic and
// re-broadcast to live subscribers when liveness changes.
type DeviceStatusMessage struct {
	DeviceID  string       `json:"deviceId"`
	Status    OnlineStatus `json:"status"`
	Timestamp int64        `json:"timestamp,omitempty"`
}
