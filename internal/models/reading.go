package models

import "time"

// ActuatorKind identifies one controllable output on a device.
type ActuatorKind string

const (
	ActuatorLight      ActuatorKind = "LIGHT"
	ActuatorBuzzer     ActuatorKind = "BUZZER"
	ActuatorHumidifier ActuatorKind = "HUMIDIFIER"
	ActuatorHVAC       ActuatorKind = "HVAC"
)

// TelemetryReading is one decoded sensor message. Nil fields were absent on the wire.
type TelemetryReading struct {
	DeviceID       string
	Light          *float64
	Temperature    *float64
	Humidity       *float64
	FlameDetected  *bool
	ActuatorStates map[ActuatorKind]bool
	ObservedAt     time.Time
}

// SensorPayload is the inbound JSON published by the nodes on the sensor topic.
type SensorPayload struct {
	DeviceID     string   `json:"deviceId"`
	Light        *float64 `json:"light"`
	Temperature  *float64 `json:"temperature"`
	Humidity     *float64 `json:"humidity"`
	Flame        *bool    `json:"flame"`
	RGBStatus    *bool    `json:"rgbStatus"`
	BuzzerStatus *bool    `json:"buzzerStatus"`
	Timestamp    *int64   `json:"timestamp"` // epoch millis
}

// LatestReading is the normalized view written to the read cache and pushed
// to live subscribers. Every field is always present so clients see one shape.
type LatestReading struct {
	DeviceID    string   `json:"deviceId"`
	Light       *float64 `json:"light"`
	Temperature *float64 `json:"temperature"`
	Humidity    *float64 `json:"humidity"`
	Flame       bool     `json:"flame"`
	RGBStatus   bool     `json:"rgbStatus"`
	Online      bool     `json:"online"`
	Timestamp   int64    `json:"timestamp"`
}

// SensorRecord is one persisted row of sensor_data.
type SensorRecord struct {
	ID          int64     `json:"id"`
	DeviceID    string    `json:"deviceId"`
	Light       *float64  `json:"light"`
	Temperature *float64  `json:"temperature"`
	Humidity    *float64  `json:"humidity"`
	Flame       *bool     `json:"flame"`
	RGBStatus   *bool     `json:"rgbStatus"`
	ObservedAt  time.Time `json:"observedAt"`
}
