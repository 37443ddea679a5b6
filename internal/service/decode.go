package service

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"smart_office/internal/models"
)

// ErrDecode is the class of every malformed inbound payload.
var ErrDecode = errors.New("decode error")

// minEpochMillis rejects device clocks that are not wall time (firmware
// ticks_ms counters). 1e12 ms is 2001-09-09.
const minEpochMillis = 1_000_000_000_000

const DefaultMaxClockSkew = time.Minute

// DecodeError describes why a payload was dropped.
type DecodeError struct {
	Field  string
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	msg := "decode " + e.Field + ": " + e.Reason
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *DecodeError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrDecode, e.Err}
	}
	return []error{ErrDecode}
}

func decodeJSON(payload []byte, v any) error {
	if len(bytes.TrimSpace(payload)) == 0 {
		return &DecodeError{Field: "payload", Reason: "empty"}
	}
	if err := json.Unmarshal(payload, v); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return &DecodeError{Field: typeErr.Field, Reason: "expected " + typeErr.Type.String(), Err: err}
		}
		return &DecodeError{Field: "payload", Reason: "malformed json", Err: err}
	}
	return nil
}

func requireDeviceID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", &DecodeError{Field: "deviceId", Reason: "missing"}
	}
	return id, nil
}

// observedAt trusts the device timestamp only when it is epoch millis and
// not further than maxSkew ahead of received.
func observedAt(ts *int64, received time.Time, maxSkew time.Duration) time.Time {
	if ts != nil && *ts >= minEpochMillis {
		t := time.UnixMilli(*ts)
		if !t.After(received.Add(maxSkew)) {
			return t.UTC()
		}
	}
	return received.UTC()
}

// DecodeReading parses a sensor payload into a reading.
func DecodeReading(payload []byte, received time.Time, maxSkew time.Duration) (models.TelemetryReading, error) {
	var p models.SensorPayload
	if err := decodeJSON(payload, &p); err != nil {
		return models.TelemetryReading{}, err
	}
	id, err := requireDeviceID(p.DeviceID)
	if err != nil {
		return models.TelemetryReading{}, err
	}

	actuators := make(map[models.ActuatorKind]bool, 2)
	if p.RGBStatus != nil {
		actuators[models.ActuatorLight] = *p.RGBStatus
	}
	if p.BuzzerStatus != nil {
		actuators[models.ActuatorBuzzer] = *p.BuzzerStatus
	}

	return models.TelemetryReading{
		DeviceID:       id,
		Light:          p.Light,
		Temperature:    p.Temperature,
		Humidity:       p.Humidity,
		FlameDetected:  p.Flame,
		ActuatorStates: actuators,
		ObservedAt:     observedAt(p.Timestamp, received, maxSkew),
	}, nil
}

// DecodeAlarm parses a device-originated alarm. A missing level defaults to WARNING.
func DecodeAlarm(payload []byte) (models.AlarmMessage, error) {
	var m models.AlarmMessage
	if err := decodeJSON(payload, &m); err != nil {
		return models.AlarmMessage{}, err
	}
	id, err := requireDeviceID(m.DeviceID)
	if err != nil {
		return models.AlarmMessage{}, err
	}
	m.DeviceID = id
	m.AlarmType = models.AlarmKind(strings.ToUpper(strings.TrimSpace(string(m.AlarmType))))
	if !m.AlarmType.Valid() {
		return models.AlarmMessage{}, &DecodeError{Field: "alarmType", Reason: fmt.Sprintf("unknown %q", m.AlarmType)}
	}
	m.Level = models.Severity(strings.ToUpper(strings.TrimSpace(string(m.Level))))
	if m.Level == "" {
		m.Level = models.SeverityWarning
	}
	if !m.Level.Valid() {
		return models.AlarmMessage{}, &DecodeError{Field: "level", Reason: fmt.Sprintf("unknown %q", m.Level)}
	}
	return m, nil
}

// DecodeStatus parses a device status report.
func DecodeStatus(payload []byte) (models.DeviceStatusMessage, error) {
	var m models.DeviceStatusMessage
	if err := decodeJSON(payload, &m); err != nil {
		return models.DeviceStatusMessage{}, err
	}
	id, err := requireDeviceID(m.DeviceID)
	if err != nil {
		return models.DeviceStatusMessage{}, err
	}
	m.DeviceID = id
	m.Status = models.OnlineStatus(strings.ToUpper(strings.TrimSpace(string(m.Status))))
	if !m.Status.Valid() {
		return models.DeviceStatusMessage{}, &DecodeError{Field: "status", Reason: fmt.Sprintf("unknown %q", m.Status)}
	}
	return m, nil
}

// DecodeConfigUpdate parses a config change signal.
func DecodeConfigUpdate(payload []byte) (models.ConfigUpdate, error) {
	var u models.ConfigUpdate
	if err := decodeJSON(payload, &u); err != nil {
		return models.ConfigUpdate{}, err
	}
	u.ConfigKey = strings.TrimSpace(u.ConfigKey)
	if u.ConfigKey == "" {
		return models.ConfigUpdate{}, &DecodeError{Field: "configKey", Reason: "missing"}
	}
	return u, nil
}
