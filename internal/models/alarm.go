package models

import "time"

type AlarmKind string

const (
	AlarmFire     AlarmKind = "FIRE"
	AlarmTemp     AlarmKind = "TEMP"
	AlarmHumidity AlarmKind = "HUMIDITY"
	AlarmLight    AlarmKind = "LIGHT"
)

func (k AlarmKind) Valid() bool {
	switch k {
	case AlarmFire, AlarmTemp, AlarmHumidity, AlarmLight:
		return true
	}
	return false
}

type Severity string

const (
	SeverityInfo     Severity = "INFO"
	SeverityWarning  Severity = "WARNING"
	SeverityCritical Severity = "CRITICAL"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	}
	return false
}

type AlarmStatus string

const (
	AlarmUnhandled AlarmStatus = "UNHANDLED"
	AlarmHandling  AlarmStatus = "HANDLING"
	AlarmHandled   AlarmStatus = "HANDLED"
	AlarmIgnored   AlarmStatus = "IGNORED"
)

func (s AlarmStatus) Valid() bool {
	switch s {
	case AlarmUnhandled, AlarmHandling, AlarmHandled, AlarmIgnored:
		return true
	}
	return false
}

// AlarmEvent is a confirmed, non-suppressed hazard.
type AlarmEvent struct {
	DeviceID string    `json:"deviceId"`
	Kind     AlarmKind `json:"alarmType"`
	Severity Severity  `json:"level"`
	Message  string    `json:"message"`
	RaisedAt time.Time `json:"raisedAt"`
}

// AlarmMessage is the handoff shape, also what devices publish on the alarm topic.
type AlarmMessage struct {
	DeviceID  string    `json:"deviceId"`
	AlarmType AlarmKind `json:"alarmType"`
	Level     Severity  `json:"level"`
	Message   string    `json:"message"`
	Timestamp int64     `json:"timestamp"` // epoch millis
}

// Handoff converts the event into the shape given to persistence and broadcast.
func (e AlarmEvent) Handoff() AlarmMessage {
	return AlarmMessage{
		DeviceID:  e.DeviceID,
		AlarmType: e.Kind,
		Level:     e.Severity,
		Message:   e.Message,
		Timestamp: e.RaisedAt.UnixMilli(),
	}
}

// AlarmRecord is a persisted alarm_log row.
type AlarmRecord struct {
	ID        string      `json:"id"`
	DeviceID  string      `json:"deviceId"`
	AlarmType AlarmKind   `json:"alarmType"`
	Level     Severity    `json:"level"`
	Message   string      `json:"message"`
	Status    AlarmStatus `json:"status"`
	RaisedAt  time.Time   `json:"raisedAt"`
	HandledAt *time.Time  `json:"handledAt,omitempty"`
	Remark    string      `json:"remark,omitempty"`
}

// AlarmFilter narrows an alarm listing; zero values mean "any".
type AlarmFilter struct {
	From     time.Time
	To       time.Time
	Type     AlarmKind
	Status   AlarmStatus
	DeviceID string
}
