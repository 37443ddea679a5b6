package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"smart_office/internal/models"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

type OperatorRepo interface {
	Create(ctx context.Context, op models.Operator) (int, error)
	// GetByUsername returns (nil, nil) when no such operator exists.
	GetByUsername(ctx context.Context, username string) (*models.Operator, error)
}

type ReadingRepo interface {
	Append(ctx context.Context, r models.SensorRecord) error
	// Latest returns (nil, nil) when the device has never reported.
	Latest(ctx context.Context, deviceID string) (*models.SensorRecord, error)
	History(ctx context.Context, deviceID string, limit int) ([]models.SensorRecord, error)
}

type DeviceRepo interface {
	Save(ctx context.Context, s models.DeviceState) error
	List(ctx context.Context) ([]models.DeviceState, error)
}

type AlarmRepo interface {
	Append(ctx context.Context, a models.AlarmRecord) (models.AlarmRecord, error)
	List(ctx context.Context, f models.AlarmFilter) ([]models.AlarmRecord, error)
	UpdateStatus(ctx context.Context, id string, status models.AlarmStatus, remark string, at time.Time) error
}

type ConfigRepo interface {
	ThresholdValues(ctx context.Context) (map[string]float64, error)
	List(ctx context.Context, typ string) ([]models.ConfigEntry, error)
	Get(ctx context.Context, key string) (*models.ConfigEntry, error)
	Set(ctx context.Context, e models.ConfigEntry) error
}

type ControlLogRepo interface {
	Record(ctx context.Context, e models.ControlLogEntry) error
}

type Repository struct {
	Readings   ReadingRepo
	Devices    DeviceRepo
	Alarms     AlarmRepo
	Config     ConfigRepo
	ControlLog ControlLogRepo
	Operators  OperatorRepo
}

// NewRepository wires every SQLite-backed repository. The control log can be
// swapped for another backend by the caller.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Readings:   NewReadingSQLite(db),
		Devices:    NewDeviceSQLite(db),
		Alarms:     NewAlarmSQLite(db),
		Config:     NewConfigSQLite(db),
		ControlLog: NewControlLogSQLite(db),
		Operators:  NewOperatorSQLite(db),
	}
}

// toMillis stores t as epoch milliseconds; a zero time means "now".
func toMillis(t time.Time) int64 {
	if t.IsZero() {
		return time.Now().UnixMilli()
	}
	return t.UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
