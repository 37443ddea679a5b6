package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"smart_office/internal/models"
)

type DeviceSQLite struct {
	db *sql.DB
}

func NewDeviceSQLite(db *sql.DB) *DeviceSQLite { return &DeviceSQLite{db: db} }

var _ DeviceRepo = (*DeviceSQLite)(nil)

const (
	// The WHERE clause keeps a late write of an older snapshot from
	// regressing last_seen_at.
	upsertDeviceSQL = `
		INSERT INTO device_state (device_id, status, last_seen_at, actuators, hvac_mode)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			status=excluded.status,
			last_seen_at=excluded.last_seen_at,
			actuators=excluded.actuators,
			hvac_mode=excluded.hvac_mode
		WHERE excluded.last_seen_at >= device_state.last_seen_at
	`

	selectDevicesSQL = `
		SELECT device_id, status, last_seen_at, actuators, hvac_mode
		FROM device_state ORDER BY device_id
	`
)

// Save upserts a device snapshot.
func (r *DeviceSQLite) Save(ctx context.Context, s models.DeviceState) error {
	actuators := s.Actuators
	if actuators == nil {
		actuators = map[models.ActuatorKind]bool{}
	}
	b, err := json.Marshal(actuators)
	if err != nil {
		return fmt.Errorf("marshal actuators for %q: %w", s.DeviceID, err)
	}

	var mode *string
	if s.HVACMode != "" {
		m := string(s.HVACMode)
		mode = &m
	}

	if _, err := r.db.ExecContext(ctx, upsertDeviceSQL,
		s.DeviceID,
		string(s.Status),
		toMillis(s.LastSeenAt),
		string(b),
		mode,
	); err != nil {
		return fmt.Errorf("upsert device %q: %w", s.DeviceID, err)
	}
	return nil
}

// List loads every stored device; used to hydrate the registry at startup.
func (r *DeviceSQLite) List(ctx context.Context) ([]models.DeviceState, error) {
	rows, err := r.db.QueryContext(ctx, selectDevicesSQL)
	if err != nil {
		return nil, fmt.Errorf("select devices: %w", err)
	}
	defer rows.Close()

	var out []models.DeviceState
	for rows.Next() {
		var (
			s         models.DeviceState
			status    string
			ms        int64
			actuators string
			mode      sql.NullString
		)
		if err := rows.Scan(&s.DeviceID, &status, &ms, &actuators, &mode); err != nil {
			return nil, err
		}
		s.Status = models.OnlineStatus(status)
		s.LastSeenAt = fromMillis(ms)
		s.HVACMode = models.HVACMode(mode.String)
		s.Actuators = map[models.ActuatorKind]bool{}
		if actuators != "" {
			if err := json.Unmarshal([]byte(actuators), &s.Actuators); err != nil {
				return nil, fmt.Errorf("decode actuators for %q: %w", s.DeviceID, err)
			}
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
