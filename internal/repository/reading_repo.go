package repository

import (
	"context"
	"database/sql"
	"fmt"

	"smart_office/internal/models"
)

type ReadingSQLite struct {
	db *sql.DB
}

func NewReadingSQLite(db *sql.DB) *ReadingSQLite { return &ReadingSQLite{db: db} }

var _ ReadingRepo = (*ReadingSQLite)(nil)

const (
	insertReadingSQL = `
		INSERT INTO sensor_data (device_id, light, temperature, humidity, flame, rgb_status, observed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	selectReadingsSQL = `
		SELECT id, device_id, light, temperature, humidity, flame, rgb_status, observed_at
		FROM sensor_data WHERE device_id = ?
		ORDER BY observed_at DESC, id DESC
		LIMIT ?
	`
)

// Append stores one reading. Absent measurements are written as NULL.
func (r *ReadingSQLite) Append(ctx context.Context, rec models.SensorRecord) error {
	_, err := r.db.ExecContext(ctx, insertReadingSQL,
		rec.DeviceID,
		rec.Light,
		rec.Temperature,
		rec.Humidity,
		rec.Flame,
		rec.RGBStatus,
		toMillis(rec.ObservedAt),
	)
	if err != nil {
		return fmt.Errorf("insert reading for %q: %w", rec.DeviceID, err)
	}
	return nil
}

// Latest returns the newest stored reading, or (nil, nil) if there is none.
func (r *ReadingSQLite) Latest(ctx context.Context, deviceID string) (*models.SensorRecord, error) {
	recs, err := r.History(ctx, deviceID, 1)
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	return &recs[0], nil
}

// History returns up to limit readings, newest first.
func (r *ReadingSQLite) History(ctx context.Context, deviceID string, limit int) ([]models.SensorRecord, error) {
	rows, err := r.db.QueryContext(ctx, selectReadingsSQL, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("select readings for %q: %w", deviceID, err)
	}
	defer rows.Close()

	out := make([]models.SensorRecord, 0, limit)
	for rows.Next() {
		var (
			rec models.SensorRecord
			ms  int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.DeviceID,
			&rec.Light,
			&rec.Temperature,
			&rec.Humidity,
			&rec.Flame,
			&rec.RGBStatus,
			&ms,
		); err != nil {
			return nil, err
		}
		rec.ObservedAt = fromMillis(ms)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
