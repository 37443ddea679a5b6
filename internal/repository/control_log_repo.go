package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"smart_office/internal/models"
)

type ControlLogSQLite struct {
	db *sql.DB
}

func NewControlLogSQLite(db *sql.DB) *ControlLogSQLite { return &ControlLogSQLite{db: db} }

var _ ControlLogRepo = (*ControlLogSQLite)(nil)

const insertControlLogSQL = `
	INSERT INTO control_log (id, device_id, action, trigger_type, result, error, issued_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
`

// Record appends one command audit entry.
func (r *ControlLogSQLite) Record(ctx context.Context, e models.ControlLogEntry) error {
	e = withControlLogDefaults(e)

	var errText *string
	if e.Error != "" {
		errText = &e.Error
	}
	if _, err := r.db.ExecContext(ctx, insertControlLogSQL,
		e.ID,
		e.DeviceID,
		e.Action,
		string(e.Trigger),
		string(e.Result),
		errText,
		e.IssuedAt.UnixMilli(),
	); err != nil {
		return fmt.Errorf("insert control log for %q: %w", e.DeviceID, err)
	}
	return nil
}

func withControlLogDefaults(e models.ControlLogEntry) models.ControlLogEntry {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.IssuedAt.IsZero() {
		e.IssuedAt = time.Now()
	}
	e.IssuedAt = e.IssuedAt.UTC()
	return e
}
