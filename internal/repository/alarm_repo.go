package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"smart_office/internal/models"
)

type AlarmSQLite struct {
	db *sql.DB
}

func NewAlarmSQLite(db *sql.DB) *AlarmSQLite { return &AlarmSQLite{db: db} }

var _ AlarmRepo = (*AlarmSQLite)(nil)

const (
	insertAlarmSQL = `
		INSERT INTO alarm_log (id, device_id, alarm_type, level, message, status, raised_at, remark)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateAlarmStatusSQL = `UPDATE alarm_log SET status = ?, remark = ?, handled_at = ? WHERE id = ?`

	selectAlarmsSQL = `SELECT id, device_id, alarm_type, level, message, status, raised_at, handled_at, remark FROM alarm_log`
)

// Append inserts a new alarm. Missing ID, status and raise time are filled in
// and the stored record is returned.
func (r *AlarmSQLite) Append(ctx context.Context, a models.AlarmRecord) (models.AlarmRecord, error) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.Status == "" {
		a.Status = models.AlarmUnhandled
	}
	if a.RaisedAt.IsZero() {
		a.RaisedAt = time.Now().UTC()
	}
	a.RaisedAt = a.RaisedAt.UTC().Truncate(time.Millisecond)

	_, err := r.db.ExecContext(ctx, insertAlarmSQL,
		a.ID,
		a.DeviceID,
		string(a.AlarmType),
		string(a.Level),
		a.Message,
		string(a.Status),
		a.RaisedAt.UnixMilli(),
		a.Remark,
	)
	if err != nil {
		return models.AlarmRecord{}, fmt.Errorf("insert alarm for %q: %w", a.DeviceID, err)
	}
	return a, nil
}

// List returns alarms filtered by [from, to] (inclusive), type, status and
// device, newest first.
func (r *AlarmSQLite) List(ctx context.Context, f models.AlarmFilter) ([]models.AlarmRecord, error) {
	var (
		conds []string
		args  []any
	)

	if !f.From.IsZero() {
		conds = append(conds, "raised_at >= ?")
		args = append(args, f.From.UnixMilli())
	}
	if !f.To.IsZero() {
		conds = append(conds, "raised_at <= ?")
		args = append(args, f.To.UnixMilli())
	}
	if typ := strings.ToUpper(strings.TrimSpace(string(f.Type))); typ != "" {
		conds = append(conds, "alarm_type = ?")
		args = append(args, typ)
	}
	if status := strings.ToUpper(strings.TrimSpace(string(f.Status))); status != "" {
		conds = append(conds, "status = ?")
		args = append(args, status)
	}
	if f.DeviceID != "" {
		conds = append(conds, "device_id = ?")
		args = append(args, f.DeviceID)
	}

	q := selectAlarmsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY raised_at DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select alarms: %w", err)
	}
	defer rows.Close()

	out := make([]models.AlarmRecord, 0, 16)
	for rows.Next() {
		var (
			a         models.AlarmRecord
			typ       string
			level     string
			status    string
			raisedMs  int64
			handledMs sql.NullInt64
			remark    sql.NullString
		)
		if err := rows.Scan(&a.ID, &a.DeviceID, &typ, &level, &a.Message, &status, &raisedMs, &handledMs, &remark); err != nil {
			return nil, err
		}
		a.AlarmType = models.AlarmKind(typ)
		a.Level = models.Severity(level)
		a.Status = models.AlarmStatus(status)
		a.RaisedAt = fromMillis(raisedMs)
		if handledMs.Valid {
			t := fromMillis(handledMs.Int64)
			a.HandledAt = &t
		}
		a.Remark = remark.String
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// UpdateStatus moves an alarm through its handling lifecycle. handled_at is
// stamped for closing statuses and cleared otherwise.
func (r *AlarmSQLite) UpdateStatus(ctx context.Context, id string, status models.AlarmStatus, remark string, at time.Time) error {
	var handled *int64
	if status == models.AlarmHandled || status == models.AlarmIgnored {
		ms := toMillis(at)
		handled = &ms
	}

	res, err := r.db.ExecContext(ctx, updateAlarmStatusSQL, string(status), remark, handled, id)
	if err != nil {
		return fmt.Errorf("update alarm %q: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for alarm %q: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("alarm %q: %w", id, ErrNotFound)
	}
	return nil
}
