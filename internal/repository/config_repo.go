package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"smart_office/internal/models"
)

// ConfigTypeThreshold tags rows the threshold store reads.
const ConfigTypeThreshold = "threshold"

type ConfigSQLite struct {
	db *sql.DB
}

func NewConfigSQLite(db *sql.DB) *ConfigSQLite { return &ConfigSQLite{db: db} }

var _ ConfigRepo = (*ConfigSQLite)(nil)

const (
	selectThresholdsSQL = `SELECT config_key, config_value FROM system_config WHERE config_type = ?`

	selectConfigSQL = `SELECT config_key, config_value, config_type, description, updated_at FROM system_config`

	upsertConfigSQL = `
		INSERT INTO system_config (config_key, config_value, config_type, description, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(config_key) DO UPDATE SET
			config_value=excluded.config_value,
			updated_at=excluded.updated_at
	`
)

// ThresholdValues returns every threshold row that parses as a number.
// Unparseable values are skipped so the caller's defaults apply to them.
func (r *ConfigSQLite) ThresholdValues(ctx context.Context) (map[string]float64, error) {
	rows, err := r.db.QueryContext(ctx, selectThresholdsSQL, ConfigTypeThreshold)
	if err != nil {
		return nil, fmt.Errorf("select thresholds: %w", err)
	}
	defer rows.Close()

	out := make(map[string]float64)
	for rows.Next() {
		var key, raw string
		if err := rows.Scan(&key, &raw); err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			continue
		}
		out[key] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// List returns config entries, optionally restricted to one config_type.
func (r *ConfigSQLite) List(ctx context.Context, typ string) ([]models.ConfigEntry, error) {
	q := selectConfigSQL
	var args []any
	if typ = strings.TrimSpace(typ); typ != "" {
		q += " WHERE config_type = ?"
		args = append(args, typ)
	}
	q += " ORDER BY config_key"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("select config: %w", err)
	}
	defer rows.Close()

	var out []models.ConfigEntry
	for rows.Next() {
		e, err := scanConfig(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Get fetches one entry by key.
func (r *ConfigSQLite) Get(ctx context.Context, key string) (*models.ConfigEntry, error) {
	row := r.db.QueryRowContext(ctx, selectConfigSQL+" WHERE config_key = ?", key)
	e, err := scanConfig(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("config %q: %w", key, ErrNotFound)
		}
		return nil, fmt.Errorf("select config %q: %w", key, err)
	}
	return &e, nil
}

// Set creates or updates an entry. On update only the value and timestamp change.
func (r *ConfigSQLite) Set(ctx context.Context, e models.ConfigEntry) error {
	var desc *string
	if e.Description != "" {
		desc = &e.Description
	}
	if _, err := r.db.ExecContext(ctx, upsertConfigSQL,
		e.Key,
		e.Value,
		e.Type,
		desc,
		toMillis(e.UpdatedAt),
	); err != nil {
		return fmt.Errorf("upsert config %q: %w", e.Key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanConfig(s rowScanner) (models.ConfigEntry, error) {
	var (
		e    models.ConfigEntry
		desc sql.NullString
		ms   int64
	)
	if err := s.Scan(&e.Key, &e.Value, &e.Type, &desc, &ms); err != nil {
		return models.ConfigEntry{}, err
	}
	e.Description = desc.String
	e.UpdatedAt = fromMillis(ms)
	return e, nil
}
