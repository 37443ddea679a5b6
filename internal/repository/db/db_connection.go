package db

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// InitDB opens/creates a SQLite DB file, ensures tables exist and seeds default config.
func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open(sqliteDriverName, path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite at %q: %w", path, err)
	}

	// Single writer; ingestion goroutines queue on the pool instead of hitting SQLITE_BUSY.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL;",
		"PRAGMA foreign_keys = ON;",
		"PRAGMA busy_timeout = 5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	return db, nil
}

const sqliteDriverName = "sqlite"

// All *_at columns hold epoch milliseconds so range filters and the
// device_state guard compare numerically.

const schemaSensorData = `
CREATE TABLE IF NOT EXISTS sensor_data (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    device_id TEXT NOT NULL,
    light REAL,
    temperature REAL,
    humidity REAL,
    flame BOOLEAN,
    rgb_status BOOLEAN,
    observed_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sensor_data_device_time ON sensor_data (device_id, observed_at DESC);
`

const schemaDeviceState = `
CREATE TABLE IF NOT EXISTS device_state (
    device_id TEXT PRIMARY KEY,
    status TEXT NOT NULL,
    last_seen_at INTEGER NOT NULL,
    actuators TEXT NOT NULL,
    hvac_mode TEXT
);
`

const schemaAlarmLog = `
CREATE TABLE IF NOT EXISTS alarm_log (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL,
    alarm_type TEXT NOT NULL,
    level TEXT NOT NULL,
    message TEXT NOT NULL,
    status TEXT NOT NULL,
    raised_at INTEGER NOT NULL,
    handled_at INTEGER,
    remark TEXT
);
`

const schemaSystemConfig = `
CREATE TABLE IF NOT EXISTS system_config (
    config_key TEXT PRIMARY KEY,
    config_value TEXT NOT NULL,
    config_type TEXT NOT NULL,
    description TEXT,
    updated_at INTEGER NOT NULL DEFAULT (CAST(strftime('%s','now') AS INTEGER) * 1000)
);
`

const schemaControlLog = `
CREATE TABLE IF NOT EXISTS control_log (
    id TEXT PRIMARY KEY,
    device_id TEXT NOT NULL,
    action TEXT NOT NULL,
    trigger_type TEXT NOT NULL,
    result TEXT NOT NULL,
    error TEXT,
    issued_at INTEGER NOT NULL
);
`

const schemaUsers = `
CREATE TABLE IF NOT EXISTS users (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    username TEXT UNIQUE NOT NULL,
    password_hash TEXT NOT NULL,
    role TEXT NOT NULL DEFAULT 'USER',
    created_at INTEGER NOT NULL
);
`

// seedSystemConfig inserts the stock thresholds without touching operator edits.
const seedSystemConfig = `
INSERT OR IGNORE INTO system_config (config_key, config_value, config_type, description) VALUES
    ('light.low', '300', 'threshold', 'turn the light on below this lux'),
    ('light.high', '350', 'threshold', 'turn the light off above this lux'),
    ('temperature.low', '18', 'threshold', 'heat below this temperature'),
    ('temperature.high', '28', 'threshold', 'cool above this temperature'),
    ('humidity.low', '40', 'threshold', 'humidify below this relative humidity'),
    ('humidity.high', '70', 'threshold', 'stop humidifying above this relative humidity'),
    ('data.collect.interval', '5000', 'device', 'sensor report interval in milliseconds');
`

func ensureSchema(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin schema transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for i, stmt := range []string{
		schemaSensorData,
		schemaDeviceState,
		schemaAlarmLog,
		schemaSystemConfig,
		schemaControlLog,
		schemaUsers,
		seedSystemConfig,
	} {
		if _, err := tx.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema statement %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema transaction: %w", err)
	}
	return nil
}
