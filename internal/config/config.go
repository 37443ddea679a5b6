package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envPrefix namespaces environment overrides, e.g. SMART_OFFICE_MQTT_BROKER.
const envPrefix = "SMART_OFFICE"

// Control log backends.
const (
	ControlLogSQLite   = "sqlite"
	ControlLogDynamoDB = "dynamodb"
)

type Config struct {
	HTTP       HTTPConfig       `mapstructure:"http"`
	DB         DBConfig         `mapstructure:"db"`
	Log        LogConfig        `mapstructure:"log"`
	MQTT       MQTTConfig       `mapstructure:"mqtt"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Control    ControlConfig    `mapstructure:"control"`
	Auth       AuthConfig       `mapstructure:"auth"`
	ControlLog ControlLogConfig `mapstructure:"control_log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
}

type HTTPConfig struct {
	Port string `mapstructure:"port"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type MQTTConfig struct {
	Enabled        bool          `mapstructure:"enabled"`
	Broker         string        `mapstructure:"broker"`
	ClientID       string        `mapstructure:"client_id"`
	Username       string        `mapstructure:"username"`
	Password       string        `mapstructure:"password"`
	QoS            byte          `mapstructure:"qos"`
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	PublishTimeout time.Duration `mapstructure:"publish_timeout"`
	Topics         TopicsConfig  `mapstructure:"topics"`
}

type TopicsConfig struct {
	SensorData   string `mapstructure:"sensor_data"`
	ControlCmd   string `mapstructure:"control_cmd"`
	Alarm        string `mapstructure:"alarm"`
	DeviceStatus string `mapstructure:"device_status"`
	ConfigUpdate string `mapstructure:"config_update"`
}

type RedisConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Addr      string        `mapstructure:"addr"`
	Password  string        `mapstructure:"password"`
	DB        int           `mapstructure:"db"`
	LatestTTL time.Duration `mapstructure:"latest_ttl"`
}

// ControlConfig tunes the ingestion and control loop.
type ControlConfig struct {
	ThresholdTTL        time.Duration `mapstructure:"threshold_ttl"`
	AlarmCooldown       time.Duration `mapstructure:"alarm_cooldown"` // 0 disables suppression
	CollaboratorTimeout time.Duration `mapstructure:"collaborator_timeout"`
	StaleAfter          time.Duration `mapstructure:"stale_after"`
	SweepInterval       time.Duration `mapstructure:"sweep_interval"`
	MaxClockSkew        time.Duration `mapstructure:"max_clock_skew"`
}

type AuthConfig struct {
	SigningKey string        `mapstructure:"signing_key"`
	TokenTTL   time.Duration `mapstructure:"token_ttl"`
	Admins     []string      `mapstructure:"admins"` // usernames that sign up as ADMIN
}

type ControlLogConfig struct {
	Backend       string `mapstructure:"backend"`
	DynamoDBTable string `mapstructure:"dynamodb_table"`
	AWSRegion     string `mapstructure:"aws_region"`
}

type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
}

// Load reads config.yml from the given directories (first match wins), applies
// defaults and environment overrides, and validates the result. A missing
// config file is not an error; defaults and env still apply.
func Load(paths ...string) (*Config, error) {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.port", "8080")
	v.SetDefault("db.path", "app.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")

	v.SetDefault("mqtt.enabled", true)
	v.SetDefault("mqtt.broker", "tcp://localhost:1883")
	v.SetDefault("mqtt.client_id", "smart-office-backend")
	v.SetDefault("mqtt.qos", 1)
	v.SetDefault("mqtt.connect_timeout", 10*time.Second)
	v.SetDefault("mqtt.publish_timeout", 3*time.Second)
	v.SetDefault("mqtt.topics.sensor_data", "office/sensor/data")
	v.SetDefault("mqtt.topics.control_cmd", "office/control/cmd")
	v.SetDefault("mqtt.topics.alarm", "office/alarm")
	v.SetDefault("mqtt.topics.device_status", "office/device/status")
	v.SetDefault("mqtt.topics.config_update", "office/config/update")

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.latest_ttl", 24*time.Hour)

	v.SetDefault("control.threshold_ttl", time.Hour)
	v.SetDefault("control.alarm_cooldown", time.Duration(0))
	v.SetDefault("control.collaborator_timeout", 3*time.Second)
	v.SetDefault("control.stale_after", 2*time.Minute)
	v.SetDefault("control.sweep_interval", 30*time.Second)
	v.SetDefault("control.max_clock_skew", time.Minute)

	// Keys without a real default are still registered so AutomaticEnv
	// can see them during Unmarshal.
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("auth.signing_key", "")
	v.SetDefault("auth.token_ttl", time.Hour)
	v.SetDefault("auth.admins", []string{})

	v.SetDefault("control_log.backend", ControlLogSQLite)
	v.SetDefault("control_log.dynamodb_table", "")
	v.SetDefault("control_log.aws_region", "")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
}

func (c *Config) validate() error {
	if c.Auth.SigningKey == "" {
		return errors.New("auth.signing_key is required")
	}
	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt.broker is required when mqtt is enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt.qos must be 0, 1 or 2, got %d", c.MQTT.QoS)
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return errors.New("redis.addr is required when redis is enabled")
	}
	if c.Control.AlarmCooldown < 0 {
		return errors.New("control.alarm_cooldown must not be negative")
	}
	if c.Control.StaleAfter <= 0 || c.Control.SweepInterval <= 0 {
		return errors.New("control.stale_after and control.sweep_interval must be positive")
	}
	switch c.ControlLog.Backend {
	case ControlLogSQLite:
	case ControlLogDynamoDB:
		if c.ControlLog.DynamoDBTable == "" {
			return errors.New("control_log.dynamodb_table is required for the dynamodb backend")
		}
	default:
		return fmt.Errorf("unknown control_log.backend %q", c.ControlLog.Backend)
	}
	return nil
}
