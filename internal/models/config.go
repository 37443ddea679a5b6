package models

import "time"

// ConfigEntry is one system_config row.
type ConfigEntry struct {
	Key         string    `json:"configKey"`
	Value       string    `json:"configValue"`
	Type        string    `json:"configType"`
	Description string    `json:"description,omitempty"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// ConfigUpdate is the signal carried on the config topic and accepted by PUT /config.
type ConfigUpdate struct {
	ConfigKey   string `json:"configKey"`
	ConfigValue string `json:"configValue"`
}
