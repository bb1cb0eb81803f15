// Package config loads client settings from an optional YAML file with
// environment variable overrides on top.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerURL string `yaml:"server_url"`
	Token     string `yaml:"token"`
	RoomID    string `yaml:"room_id"`

	MaxReconnectAttempts int  `yaml:"max_reconnect_attempts"`
	InitialBackoffMS     int  `yaml:"initial_backoff_ms"`
	MaxBackoffMS         int  `yaml:"max_backoff_ms"`
	HeartbeatIntervalMS  int  `yaml:"heartbeat_interval_ms"`
	PauseWhenHidden      bool `yaml:"pause_when_hidden"`
}

func defaults() Config {
	return Config{
		ServerURL:            "ws://localhost:8080/ws",
		RoomID:               "lobby",
		MaxReconnectAttempts: 10,
		InitialBackoffMS:     1000,
		MaxBackoffMS:         30000,
		HeartbeatIntervalMS:  30000,
		PauseWhenHidden:      true,
	}
}

// Load reads the YAML file at path if it exists, then applies environment
// overrides. A missing file is not an error; the defaults plus environment
// are enough to run.
func Load(path string) (Config, error) {
	cfg := defaults()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil && !os.IsNotExist(err) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
		if err == nil {
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}

	cfg.ServerURL = getEnv("WORDGRID_SERVER_URL", cfg.ServerURL)
	cfg.Token = getEnv("WORDGRID_TOKEN", cfg.Token)
	cfg.RoomID = getEnv("WORDGRID_ROOM_ID", cfg.RoomID)
	cfg.MaxReconnectAttempts = getEnvAsInt("WORDGRID_MAX_RECONNECT_ATTEMPTS", cfg.MaxReconnectAttempts)
	cfg.InitialBackoffMS = getEnvAsInt("WORDGRID_INITIAL_BACKOFF_MS", cfg.InitialBackoffMS)
	cfg.MaxBackoffMS = getEnvAsInt("WORDGRID_MAX_BACKOFF_MS", cfg.MaxBackoffMS)
	cfg.HeartbeatIntervalMS = getEnvAsInt("WORDGRID_HEARTBEAT_INTERVAL_MS", cfg.HeartbeatIntervalMS)
	cfg.PauseWhenHidden = getEnvAsBool("WORDGRID_PAUSE_WHEN_HIDDEN", cfg.PauseWhenHidden)

	if cfg.ServerURL == "" {
		return Config{}, fmt.Errorf("server_url must be set")
	}
	if cfg.InitialBackoffMS <= 0 || cfg.MaxBackoffMS < cfg.InitialBackoffMS {
		return Config{}, fmt.Errorf("backoff bounds invalid: initial=%dms max=%dms", cfg.InitialBackoffMS, cfg.MaxBackoffMS)
	}

	return cfg, nil
}

func (c Config) InitialBackoff() time.Duration {
	return time.Duration(c.InitialBackoffMS) * time.Millisecond
}

func (c Config) MaxBackoff() time.Duration {
	return time.Duration(c.MaxBackoffMS) * time.Millisecond
}

func (c Config) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
