package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Devices DevicesConfig `yaml:"devices"`
	Serial  SerialConfig  `yaml:"serial"`
	Session SessionConfig `yaml:"session"`
	HTTP    HTTPConfig    `yaml:"http"`
	Log     LogConfig     `yaml:"log"`
}

type DevicesConfig struct {
	Actuator DeviceConfig `yaml:"actuator"`
	Lighting DeviceConfig `yaml:"lighting"`
}

// DeviceConfig names the serial port of one peripheral. An empty port
// leaves that device disconnected.
type DeviceConfig struct {
	Port string `yaml:"port"`
}

type SerialConfig struct {
	Driver       string `yaml:"driver"`
	Baud         int    `yaml:"baud"`
	SettleDelay  string `yaml:"settle_delay"`
	PollInterval string `yaml:"poll_interval"`
}

type SessionConfig struct {
	Source         string `yaml:"source"`
	Script         string `yaml:"script"`
	ScriptInterval string `yaml:"script_interval"`
	Prompt         string `yaml:"prompt"`
	HistoryFile    string `yaml:"history_file"`
	ResponseWindow string `yaml:"response_window"`
	InboxSize      int    `yaml:"inbox_size"`
	ShutdownGrace  string `yaml:"shutdown_grace"`
}

type HTTPConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	AuthToken string `yaml:"auth_token"`
	RateLimit int    `yaml:"rate_limit"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Serial.Driver == "" {
		c.Serial.Driver = "bugst"
	}
	if c.Serial.Baud == 0 {
		c.Serial.Baud = 115200
	}
	if c.Serial.SettleDelay == "" {
		c.Serial.SettleDelay = "2s"
	}
	if c.Serial.PollInterval == "" {
		c.Serial.PollInterval = "50ms"
	}
	if c.Session.Source == "" {
		c.Session.Source = "console"
	}
	if c.Session.ScriptInterval == "" {
		c.Session.ScriptInterval = "0s"
	}
	if c.Session.Prompt == "" {
		c.Session.Prompt = "> "
	}
	if c.Session.ResponseWindow == "" {
		c.Session.ResponseWindow = "200ms"
	}
	if c.Session.InboxSize == 0 {
		c.Session.InboxSize = 256
	}
	if c.Session.ShutdownGrace == "" {
		c.Session.ShutdownGrace = "500ms"
	}
	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.RateLimit == 0 {
		c.HTTP.RateLimit = 30
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}
