// Package config loads the YAML configuration of the listening agent.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/d21d3q/gosml/internal/obis"
	"github.com/d21d3q/gosml/internal/options"
	"github.com/d21d3q/gosml/internal/reading"
	"github.com/d21d3q/gosml/internal/serverid"
)

const (
	DefaultBaud        = 9600
	DefaultReadTimeout = 100 * time.Millisecond
	DefaultTable       = "din43863"
	DefaultClientID    = "gosml"
	DefaultTopicPrefix = "sml"
)

var ErrNoSensors = errors.New("config: no sensors configured")

type Config struct {
	Serial        Serial    `yaml:"serial"`
	Transport     Transport `yaml:"transport"`
	ServerIDTable string    `yaml:"server_id_table"`
	MQTT          MQTT      `yaml:"mqtt"`
	Storage       Storage   `yaml:"storage"`
	Sensors       []Sensor  `yaml:"sensors"`

	// Table is resolved from ServerIDTable by Load.
	Table serverid.Table `yaml:"-"`
}

type Serial struct {
	Port        string        `yaml:"port"`
	Baud        int           `yaml:"baud"`
	ReadTimeout time.Duration `yaml:"read_timeout"`
}

type Transport struct {
	VerifyCRC *bool `yaml:"verify_crc"`
}

// Verify reports whether frame checksums are checked; unset means yes.
func (t Transport) Verify() bool {
	return t.VerifyCRC == nil || *t.VerifyCRC
}

type MQTT struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
	Retained    bool   `yaml:"retained"`
}

// Storage paths; an empty path disables that store.
type Storage struct {
	LatestPath  string `yaml:"latest_path"`
	HistoryPath string `yaml:"history_path"`
}

// Sensor binds a name to the records of one OBIS code, optionally limited to
// one meter.
type Sensor struct {
	Name     string `yaml:"name"`
	OBIS     string `yaml:"obis"`
	ServerID string `yaml:"server_id"`
	Format   string `yaml:"format"`

	Code        obis.Code      `yaml:"-"`
	Meter       []byte         `yaml:"-"`
	ValueFormat reading.Format `yaml:"-"`
}

// Load reads path, applies defaults and validates the result.
func Load(path string) (Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(b)
}

// Parse is Load without the file.
func Parse(b []byte) (Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Serial.Baud <= 0 {
		c.Serial.Baud = DefaultBaud
	}
	if c.Serial.ReadTimeout <= 0 {
		c.Serial.ReadTimeout = DefaultReadTimeout
	}
	if c.ServerIDTable == "" {
		c.ServerIDTable = DefaultTable
	}
	if c.MQTT.ClientID == "" {
		c.MQTT.ClientID = DefaultClientID
	}
	if c.MQTT.TopicPrefix == "" {
		c.MQTT.TopicPrefix = DefaultTopicPrefix
	}
}

func (c *Config) validate() error {
	table, err := options.ParseServerIDTable(c.ServerIDTable)
	if err != nil {
		return fmt.Errorf("server_id_table: %w", err)
	}
	c.Table = table

	if c.MQTT.Enabled && c.MQTT.Broker == "" {
		return errors.New("mqtt: broker is required when enabled")
	}
	if c.MQTT.QoS > 2 {
		return fmt.Errorf("mqtt: qos %d out of range", c.MQTT.QoS)
	}
	if len(c.Sensors) == 0 {
		return ErrNoSensors
	}

	seen := make(map[string]struct{}, len(c.Sensors))
	for i := range c.Sensors {
		s := &c.Sensors[i]
		if s.Name == "" {
			return fmt.Errorf("sensor %d: name is required", i)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("sensor %q: duplicate name", s.Name)
		}
		seen[s.Name] = struct{}{}

		if s.Code, err = obis.ParseCode(s.OBIS); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
		if s.Meter, err = options.ParseServerIDHex(s.ServerID); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
		if s.ValueFormat, err = reading.ParseFormat(s.Format); err != nil {
			return fmt.Errorf("sensor %q: %w", s.Name, err)
		}
	}
	return nil
}
