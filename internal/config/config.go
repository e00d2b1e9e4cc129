// Package config loads botixctl runtime settings from YAML or TOML files.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"

	"github.com/comalice/botix"
	"github.com/comalice/botix/bdmc"
	"github.com/comalice/botix/delay"
)

var ErrUnknownFormat = errors.New("config: unknown file format")

// Config is the resolved runtime configuration.
type Config struct {
	Logging  Logging
	Movement botix.MovementConfig
	Serial   Serial
	Motors   []bdmc.MotorInfo
	Metrics  Metrics
	// CheckInterval is the breaker polling cadence for transitions that do
	// not set their own.
	CheckInterval time.Duration
}

type Logging struct {
	Level  string
	Format string // console or json
}

// Serial locates and configures the controller port. When Port is empty the
// first USB adapter matching Vendor and Product is used; zero ids match any.
type Serial struct {
	Port    string
	Line    bdmc.SerialConfig
	Vendor  uint16
	Product uint16
}

type Metrics struct {
	Enabled bool
	Addr    string
}

// Default returns the settings used when no file is given.
func Default() Config {
	return Config{
		Logging:       Logging{Level: "info", Format: "console"},
		Movement:      botix.DefaultMovementConfig(),
		Serial:        Serial{Line: bdmc.DefaultSerialConfig()},
		Motors:        bdmc.ClassicMotors(),
		Metrics:       Metrics{Addr: ":9464"},
		CheckInterval: delay.DefaultInterval,
	}
}

type fileConfig struct {
	Logging struct {
		Level  string `yaml:"level" toml:"level"`
		Format string `yaml:"format" toml:"format"`
	} `yaml:"logging" toml:"logging"`
	Movement botix.MovementConfig `yaml:"movement" toml:"movement"`
	Serial   struct {
		Port     string `yaml:"port" toml:"port"`
		Baudrate int    `yaml:"baudrate" toml:"baudrate"`
		DataBits int    `yaml:"data_bits" toml:"data_bits"`
		Parity   string `yaml:"parity" toml:"parity"`
		StopBits int    `yaml:"stop_bits" toml:"stop_bits"`
		Timeout  string `yaml:"timeout" toml:"timeout"`
		Vendor   string `yaml:"usb_vendor" toml:"usb_vendor"`
		Product  string `yaml:"usb_product" toml:"usb_product"`
	} `yaml:"serial" toml:"serial"`
	Motors  []bdmc.MotorInfo `yaml:"motors" toml:"motors"`
	Metrics struct {
		Enabled bool   `yaml:"enabled" toml:"enabled"`
		Addr    string `yaml:"addr" toml:"addr"`
	} `yaml:"metrics" toml:"metrics"`
	CheckInterval string `yaml:"check_interval" toml:"check_interval"`
}

// Load reads path, picking the decoder from the extension, and overlays the
// values it defines on Default.
func Load(path string) (Config, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return loadYAML(path)
	case ".toml":
		return loadTOML(path)
	}
	return Config{}, fmt.Errorf("%s: %w", path, ErrUnknownFormat)
}

func loadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}
	cfg := Default()
	raw := toFile(cfg)
	dec := yaml.NewDecoder(strings.NewReader(string(data)))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	// raw started from the defaults, so every key counts as defined
	return overlay(cfg, raw, func(...string) bool { return true })
}

func loadTOML(path string) (Config, error) {
	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	if un := meta.Undecoded(); len(un) > 0 {
		return Config{}, fmt.Errorf("load config %s: unknown keys %v", path, un)
	}
	return overlay(Default(), raw, meta.IsDefined)
}

func overlay(cfg Config, raw fileConfig, defined func(key ...string) bool) (Config, error) {
	if defined("logging", "level") {
		cfg.Logging.Level = strings.TrimSpace(raw.Logging.Level)
	}
	if defined("logging", "format") {
		cfg.Logging.Format = strings.TrimSpace(raw.Logging.Format)
	}
	if defined("movement", "track_width") {
		cfg.Movement.TrackWidth = raw.Movement.TrackWidth
	}
	if defined("movement", "diagonal_multiplier") {
		cfg.Movement.DiagonalMultiplier = raw.Movement.DiagonalMultiplier
	}
	if defined("serial", "port") {
		cfg.Serial.Port = strings.TrimSpace(raw.Serial.Port)
	}
	if defined("serial", "baudrate") {
		cfg.Serial.Line.Baudrate = raw.Serial.Baudrate
	}
	if defined("serial", "data_bits") {
		cfg.Serial.Line.DataBits = raw.Serial.DataBits
	}
	if defined("serial", "parity") {
		p, err := bdmc.ParseParity(raw.Serial.Parity)
		if err != nil {
			return Config{}, fmt.Errorf("parse serial.parity: %w", err)
		}
		cfg.Serial.Line.Parity = p
	}
	if defined("serial", "stop_bits") {
		cfg.Serial.Line.StopBits = raw.Serial.StopBits
	}
	if defined("serial", "timeout") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.Serial.Timeout))
		if err != nil {
			return Config{}, fmt.Errorf("parse serial.timeout: %w", err)
		}
		cfg.Serial.Line.Timeout = d
	}
	if defined("serial", "usb_vendor") && raw.Serial.Vendor != "" {
		v, err := parseUSBID(raw.Serial.Vendor)
		if err != nil {
			return Config{}, fmt.Errorf("parse serial.usb_vendor: %w", err)
		}
		cfg.Serial.Vendor = v
	}
	if defined("serial", "usb_product") && raw.Serial.Product != "" {
		v, err := parseUSBID(raw.Serial.Product)
		if err != nil {
			return Config{}, fmt.Errorf("parse serial.usb_product: %w", err)
		}
		cfg.Serial.Product = v
	}
	if defined("motors") {
		cfg.Motors = append([]bdmc.MotorInfo(nil), raw.Motors...)
	}
	if defined("metrics", "enabled") {
		cfg.Metrics.Enabled = raw.Metrics.Enabled
	}
	if defined("metrics", "addr") {
		cfg.Metrics.Addr = strings.TrimSpace(raw.Metrics.Addr)
	}
	if defined("check_interval") {
		d, err := time.ParseDuration(strings.TrimSpace(raw.CheckInterval))
		if err != nil {
			return Config{}, fmt.Errorf("parse check_interval: %w", err)
		}
		cfg.CheckInterval = d
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks the resolved configuration.
func (c Config) Validate() error {
	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q: want console or json", c.Logging.Format)
	}
	if c.Movement.TrackWidth <= 0 {
		return fmt.Errorf("movement.track_width must be positive, got %g", c.Movement.TrackWidth)
	}
	if c.Movement.DiagonalMultiplier <= 0 {
		return fmt.Errorf("movement.diagonal_multiplier must be positive, got %g", c.Movement.DiagonalMultiplier)
	}
	if err := c.Serial.Line.Validate(); err != nil {
		return fmt.Errorf("serial: %w", err)
	}
	if len(c.Motors) == 0 {
		return errors.New("motors: at least one motor is required")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	if c.CheckInterval <= 0 {
		return fmt.Errorf("check_interval must be positive, got %v", c.CheckInterval)
	}
	return nil
}

func toFile(c Config) fileConfig {
	var f fileConfig
	f.Logging.Level = c.Logging.Level
	f.Logging.Format = c.Logging.Format
	f.Movement = c.Movement
	f.Serial.Port = c.Serial.Port
	f.Serial.Baudrate = c.Serial.Line.Baudrate
	f.Serial.DataBits = c.Serial.Line.DataBits
	f.Serial.Parity = c.Serial.Line.Parity.String()
	f.Serial.StopBits = c.Serial.Line.StopBits
	f.Serial.Timeout = c.Serial.Line.Timeout.String()
	f.Motors = append([]bdmc.MotorInfo(nil), c.Motors...)
	f.Metrics.Enabled = c.Metrics.Enabled
	f.Metrics.Addr = c.Metrics.Addr
	f.CheckInterval = c.CheckInterval.String()
	return f
}

func parseUSBID(s string) (uint16, error) {
	s = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	v, err := strconv.ParseUint(s, 16, 16)
	if err != nil {
		return 0, fmt.Errorf("usb id %q: %w", s, err)
	}
	return uint16(v), nil
}
