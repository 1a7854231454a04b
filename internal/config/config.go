// Package config loads daywich settings from a YAML file, creating it with
// defaults on first run, and applies DAYWICH_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/dukerupert/daywich/internal/recurrence"
)

const DefaultPath = "daywich.yaml"

type NotifyConfig struct {
	Interval time.Duration `yaml:"interval"`
}

type RepeatConfig struct {
	HorizonDays    int `yaml:"horizon_days"`
	MaxOccurrences int `yaml:"max_occurrences"`
}

type PushConfig struct {
	VAPIDPublicKey  string `yaml:"vapid_public_key"`
	VAPIDPrivateKey string `yaml:"vapid_private_key"`
	Subscriber      string `yaml:"subscriber"`
}

type Config struct {
	Listen   string       `yaml:"listen"`
	DBPath   string       `yaml:"db_path"`
	LogLevel string       `yaml:"log_level"`
	Notify   NotifyConfig `yaml:"notify"`
	Repeat   RepeatConfig `yaml:"repeat"`
	Push     PushConfig   `yaml:"push"`
}

func Default() *Config {
	return &Config{
		Listen:   ":8080",
		DBPath:   "daywich.db",
		LogLevel: "info",
		Notify:   NotifyConfig{Interval: time.Second},
		Repeat: RepeatConfig{
			HorizonDays:    recurrence.DefaultHorizonDays,
			MaxOccurrences: recurrence.DefaultMaxOccurrences,
		},
	}
}

// Normalize fills zero values with defaults so older or partial files work.
func (c *Config) Normalize() {
	d := Default()
	if c.Listen == "" {
		c.Listen = d.Listen
	}
	if c.DBPath == "" {
		c.DBPath = d.DBPath
	}
	if c.LogLevel == "" {
		c.LogLevel = d.LogLevel
	}
	if c.Notify.Interval <= 0 {
		c.Notify.Interval = d.Notify.Interval
	}
	if c.Repeat.HorizonDays <= 0 {
		c.Repeat.HorizonDays = d.Repeat.HorizonDays
	}
	if c.Repeat.MaxOccurrences <= 0 {
		c.Repeat.MaxOccurrences = d.Repeat.MaxOccurrences
	}
}

// RepeatOptions converts the repeat section for the recurrence expander.
func (c *Config) RepeatOptions() recurrence.Options {
	return recurrence.Options{HorizonDays: c.Repeat.HorizonDays, MaxOccurrences: c.Repeat.MaxOccurrences}
}

// Path returns DAYWICH_CONFIG or the default file name.
func Path() string {
	if p := os.Getenv("DAYWICH_CONFIG"); p != "" {
		return p
	}
	return DefaultPath
}

// Load reads the YAML file at path, writing a default one if it does not
// exist, then applies environment overrides. The file on disk never receives
// environment values.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path is empty")
	}

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if err := Save(path, cfg); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("read config: %w", err)
	default:
		cfg = &Config{}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg.Normalize()
	}

	cfg.applyEnv(os.Getenv)
	return cfg, nil
}

func (c *Config) applyEnv(getenv func(string) string) {
	if port := getenv("DAYWICH_PORT"); port != "" {
		c.Listen = ":" + port
	}
	if v := getenv("DAYWICH_DB_PATH"); v != "" {
		c.DBPath = v
	}
	if v := getenv("DAYWICH_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("DAYWICH_VAPID_PUBLIC_KEY"); v != "" {
		c.Push.VAPIDPublicKey = v
	}
	if v := getenv("DAYWICH_VAPID_PRIVATE_KEY"); v != "" {
		c.Push.VAPIDPrivateKey = v
	}
}

// Save writes cfg to path atomically with 0600 permissions.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	cfg.Normalize()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".daywich-config-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmpName, path)
}
