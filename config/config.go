package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const defaultPath = "./config/config.yaml"

type TCP struct {
	Addr         string `yaml:"addr"`         // :55556
	MaxLineBytes int    `yaml:"maxLineBytes"` // 1024
	WriteTimeout string `yaml:"writeTimeout"` // 5s
}

type HTTP struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

type GRPC struct {
	Addr string `yaml:"addr"`
}

type Logging struct {
	Env       string `yaml:"env"`       // dev|stage|prod
	Service   string `yaml:"service"`   // chat-relay
	Version   string `yaml:"version"`   // v0.1.0
	Backend   string `yaml:"backend"`   // std|zap
	AddSource bool   `yaml:"addSource"` // false|true
	Debug     bool   `yaml:"debug"`     // false|true
}

type Config struct {
	TCP     TCP     `yaml:"tcp"`
	HTTP    HTTP    `yaml:"http"`
	GRPC    GRPC    `yaml:"grpc"`
	Logging Logging `yaml:"logging"`
}

// LoadConfig reads CONFIG_PATH, or ./config/config.yaml when unset.
// A missing default file yields the built-in defaults.
func LoadConfig() (*Config, error) {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		cfg, err := Load(defaultPath)
		if errors.Is(err, fs.ErrNotExist) {
			return Default(), nil
		}
		return cfg, err
	}
	return Load(path)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Default() *Config {
	var cfg Config
	_ = cfg.validate()
	return &cfg
}

// WriteTimeoutDuration is the per-line write bound applied to every client.
func (c *Config) WriteTimeoutDuration() time.Duration {
	return parseDurationOr(5*time.Second, c.TCP.WriteTimeout)
}

func (c *Config) validate() error {
	if c.TCP.Addr == "" {
		c.TCP.Addr = ":55556"
	}
	if c.TCP.MaxLineBytes == 0 {
		c.TCP.MaxLineBytes = 1024
	}
	if c.TCP.MaxLineBytes < 0 {
		return errors.New("tcp.maxLineBytes must be positive")
	}
	if c.TCP.WriteTimeout != "" {
		if d, err := time.ParseDuration(c.TCP.WriteTimeout); err != nil || d <= 0 {
			return fmt.Errorf("tcp.writeTimeout: invalid duration %q", c.TCP.WriteTimeout)
		}
	}

	// empty http/grpc addr disables the listener
	if c.Logging.Service == "" {
		c.Logging.Service = "chat-relay"
	}
	if c.Logging.Env == "" {
		c.Logging.Env = "dev"
	}
	if c.Logging.Version == "" {
		c.Logging.Version = "v0.1.0"
	}
	if c.Logging.Backend == "" {
		c.Logging.Backend = "std"
	}
	return nil
}

func parseDurationOr(def time.Duration, s string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return def
}
