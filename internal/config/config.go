// Package config loads tapgate's configuration.
//
// Configuration comes from an optional YAML file, then environment
// overrides, then validation. The environment names match the original
// deployment: SESSION_SECRET, ALLOWED_TAGS, and PORT, plus TAPGATE_DB_PATH
// and TAPGATE_REDIS_ADDR for the proof ledger.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"

	"git.sr.ht/~jakintosh/tapgate/internal/allowlist"
	"git.sr.ht/~jakintosh/tapgate/pkg/tokens"
	"gopkg.in/yaml.v3"
)

// Environment represents the deployment environment.
type Environment string

const (
	Development Environment = "development"
	Production  Environment = "production"
)

// DevSecret signs tokens in development when no secret is configured.
const DevSecret = "dev-secret"

const (
	LedgerNone   = "none"
	LedgerSQLite = "sqlite"
	LedgerRedis  = "redis"
)

var ErrInvalidConfig = errors.New("invalid config")

type Config struct {
	Environment Environment `yaml:"environment"`

	// Listen is the HTTP listen address.
	Listen string `yaml:"listen"`

	// Secret signs every token. Required outside development.
	Secret string `yaml:"secret"`

	// SecureCookies marks cookies Secure. Default: true
	SecureCookies bool `yaml:"secure_cookies"`

	// SessionTTL is the session lifetime, within [24h, 720h].
	// Default: 720h
	SessionTTL time.Duration `yaml:"session_ttl"`

	// StaticDir, when set, is served at / with /frame behind the session
	// gate.
	StaticDir string `yaml:"static_dir"`

	AllowList AllowListConfig `yaml:"allowlist"`
	Ledger    LedgerConfig    `yaml:"ledger"`

	Verbose bool `yaml:"verbose"`
}

type AllowListConfig struct {
	// Tags are always allowed. An empty list with no file allows any tag.
	Tags []string `yaml:"tags"`

	// File holds one tag per line and is reloaded when it changes.
	File string `yaml:"file"`
}

// LedgerConfig selects the spent-proof ledger that makes setup proofs
// single use.
type LedgerConfig struct {
	// Driver is one of none, sqlite, redis. Default: none
	Driver string `yaml:"driver"`

	// Path is the SQLite database file.
	Path string `yaml:"path"`

	// Addr is the redis host:port.
	Addr string `yaml:"addr"`

	// Prefix namespaces redis keys. Default: tapgate
	Prefix string `yaml:"prefix"`
}

func Default() *Config {
	return &Config{
		Environment:   Production,
		Listen:        ":8080",
		SecureCookies: true,
		SessionTTL:    tokens.DefaultSessionLifetime,
		Ledger: LedgerConfig{
			Driver: LedgerNone,
			Prefix: "tapgate",
		},
	}
}

// Load reads the file at path (if any), applies environment overrides, and
// validates the result.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(
	path string,
	lookup func(string) (string, bool),
) (
	*Config,
	error,
) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.parse(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv(lookup)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) parse(data []byte) error {
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup("SESSION_SECRET"); ok && v != "" {
		c.Secret = v
	}
	if v, ok := lookup("ALLOWED_TAGS"); ok {
		c.AllowList.Tags = allowlist.ParseTags(v)
	}
	if v, ok := lookup("PORT"); ok && v != "" {
		c.Listen = ":" + v
	}
	if v, ok := lookup("TAPGATE_DB_PATH"); ok && v != "" {
		c.Ledger.Path = v
		if c.Ledger.Driver == LedgerNone || c.Ledger.Driver == "" {
			c.Ledger.Driver = LedgerSQLite
		}
	}
	if v, ok := lookup("TAPGATE_REDIS_ADDR"); ok && v != "" {
		c.Ledger.Addr = v
		if c.Ledger.Driver == LedgerNone || c.Ledger.Driver == "" {
			c.Ledger.Driver = LedgerRedis
		}
	}
}

// Validate checks the configuration and fills development defaults.
func (c *Config) Validate() error {
	switch c.Environment {
	case Development, Production:
	default:
		return fmt.Errorf("%w: unknown environment %q", ErrInvalidConfig, c.Environment)
	}

	if c.Secret == "" {
		if c.Environment != Development {
			return fmt.Errorf("%w: secret is required in %s", ErrInvalidConfig, c.Environment)
		}
		log.Printf("config: no secret set, using the development secret\n")
		c.Secret = DevSecret
	}

	if c.SessionTTL == 0 {
		c.SessionTTL = tokens.DefaultSessionLifetime
	}
	if c.SessionTTL < tokens.MinSessionLifetime || c.SessionTTL > tokens.MaxSessionLifetime {
		return fmt.Errorf("%w: session_ttl %v outside [%v, %v]",
			ErrInvalidConfig, c.SessionTTL, tokens.MinSessionLifetime, tokens.MaxSessionLifetime)
	}

	if c.Listen == "" {
		return fmt.Errorf("%w: listen address is empty", ErrInvalidConfig)
	}

	c.Ledger.Driver = strings.ToLower(strings.TrimSpace(c.Ledger.Driver))
	switch c.Ledger.Driver {
	case "", LedgerNone:
		c.Ledger.Driver = LedgerNone
	case LedgerSQLite:
		if c.Ledger.Path == "" {
			return fmt.Errorf("%w: sqlite ledger needs a path", ErrInvalidConfig)
		}
	case LedgerRedis:
		if c.Ledger.Addr == "" {
			return fmt.Errorf("%w: redis ledger needs an addr", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown ledger driver %q", ErrInvalidConfig, c.Ledger.Driver)
	}

	return nil
}
