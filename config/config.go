package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/ftahirops/drivelog/collector"
	"github.com/ftahirops/drivelog/engine"
	"github.com/ftahirops/drivelog/model"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override, e.g. DRIVELOG_DB_DSN.
const EnvPrefix = "DRIVELOG_"

// Config holds user-configurable settings.
type Config struct {
	Database     DatabaseConfig     `json:"database" yaml:"database"`
	SmartctlPath string             `json:"smartctl_path,omitempty" yaml:"smartctl_path,omitempty"`
	Host         string             `json:"host,omitempty" yaml:"host,omitempty"`
	TimeoutSec   int                `json:"timeout_sec" yaml:"timeout_sec"`
	MaxAttempts  int                `json:"max_attempts" yaml:"max_attempts"`
	IdentityKeys []string           `json:"identity_keys" yaml:"identity_keys"`
	BriefKeys    []string           `json:"brief_keys" yaml:"brief_keys"`
	DetailRules  []model.DetailRule `json:"detail_rules" yaml:"detail_rules"`
}

// DatabaseConfig selects the store. Driver is "sqlite" or "postgres".
type DatabaseConfig struct {
	Driver string `json:"driver" yaml:"driver"`
	DSN    string `json:"dsn" yaml:"dsn"`
}

// envOverrides are the settings that can come from the environment.
type envOverrides struct {
	Driver       string   `env:"DB_DRIVER"`
	DSN          string   `env:"DB_DSN"`
	SmartctlPath string   `env:"SMARTCTL"`
	Host         string   `env:"HOST"`
	TimeoutSec   int      `env:"TIMEOUT_SEC"`
	MaxAttempts  int      `env:"MAX_ATTEMPTS"`
	IdentityKeys []string `env:"IDENTITY_KEYS" envSeparator:","`
	BriefKeys    []string `env:"BRIEF_KEYS" envSeparator:","`
}

// Default returns a config with sensible defaults.
func Default() Config {
	return Config{
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    filepath.Join(DataDir(), "drivelog.db"),
		},
		TimeoutSec:   int(collector.DefaultTimeout / time.Second),
		MaxAttempts:  engine.DefaultMaxAttempts,
		IdentityKeys: append([]string(nil), engine.DefaultIdentityKeys...),
		BriefKeys:    append([]string(nil), engine.DefaultBriefKeys...),
		DetailRules:  append([]model.DetailRule(nil), engine.DefaultDetailRules...),
	}
}

// DataDir returns ~/.drivelog, or ./.drivelog if there is no home.
func DataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".drivelog"
	}
	return filepath.Join(home, ".drivelog")
}

// Path returns ~/.config/drivelog/config.json (or under XDG_CONFIG_HOME).
// Returns empty string if home directory cannot be determined.
func Path() string {
	dir := os.Getenv("XDG_CONFIG_HOME")
	if dir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		dir = filepath.Join(home, ".config")
	}
	return filepath.Join(dir, "drivelog", "config.json")
}

// Timeout is TimeoutSec as a duration.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.TimeoutSec) * time.Second
}

// Load reads the config file at path (Path() if empty) on top of the
// defaults, then applies DRIVELOG_* environment overrides. A missing file
// is not an error. Files ending in .yaml or .yml are YAML, others JSON.
func Load(path string) (Config, error) {
	return load(path, nil)
}

func load(path string, environ map[string]string) (Config, error) {
	cfg := Default()
	if path == "" {
		path = Path()
	}
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config: %w", err)
		default:
			if err := decode(path, data, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}
	if err := applyEnv(&cfg, environ); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

func isYAML(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	return ext == ".yaml" || ext == ".yml"
}

func decode(path string, data []byte, cfg *Config) error {
	if isYAML(path) {
		return yaml.Unmarshal(data, cfg)
	}
	return json.Unmarshal(data, cfg)
}

func applyEnv(cfg *Config, environ map[string]string) error {
	var o envOverrides
	// A nil Environment makes env read the process environment.
	opts := env.Options{Prefix: EnvPrefix, Environment: environ}
	if err := env.ParseWithOptions(&o, opts); err != nil {
		return fmt.Errorf("parse environment: %w", err)
	}
	if o.Driver != "" {
		cfg.Database.Driver = o.Driver
	}
	if o.DSN != "" {
		cfg.Database.DSN = o.DSN
	}
	if o.SmartctlPath != "" {
		cfg.SmartctlPath = o.SmartctlPath
	}
	if o.Host != "" {
		cfg.Host = o.Host
	}
	if o.TimeoutSec != 0 {
		cfg.TimeoutSec = o.TimeoutSec
	}
	if o.MaxAttempts != 0 {
		cfg.MaxAttempts = o.MaxAttempts
	}
	if len(o.IdentityKeys) > 0 {
		cfg.IdentityKeys = o.IdentityKeys
	}
	if len(o.BriefKeys) > 0 {
		cfg.BriefKeys = o.BriefKeys
	}
	return nil
}

// Validate rejects settings the pipeline cannot run with.
func (c Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Database.Driver) {
	case "sqlite", "sqlite3", "pgx", "postgres", "postgresql":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q: want sqlite or postgres", c.Database.Driver))
	}
	if c.Database.DSN == "" {
		errs = append(errs, errors.New("database.dsn is empty"))
	}
	if c.TimeoutSec <= 0 {
		errs = append(errs, fmt.Errorf("timeout_sec %d: must be positive", c.TimeoutSec))
	}
	if c.MaxAttempts < 1 || c.MaxAttempts > engine.DefaultMaxAttempts {
		errs = append(errs, fmt.Errorf("max_attempts %d: must be between 1 and %d", c.MaxAttempts, engine.DefaultMaxAttempts))
	}
	if len(c.IdentityKeys) == 0 {
		errs = append(errs, errors.New("identity_keys is empty"))
	}
	for i, r := range c.DetailRules {
		if len(r.Kinds) == 0 {
			errs = append(errs, fmt.Errorf("detail_rules[%d]: no kinds", i))
		}
	}
	return errors.Join(errs...)
}

// Save writes the config to path (Path() if empty), as YAML or JSON by
// extension.
func Save(cfg Config, path string) error {
	if path == "" {
		path = Path()
	}
	if path == "" {
		return fmt.Errorf("cannot determine config directory")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	var (
		data []byte
		err  error
	)
	if isYAML(path) {
		data, err = yaml.Marshal(cfg)
	} else {
		data, err = json.MarshalIndent(cfg, "", "  ")
	}
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}
