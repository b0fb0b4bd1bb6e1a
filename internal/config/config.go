package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"waste-dispatch-service/internal/services"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix marks environment overrides. Nested keys use a double underscore,
// e.g. WW_SCHEDULING__BUFFER=45m or WW_DATABASE__DSN=postgres://...
const EnvPrefix = "WW_"

type Config struct {
	Database   DatabaseConfig  `json:"database"`
	HTTP       HTTPConfig      `json:"http"`
	Scheduling services.Config `json:"scheduling"`
	Seed       SeedConfig      `json:"seed"`
}

// SeedConfig points at an optional JSON seed applied on startup.
type SeedConfig struct {
	Path string `json:"path"`
}

// Load reads the optional config file at path, then applies WW_ environment
// overrides. A .env file in the working directory is loaded first if present.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load config: read .env: %w", err)
	}

	k := koanf.New(".")
	if path != "" {
		var parser koanf.Parser
		switch ext := strings.ToLower(filepath.Ext(path)); ext {
		case ".yaml", ".yml":
			parser = yaml.Parser()
		case ".json":
			parser = json.Parser()
		default:
			return nil, fmt.Errorf("load config: unsupported config format: %s", ext)
		}
		if err := k.Load(file.Provider(path), parser); err != nil {
			return nil, fmt.Errorf("load config: read %q: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("load config: environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, fmt.Errorf("load config: decode: %w", err)
	}

	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// envKey maps WW_SCHEDULING__DAY_START to scheduling.day_start.
func envKey(s string) string {
	s = strings.TrimPrefix(strings.ToLower(s), strings.ToLower(EnvPrefix))
	return strings.ReplaceAll(s, "__", ".")
}

func (c *Config) SetDefaults() {
	c.Database.SetDefaults()
	c.HTTP.SetDefaults()
	c.Scheduling.SetDefaults()
}

func (c Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return err
	}
	if err := c.HTTP.Validate(); err != nil {
		return err
	}
	return c.Scheduling.Validate()
}
