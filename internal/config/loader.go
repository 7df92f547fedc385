package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"jp2kd/internal/common/fsutil"
)

// Config holds runtime parameters for the service.
// Zero values mean "unspecified" and are replaced by WithDefaults.
type Config struct {
	Addr                     string   `json:"addr" yaml:"addr" toml:"addr"`
	EngineModule             string   `json:"engine_module" yaml:"engine_module" toml:"engine_module"`
	MaxOutputPixels          int      `json:"max_output_pixels" yaml:"max_output_pixels" toml:"max_output_pixels"`
	MaxEngineMemoryBytes     int64    `json:"max_engine_memory_bytes" yaml:"max_engine_memory_bytes" toml:"max_engine_memory_bytes"`
	MaxResultSizeBytes       int      `json:"max_result_size_bytes" yaml:"max_result_size_bytes" toml:"max_result_size_bytes"`
	InitialEngineMemoryBytes int64    `json:"initial_engine_memory_bytes" yaml:"initial_engine_memory_bytes" toml:"initial_engine_memory_bytes"`
	LogLevel                 string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFile                  string   `json:"log_file" yaml:"log_file" toml:"log_file"`
	MaxBodyBytes             int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	CORSEnabled              bool     `json:"cors_enabled" yaml:"cors_enabled" toml:"cors_enabled"`
	CORSAllowedOrigins       []string `json:"cors_allowed_origins" yaml:"cors_allowed_origins" toml:"cors_allowed_origins"`
	CORSAllowedMethods       []string `json:"cors_allowed_methods" yaml:"cors_allowed_methods" toml:"cors_allowed_methods"`
	CORSAllowedHeaders       []string `json:"cors_allowed_headers" yaml:"cors_allowed_headers" toml:"cors_allowed_headers"`
	PrecacheOnStart          string   `json:"precache_on_start" yaml:"precache_on_start" toml:"precache_on_start"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := fsutil.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// Environment variables consulted by ApplyEnv.
const (
	EnvAddr         = "JP2KD_ADDR"
	EnvEngineModule = "JP2KD_ENGINE_MODULE"
	EnvLogLevel     = "JP2KD_LOG_LEVEL"
)

// ApplyEnv overrides fields from the environment. Unset or empty variables
// leave the field alone.
func (c Config) ApplyEnv() Config {
	if v := os.Getenv(EnvAddr); v != "" {
		c.Addr = v
	}
	if v := os.Getenv(EnvEngineModule); v != "" {
		c.EngineModule = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.LogLevel = v
	}
	return c
}
