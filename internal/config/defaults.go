package config

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"jp2kd/internal/decoder"
)

// Service defaults. Decoder limits default inside the decoder package.
const (
	DefaultAddr     = ":8080"
	DefaultLogLevel = "info"
	// One byte over the decoder's input limit so oversized uploads reach the
	// decoder and are reported as InputTooLarge.
	DefaultMaxBodyBytes = decoder.MaxInputSize + 1
)

// WithDefaults fills unset service fields.
func (c Config) WithDefaults() Config {
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.MaxBodyBytes <= 0 {
		c.MaxBodyBytes = DefaultMaxBodyBytes
	}
	return c
}

// Validate checks fields that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.EngineModule) == "" {
		return fmt.Errorf("engine_module is required")
	}
	if _, err := c.coordinatorLogLevel(); err != nil {
		return err
	}
	return nil
}

// DecoderConfig maps the service configuration onto decoder.Config.
// log_level "off" (or "disabled") turns coordinator logging off.
func (c Config) DecoderConfig() (decoder.Config, error) {
	lvl, err := c.coordinatorLogLevel()
	if err != nil {
		return decoder.Config{}, err
	}
	dc := decoder.Config{
		MaxOutputPixels:      c.MaxOutputPixels,
		MaxEngineMemoryBytes: c.MaxEngineMemoryBytes,
		MaxResultSizeBytes:   c.MaxResultSizeBytes,
		LogLevel:             lvl,
	}
	if c.InitialEngineMemoryBytes > 0 {
		v := c.InitialEngineMemoryBytes
		dc.InitialEngineMemoryBytes = &v
	}
	return dc, nil
}

func (c Config) coordinatorLogLevel() (*zerolog.Level, error) {
	switch s := strings.ToLower(strings.TrimSpace(c.LogLevel)); s {
	case "", "off", "disabled", "none":
		return nil, nil
	default:
		lvl, err := zerolog.ParseLevel(s)
		if err != nil {
			return nil, fmt.Errorf("log_level: %w", err)
		}
		return &lvl, nil
	}
}
