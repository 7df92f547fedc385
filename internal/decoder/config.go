package decoder

import (
	"github.com/rs/zerolog"

	"jp2kd/pkg/types"
)

// Defaults applied when the corresponding Config fields are unset.
const (
	DefaultMaxOutputPixels      = 16_000_000
	DefaultMaxEngineMemoryBytes = 512 << 20
	DefaultMaxResultSizeBytes   = 256 << 20
)

// Input size limits checked before any engine call. MinInputSize is the
// length of the JP2 signature box.
const (
	MinInputSize = 12
	MaxInputSize = 128 << 20
)

// Config is fixed for the lifetime of a Coordinator and passed through to the
// engine.
type Config struct {
	MaxOutputPixels      int
	MaxEngineMemoryBytes int64
	MaxResultSizeBytes   int
	// LogLevel enables coordinator logging and engine timing reports at the
	// given level. Nil disables both.
	LogLevel *zerolog.Level
	// InitialEngineMemoryBytes grows engine memory at init. Nil leaves it alone.
	InitialEngineMemoryBytes *int64
}

// withDefaults fills unset limits.
func (c Config) withDefaults() Config {
	if c.MaxOutputPixels <= 0 {
		c.MaxOutputPixels = DefaultMaxOutputPixels
	}
	if c.MaxEngineMemoryBytes <= 0 {
		c.MaxEngineMemoryBytes = DefaultMaxEngineMemoryBytes
	}
	if c.MaxResultSizeBytes <= 0 {
		c.MaxResultSizeBytes = DefaultMaxResultSizeBytes
	}
	return c
}

func (c Config) limits() types.DecoderLimits {
	l := types.DecoderLimits{
		MaxOutputPixels:      c.MaxOutputPixels,
		MaxEngineMemoryBytes: c.MaxEngineMemoryBytes,
		MaxResultSizeBytes:   c.MaxResultSizeBytes,
	}
	if c.InitialEngineMemoryBytes != nil {
		l.InitialEngineMemoryBytes = *c.InitialEngineMemoryBytes
	}
	return l
}
