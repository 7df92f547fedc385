package types

// DecoderLimits mirrors the coordinator's immutable configuration.
type DecoderLimits struct {
	// Largest decoded image accepted, in pixels.
	// example: 16000000
	MaxOutputPixels int `json:"max_output_pixels" example:"16000000"`
	// Engine memory cap in bytes.
	// example: 536870912
	MaxEngineMemoryBytes int64 `json:"max_engine_memory_bytes" example:"536870912"`
	// Largest single engine result in bytes.
	// example: 268435456
	MaxResultSizeBytes int `json:"max_result_size_bytes" example:"268435456"`
	// Engine memory grown at init, in bytes (0 when unset).
	// example: 0
	InitialEngineMemoryBytes int64 `json:"initial_engine_memory_bytes,omitempty" example:"0"`
}

// RegionParams is the wire form of a decode region. Pixel bounds use the
// integer fields, ratio bounds the *_ratio fields; leaving both empty decodes
// the full image.
type RegionParams struct {
	Left        *int     `json:"left,omitempty"`
	Top         *int     `json:"top,omitempty"`
	Right       *int     `json:"right,omitempty"`
	Bottom      *int     `json:"bottom,omitempty"`
	LeftRatio   *float64 `json:"left_ratio,omitempty"`
	TopRatio    *float64 `json:"top_ratio,omitempty"`
	RightRatio  *float64 `json:"right_ratio,omitempty"`
	BottomRatio *float64 `json:"bottom_ratio,omitempty"`
}
