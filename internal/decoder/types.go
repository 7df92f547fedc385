package decoder

// OpKind names a coordinator operation in errors, logs and events.
type OpKind string

const (
	OpInit          OpKind = "init"
	OpPrecache      OpKind = "precache"
	OpSize          OpKind = "size"
	OpDecode        OpKind = "decode"
	OpResourceUsage OpKind = "resource_usage"
	OpRelease       OpKind = "release"
)

// Size is an image's dimensions in pixels.
type Size struct {
	Width  int
	Height int
}

// Pixels returns Width*Height.
func (s Size) Pixels() int64 { return int64(s.Width) * int64(s.Height) }

// Image is a decoded picture. BMP holds the engine's bitmap file, headers
// included.
type Image struct {
	Width  int
	Height int
	Format ColorFormat
	BMP    []byte
}

// ResourceUsage reports engine memory. Only WasmHeapSizeBytes is always set;
// the host heap figures are nil when the engine does not expose them.
type ResourceUsage struct {
	WasmHeapSizeBytes int64
	JSHeapSizeLimit   *int64
	TotalJSHeapSize   *int64
	UsedJSHeapSize    *int64
}

// DecodeOptions selects the output format and region of a decode.
type DecodeOptions struct {
	Format ColorFormat
	Region Region
}
