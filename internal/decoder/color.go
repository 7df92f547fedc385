package decoder

import (
	"fmt"
	"strings"
)

// ColorFormat is the pixel layout requested from the engine. The value is the
// engine's numeric identifier. The zero value means ARGB8888.
type ColorFormat int

const (
	ARGB8888 ColorFormat = 8888
	RGB565   ColorFormat = 565
)

// ID returns the identifier sent to the engine.
func (f ColorFormat) ID() int { return int(f.orDefault()) }

// BytesPerPixel returns 4 for ARGB8888 and 2 for RGB565.
func (f ColorFormat) BytesPerPixel() int {
	if f.orDefault() == RGB565 {
		return 2
	}
	return 4
}

func (f ColorFormat) String() string {
	switch f.orDefault() {
	case ARGB8888:
		return "ARGB8888"
	case RGB565:
		return "RGB565"
	}
	return fmt.Sprintf("ColorFormat(%d)", int(f))
}

func (f ColorFormat) orDefault() ColorFormat {
	if f == 0 {
		return ARGB8888
	}
	return f
}

func (f ColorFormat) validate() error {
	switch f.orDefault() {
	case ARGB8888, RGB565:
		return nil
	}
	return localError(KindUnknown, fmt.Sprintf("unsupported color format %d", int(f)))
}

// ParseColorFormat accepts "argb8888"/"8888" and "rgb565"/"565" in any case.
// An empty string yields the default.
func ParseColorFormat(s string) (ColorFormat, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "argb8888", "8888":
		return ARGB8888, nil
	case "rgb565", "565":
		return RGB565, nil
	}
	return 0, fmt.Errorf("unknown color format %q", s)
}
