package decoder

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"jp2kd/internal/engine"
)

// enginePayload is the union of every field an engine result may carry.
type enginePayload struct {
	ErrorCode    *int    `json:"errorCode"`
	ErrorMessage *string `json:"errorMessage"`
	Error        *string `json:"error"`

	Width  *int   `json:"width"`
	Height *int   `json:"height"`
	BMP    string `json:"bmp"`
	BMPHex string `json:"bmpHex"`

	TimePreProcess  float64 `json:"timePreProcess"`
	TimeWasm        float64 `json:"timeWasm"`
	TimePostProcess float64 `json:"timePostProcess"`

	WasmHeapSizeBytes *int64 `json:"wasmHeapSizeBytes"`
	JSHeapSizeLimit   *int64 `json:"jsHeapSizeLimit"`
	TotalJSHeapSize   *int64 `json:"totalJSHeapSize"`
	UsedJSHeapSize    *int64 `json:"usedJSHeapSize"`
}

// parsePayload decodes raw and turns engine-reported failures into *Error.
func parsePayload(raw string) (*enginePayload, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, &Error{Kind: KindUnknown, Message: "empty engine result"}
	}
	var p enginePayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: fmt.Sprintf("malformed engine result: %s", truncate(raw)), Cause: err}
	}
	if err := p.failure(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *enginePayload) failure() error {
	if p.ErrorCode != nil && *p.ErrorCode != KindNone.Code() {
		e := &Error{Kind: KindFromCode(*p.ErrorCode)}
		if p.ErrorMessage != nil {
			e.Message = *p.ErrorMessage
		}
		return e
	}
	if p.Error != nil {
		return &Error{Kind: KindUnknown, Message: *p.Error}
	}
	return nil
}

// checkAck accepts the "1" acknowledgement of bootstrap and setData.
func checkAck(op OpKind) func(string) (struct{}, error) {
	return func(raw string) (struct{}, error) {
		if raw == engine.BootstrapOK {
			return struct{}{}, nil
		}
		var p enginePayload
		if json.Unmarshal([]byte(raw), &p) == nil {
			if err := p.failure(); err != nil {
				return struct{}{}, err
			}
		}
		return struct{}{}, &Error{Kind: KindUnknown, Message: fmt.Sprintf("%s failed: %s", op, truncate(raw))}
	}
}

func parseSize(raw string) (Size, error) {
	p, err := parsePayload(raw)
	if err != nil {
		return Size{}, err
	}
	if p.Width == nil || p.Height == nil {
		return Size{}, &Error{Kind: KindUnknown, Message: "engine size result lacks width or height"}
	}
	return Size{Width: *p.Width, Height: *p.Height}, nil
}

func parseUsage(raw string) (ResourceUsage, error) {
	p, err := parsePayload(raw)
	if err != nil {
		return ResourceUsage{}, err
	}
	if p.WasmHeapSizeBytes == nil {
		return ResourceUsage{}, &Error{Kind: KindUnknown, Message: "engine usage result lacks wasmHeapSizeBytes"}
	}
	return ResourceUsage{
		WasmHeapSizeBytes: *p.WasmHeapSizeBytes,
		JSHeapSizeLimit:   p.JSHeapSizeLimit,
		TotalJSHeapSize:   p.TotalJSHeapSize,
		UsedJSHeapSize:    p.UsedJSHeapSize,
	}, nil
}

// image builds the decoded picture, preferring explicit dimensions and falling
// back to the bitmap's DIB header.
func (p *enginePayload) image(format ColorFormat, maxPixels int) (*Image, error) {
	data, err := p.bitmap()
	if err != nil {
		return nil, err
	}
	var w, h int
	if p.Width != nil && p.Height != nil {
		w, h = *p.Width, *p.Height
	} else if bw, bh, ok := bmpDimensions(data); ok {
		w, h = bw, bh
	}
	if w <= 0 || h <= 0 {
		return nil, &Error{Kind: KindDecode, Message: "decoded image has no dimensions"}
	}
	if maxPixels > 0 && int64(w)*int64(h) > int64(maxPixels) {
		return nil, &Error{Kind: KindPixelDataSize, Message: fmt.Sprintf("decoded image %dx%d exceeds %d pixels", w, h, maxPixels)}
	}
	return &Image{Width: w, Height: h, Format: format.orDefault(), BMP: data}, nil
}

func (p *enginePayload) bitmap() ([]byte, error) {
	switch {
	case p.BMP != "":
		b, err := base64.StdEncoding.DecodeString(p.BMP)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Message: "bitmap is not valid base64", Cause: err}
		}
		return b, nil
	case p.BMPHex != "":
		b, err := hex.DecodeString(p.BMPHex)
		if err != nil {
			return nil, &Error{Kind: KindDecode, Message: "bitmap is not valid hex", Cause: err}
		}
		return b, nil
	}
	return nil, &Error{Kind: KindDecode, Message: "engine returned no bitmap"}
}

// bmpDimensions reads width and height from a BITMAPINFOHEADER. Bottom-up
// bitmaps store a positive height, top-down ones a negative height.
func bmpDimensions(b []byte) (int, int, bool) {
	if len(b) < 26 || b[0] != 'B' || b[1] != 'M' {
		return 0, 0, false
	}
	w := int32(binary.LittleEndian.Uint32(b[18:22]))
	h := int32(binary.LittleEndian.Uint32(b[22:26]))
	if h < 0 {
		h = -h
	}
	return int(w), int(h), true
}

func truncate(s string) string {
	const limit = 120
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
