package engine

import (
	"encoding/base64"
	"encoding/json"
)

// Methods understood by a decoder guest.
const (
	MethodBootstrap             = "bootstrap"
	MethodSetData               = "setData"
	MethodGetSize               = "getSize"
	MethodGetSizeWithCache      = "getSizeWithCache"
	MethodDecode                = "decode"
	MethodDecodeWithCache       = "decodeWithCache"
	MethodDecodeRegion          = "decodeRegion"
	MethodDecodeRegionWithCache = "decodeRegionWithCache"
	MethodDecodeRatio           = "decodeRatio"
	MethodDecodeRatioWithCache  = "decodeRatioWithCache"
	MethodGetMemoryUsage        = "getMemoryUsage"
)

// BootstrapOK is the result a guest returns from bootstrap and setData.
const BootstrapOK = "1"

// Request is a single engine call: a method name and its parameters.
type Request struct {
	Method string         `json:"method"`
	Params map[string]any `json:"params,omitempty"`
}

// NewRequest returns a Request for method with no parameters.
func NewRequest(method string) Request { return Request{Method: method} }

// With returns a copy of r with key set to v.
func (r Request) With(key string, v any) Request {
	params := make(map[string]any, len(r.Params)+1)
	for k, pv := range r.Params {
		params[k] = pv
	}
	params[key] = v
	return Request{Method: r.Method, Params: params}
}

// WithData attaches an input buffer as standard base64 under "data".
func (r Request) WithData(b []byte) Request {
	return r.With("data", base64.StdEncoding.EncodeToString(b))
}

// Encode renders r as the JSON envelope handed to the guest. The method is
// always the first key.
func (r Request) Encode() ([]byte, error) { return json.Marshal(r) }
