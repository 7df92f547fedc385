package decoder

import (
	"errors"
	"fmt"
	"math"
)

// ErrorKind classifies decode failures. Each kind has a stable numeric code
// shared with the engine.
type ErrorKind int

const (
	KindNone ErrorKind = iota
	KindHeader
	KindInputTooSmall
	KindPixelDataSize
	KindDecode
	KindInputTooLarge
	KindRegionOutOfBounds
	KindCacheMissing
	KindUnknown
)

var kindInfo = map[ErrorKind]struct {
	code int
	name string
}{
	KindNone:              {0, "none"},
	KindHeader:            {-1, "header"},
	KindInputTooSmall:     {-2, "input_too_small"},
	KindPixelDataSize:     {-3, "pixel_data_size"},
	KindDecode:            {-4, "decode"},
	KindInputTooLarge:     {-5, "input_too_large"},
	KindRegionOutOfBounds: {-6, "region_out_of_bounds"},
	KindCacheMissing:      {-10, "cache_missing"},
	KindUnknown:           {math.MinInt32, "unknown"},
}

// Code returns the engine's numeric code for k.
func (k ErrorKind) Code() int {
	if i, ok := kindInfo[k]; ok {
		return i.code
	}
	return kindInfo[KindUnknown].code
}

func (k ErrorKind) String() string {
	if i, ok := kindInfo[k]; ok {
		return i.name
	}
	return kindInfo[KindUnknown].name
}

// KindFromCode maps an engine code to its kind. Unrecognized codes are Unknown.
func KindFromCode(code int) ErrorKind {
	for k, i := range kindInfo {
		if i.code == code {
			return k
		}
	}
	return KindUnknown
}

// Messages for failures detected before the engine is called.
const (
	msgInputTooSmall = "Input data is too short"
	msgInputTooLarge = "Input data is too large"
	msgRatio         = "Ratio must be 0.0 - 1.0"
	msgRegion        = "Region must satisfy 0 <= left < right and 0 <= top < bottom"
	msgRatioOrder    = "Ratio must satisfy left < right and top < bottom"
)

// Error is a decode failure with a kind. Local is true when the coordinator
// rejected the call before it reached the engine.
type Error struct {
	Kind    ErrorKind
	Message string
	Local   bool
	Cause   error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("error code: %d", e.Kind.Code())
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches another *Error of the same kind, so errors.Is(err, &Error{Kind: KindDecode})
// works as a kind check.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind && t.Message == "" && t.Cause == nil
}

func localError(kind ErrorKind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Local: true}
}

// KindOf returns the kind carried by err, or KindUnknown when err is not a
// decode failure. A nil err has KindNone.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// IsInvalidArgument reports whether err was raised by local validation.
func IsInvalidArgument(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Local
}

// IsEngineError reports whether err was reported by the engine itself.
func IsEngineError(err error) bool {
	var e *Error
	return errors.As(err, &e) && !e.Local
}

// ErrCancelled is the outcome of every operation that loses a race with
// Release, and of any call made after it.
var ErrCancelled = errors.New("decoder was released")

// IsCancelled reports whether err is a release-induced cancellation.
func IsCancelled(err error) bool { return errors.Is(err, ErrCancelled) }

// IllegalStateError rejects an operation the current state does not admit.
// Queued is set when the state was found invalid by the worker rather than
// at admission.
type IllegalStateError struct {
	Op     OpKind
	State  State
	Queued bool
}

func (e IllegalStateError) Error() string {
	if e.Queued {
		return fmt.Sprintf("decoder state invalid before %s: %s", e.Op, e.State)
	}
	return fmt.Sprintf("cannot %s while in state: %s", e.Op, e.State)
}

// IsIllegalState reports whether err is an IllegalStateError.
func IsIllegalState(err error) bool {
	var e IllegalStateError
	return errors.As(err, &e)
}

// TransportError wraps a failure of the engine call itself (connection,
// handle creation, guest trap), as opposed to an error the engine reported.
type TransportError struct {
	Op  OpKind
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("engine %s: %v", e.Op, e.Err) }

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var e *TransportError
	return errors.As(err, &e)
}
