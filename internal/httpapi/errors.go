package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"jp2kd/internal/decoder"
	"jp2kd/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeErrorResponse(w, types.ErrorResponse{Error: msg, Code: status})
}

func writeErrorResponse(w http.ResponseWriter, resp types.ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Code)
	_ = json.NewEncoder(w).Encode(resp)
}

// writeDecoderError maps a coordinator error to a status and writes it.
// It returns the status written.
func writeDecoderError(w http.ResponseWriter, err error) int {
	status := statusForError(err)
	resp := types.ErrorResponse{Error: err.Error(), Code: status, Kind: kindLabel(err)}
	var de *decoder.Error
	if errors.As(err, &de) {
		code := de.Kind.Code()
		resp.DecoderCode = &code
	}
	writeErrorResponse(w, resp)
	return status
}

func statusForError(err error) int {
	var he HTTPError
	switch {
	case errors.As(err, &he):
		return he.StatusCode()
	case decoder.IsCancelled(err):
		return http.StatusServiceUnavailable
	case decoder.IsIllegalState(err):
		return http.StatusConflict
	case decoder.IsTransport(err):
		return http.StatusInternalServerError
	}
	switch decoder.KindOf(err) {
	case decoder.KindInputTooLarge:
		return http.StatusRequestEntityTooLarge
	case decoder.KindInputTooSmall, decoder.KindRegionOutOfBounds:
		return http.StatusBadRequest
	case decoder.KindHeader, decoder.KindDecode, decoder.KindPixelDataSize:
		return http.StatusUnprocessableEntity
	case decoder.KindCacheMissing:
		return http.StatusConflict
	}
	if decoder.IsInvalidArgument(err) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func kindLabel(err error) string {
	switch {
	case decoder.IsCancelled(err):
		return "cancelled"
	case decoder.IsIllegalState(err):
		return "illegal_state"
	case decoder.IsTransport(err):
		return "transport"
	}
	var de *decoder.Error
	if errors.As(err, &de) {
		return de.Kind.String()
	}
	return ""
}

// badRequest is returned for malformed query parameters.
type badRequest struct{ msg string }

func (e badRequest) Error() string   { return e.msg }
func (e badRequest) StatusCode() int { return http.StatusBadRequest }
