// internal/httpx/httpx.go

// Package httpx holds the JSON encoding and error-to-status mapping shared by
// the HTTP handlers.
package httpx

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"libralend/internal/errs"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ErrorResponse is the body written for every failed request.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteJSON encodes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// DecodeJSON decodes the request body into v, reporting malformed bodies as validation failures.
func DecodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errs.NewValidationError("body", "is not valid JSON: "+err.Error())
	}
	return nil
}

// StatusFor maps an error's kind to an HTTP status code. The outermost
// *errs.Error decides, so a conflict caused by a missing row stays a conflict.
func StatusFor(err error) int {
	switch errs.KindOf(err) {
	case errs.ErrValidation:
		return http.StatusBadRequest
	case errs.ErrNotFound:
		return http.StatusNotFound
	case errs.ErrConflict:
		return http.StatusConflict
	case errs.ErrIneligible:
		return http.StatusUnprocessableEntity
	case errs.ErrOwnershipMismatch:
		return http.StatusForbidden
	case errs.ErrRateLimited:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// WriteError writes err as an ErrorResponse. Unclassified errors are reported
// as INTERNAL without leaking their message.
func WriteError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Code: string(errs.CodeOf(err)), Message: err.Error()}
	if status == http.StatusInternalServerError {
		resp = ErrorResponse{Code: "INTERNAL", Message: "internal server error"}
	}
	WriteJSON(w, status, resp)
}

// Unmarshal decodes data into v with the same configuration as DecodeJSON.
func Unmarshal(data []byte, v any) error {
	return json.Unmarshal(data, v)
}

// Marshal encodes v with the same configuration as WriteJSON.
func Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}
