// Package httputil writes JSON responses with a consistent error envelope.
package httputil

import (
	"errors"
	"net/http"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error codes used in the "error" field of error responses.
const (
	CodeBadRequest       = "bad_request"
	CodePayloadTooLarge  = "payload_too_large"
	CodeUnavailable      = "service_unavailable"
	CodeInternal         = "internal_error"
	CodeMethodNotAllowed = "method_not_allowed"
)

// Error is an error that maps to an HTTP response.
type Error struct {
	Status      int
	Code        string
	Description string
}

func (e *Error) Error() string {
	if e.Description == "" {
		return e.Code
	}
	return e.Code + ": " + e.Description
}

// BadRequest reports invalid client input.
func BadRequest(description string) *Error {
	return &Error{Status: http.StatusBadRequest, Code: CodeBadRequest, Description: description}
}

// WriteJSON writes v with status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into an error envelope. Anything that is not an
// *Error is a 500 and its text is not exposed to the client.
func WriteError(w http.ResponseWriter, err error) {
	var he *Error
	if !errors.As(err, &he) {
		WriteJSON(w, http.StatusInternalServerError, map[string]string{"error": CodeInternal})
		return
	}

	body := map[string]string{"error": he.Code}
	if he.Description != "" && he.Status < http.StatusInternalServerError {
		body["error_description"] = he.Description
	}
	WriteJSON(w, he.Status, body)
}
