package httpapi

import (
	"encoding/json"
	"net/http"
)

// maxRequestBody caps the request body size.  The largest payload is an
// identity with a 128-component descriptor, which encodes to a few KiB of
// JSON; 64 KiB is generous.
const maxRequestBody = 64 << 10

// apiError is the JSON error envelope.  Code is machine-readable; Message is
// safe to show an operator.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, apiError{Code: code, Message: message})
}
