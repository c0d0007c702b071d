// Package httptransport is the thin HTTP layer. Handlers delegate to domain
// services and translate domain errors to HTTP responses; no business logic
// lives here.
package httptransport

import (
	"encoding/json"
	"net/http"

	dErrors "guardian/pkg/domain-errors"
)

type errorEnvelope struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(dErrors.ToHTTPStatus(code))
	_ = json.NewEncoder(w).Encode(errorEnvelope{
		Error:   string(code),
		Message: err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
