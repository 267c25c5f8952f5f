// Package httputil writes JSON responses and translates domain errors into
// the API error envelope.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "unearthify/pkg/domain-errors"
)

// ErrorResponse is the body of every non-2xx API response.
type ErrorResponse struct {
	Error       string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

type mapping struct {
	status int
	code   string
}

var codeMappings = map[dErrors.Code]mapping{
	dErrors.CodeNotFound:           {http.StatusNotFound, "not_found"},
	dErrors.CodeBadRequest:         {http.StatusBadRequest, "bad_request"},
	dErrors.CodeInvalidInput:       {http.StatusBadRequest, "bad_request"},
	dErrors.CodeValidation:         {http.StatusBadRequest, "validation_error"},
	dErrors.CodeConflict:           {http.StatusConflict, "conflict"},
	dErrors.CodeInvariantViolation: {http.StatusConflict, "conflict"},
	dErrors.CodeUnauthorized:       {http.StatusUnauthorized, "unauthorized"},
	dErrors.CodeTokenExpired:       {http.StatusUnauthorized, "token_expired"},
	dErrors.CodeForbidden:          {http.StatusForbidden, "forbidden"},
	dErrors.CodeTimeout:            {http.StatusGatewayTimeout, "timeout"},
}

var internalMapping = mapping{http.StatusInternalServerError, "internal_error"}

func lookup(code dErrors.Code) mapping {
	if m, ok := codeMappings[code]; ok {
		return m
	}
	return internalMapping
}

func WriteJSON(w http.ResponseWriter, status int, response any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// the status is already sent; an encode failure cannot be reported
	_ = json.NewEncoder(w).Encode(response)
}

// WriteError renders err as the error envelope. Errors that are not domain
// errors become a bare 500.
func WriteError(w http.ResponseWriter, err error) {
	var domainErr *dErrors.Error
	if !errors.As(err, &domainErr) {
		WriteJSON(w, internalMapping.status, ErrorResponse{Error: internalMapping.code})
		return
	}
	m := lookup(domainErr.Code)
	WriteJSON(w, m.status, ErrorResponse{Error: m.code, Description: domainErr.Message})
}

// DomainCodeToHTTPStatus translates domain error codes to HTTP status codes.
func DomainCodeToHTTPStatus(code dErrors.Code) int {
	return lookup(code).status
}
