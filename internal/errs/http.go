package errs

import (
	"encoding/json"
	"strings"
)

// FieldError represents a field-level validation error.
// Example:
//
//	{ "field": "url", "error": "is required" }
type FieldError struct {
	Field string `json:"field"`
	Error string `json:"error"`
}

// HTTPError is the main custom error type for API responses.
//
// It is serialized directly to JSON. Fields:
//   - Code: machine-friendly error name (e.g. "NOT_FOUND").
//   - Message: human-friendly message.
//   - Status: HTTP status code.
//   - ErrorCode: numeric application code (see the Code* constants).
//   - Errors: per-field validation errors.
type HTTPError struct {
	Code      string       `json:"code,omitempty"`
	Message   string       `json:"message"`
	Status    int          `json:"status"`
	ErrorCode int          `json:"error_code"`
	Errors    []FieldError `json:"errors,omitempty"`

	// raw keeps the exact document an error was parsed from so it can be
	// echoed back byte for byte.
	raw []byte
}

// Error makes *HTTPError satisfy the built-in `error` interface.
func (e *HTTPError) Error() string {
	return e.Message
}

// Is reports true for any *HTTPError target; it does not compare fields.
func (e *HTTPError) Is(target error) bool {
	_, ok := target.(*HTTPError)
	return ok
}

// Body returns the JSON document sent to the client.
//
// Errors recovered by Parse from a JSON payload return that payload unchanged.
func (e *HTTPError) Body() ([]byte, error) {
	if len(e.raw) > 0 {
		return e.raw, nil
	}
	return json.Marshal(e)
}

// MakeUpperCaseWithUnderscores converts a string into UPPER_CASE_WITH_UNDERSCORES.
//
//	"Bad Request" -> "BAD_REQUEST"
func MakeUpperCaseWithUnderscores(str string) string {
	return strings.ToUpper(strings.ReplaceAll(str, " ", "_"))
}
