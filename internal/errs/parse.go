package errs

import (
	"bytes"
	"encoding/json"
	"errors"
)

// Parse recovers the HTTPError shape of err.
//
// It first looks for an *HTTPError in the wrap chain. Failing that, it treats
// the error text as a JSON document of the form
//
//	{"message": "...", "status": 404, "error_code": -2}
//
// which is how a delegated module reports failures across its boundary.
// The document must carry a valid HTTP status to be accepted.
func Parse(err error) (*HTTPError, bool) {
	if err == nil {
		return nil, false
	}

	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}

	return FromJSON([]byte(err.Error()))
}

// FromJSON decodes a JSON error document. See Parse.
func FromJSON(data []byte) (*HTTPError, bool) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '{' {
		return nil, false
	}

	var parsed HTTPError
	if err := json.Unmarshal(data, &parsed); err != nil {
		return nil, false
	}
	if parsed.Status < 100 || parsed.Status > 599 {
		return nil, false
	}
	if parsed.Code == "" {
		parsed.Code = statusCode(parsed.Status)
	}
	parsed.raw = append([]byte(nil), data...)

	return &parsed, true
}
