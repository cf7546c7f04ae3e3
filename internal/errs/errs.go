// Package errs defines custom error types and utilities.
//
// Its purpose is to create specific error structures
// (e.g. FieldErrors for request bodies or HTTPError for API responses)
// so clients receive meaningful, actionable and consistent
// error messages, and so errors thrown by a delegated module can be
// recovered into that same shape.
package errs

// Application error codes carried in HTTPError.ErrorCode.
//
// Negative codes are infrastructure failures, positive codes are
// client mistakes. 401 doubles as the "need auth" code.
const (
	CodeURLParse         = -1
	CodeNotFound         = -2
	CodeMethodNotAllowed = -3
	CodeSerialize        = -4
	CodeInternal         = -5
	CodeInvalidBody      = 100
	CodeInvalidTargetURL = 101
	CodeTTLTooShort      = 102
	CodeTTLTooLong       = 103
	CodeNeedAuth         = 401
	CodeRateLimited      = 429
)
