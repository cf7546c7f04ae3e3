package errs

import (
	"net/http"
)

func statusCode(status int) string {
	return MakeUpperCaseWithUnderscores(http.StatusText(status))
}

// NewUnauthorizedError creates a 401 Unauthorized HTTPError.
func NewUnauthorizedError(message string) *HTTPError {
	return &HTTPError{
		Code:      statusCode(http.StatusUnauthorized),
		Message:   message,
		Status:    http.StatusUnauthorized,
		ErrorCode: CodeNeedAuth,
	}
}

// NewForbiddenError creates a 403 Forbidden HTTPError.
func NewForbiddenError(message string) *HTTPError {
	return &HTTPError{
		Code:      statusCode(http.StatusForbidden),
		Message:   message,
		Status:    http.StatusForbidden,
		ErrorCode: http.StatusForbidden,
	}
}

// NewBadRequestError creates a 400 Bad Request HTTPError.
//
// Extra payload:
//   - errorCode: numeric application code (CodeInvalidBody, CodeTTLTooShort, ...)
//   - code: optional custom code string (defaults to "BAD_REQUEST")
//   - errors: optional field errors
func NewBadRequestError(message string, errorCode int, code *string, errors []FieldError) *HTTPError {
	formattedCode := statusCode(http.StatusBadRequest)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:      formattedCode,
		Message:   message,
		Status:    http.StatusBadRequest,
		ErrorCode: errorCode,
		Errors:    errors,
	}
}

// NewNotFoundError creates a 404 Not Found HTTPError.
func NewNotFoundError(message string, code *string) *HTTPError {
	formattedCode := statusCode(http.StatusNotFound)
	if code != nil {
		formattedCode = *code
	}

	return &HTTPError{
		Code:      formattedCode,
		Message:   message,
		Status:    http.StatusNotFound,
		ErrorCode: CodeNotFound,
	}
}

// NewMethodNotAllowedError reports a wrong method on a known path.
//
// The status is 415 rather than 405: existing clients of the service
// switch on it.
func NewMethodNotAllowedError() *HTTPError {
	return &HTTPError{
		Code:      statusCode(http.StatusMethodNotAllowed),
		Message:   http.StatusText(http.StatusMethodNotAllowed),
		Status:    http.StatusUnsupportedMediaType,
		ErrorCode: CodeMethodNotAllowed,
	}
}

// NewTooManyRequestsError creates a 429 HTTPError for rate limited clients.
func NewTooManyRequestsError(message string) *HTTPError {
	return &HTTPError{
		Code:      statusCode(http.StatusTooManyRequests),
		Message:   message,
		Status:    http.StatusTooManyRequests,
		ErrorCode: CodeRateLimited,
	}
}

// NewInternalServerError creates a 500 Internal Server Error HTTPError.
//
// The message is the generic status text, not the internal error message.
func NewInternalServerError() *HTTPError {
	return NewInternalServerErrorWithCode(http.StatusText(http.StatusInternalServerError), CodeInternal)
}

// NewInternalServerErrorWithCode creates a 500 carrying a specific message and application code.
func NewInternalServerErrorWithCode(message string, errorCode int) *HTTPError {
	return &HTTPError{
		Code:      statusCode(http.StatusInternalServerError),
		Message:   message,
		Status:    http.StatusInternalServerError,
		ErrorCode: errorCode,
	}
}

// ValidationError converts a generic validation error into a 400 Bad Request HTTPError.
func ValidationError(err error) *HTTPError {
	return NewBadRequestError("Validation failed: "+err.Error(), CodeInvalidBody, nil, nil)
}
