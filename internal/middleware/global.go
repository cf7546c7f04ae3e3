package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/deppfellow/shortlink-edge/internal/errs"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/sqlerr"
)

// unknownErrorText is the 500 body for errors that carry no text.
const unknownErrorText = "unknown error"

// GlobalMiddlewares groups global middleware and the global error handler.
type GlobalMiddlewares struct {
	server *server.Server
}

func NewGlobalMiddlewares(s *server.Server) *GlobalMiddlewares {
	return &GlobalMiddlewares{
		server: s,
	}
}

// CORS returns echo's CORS middleware configured from server config.
func (global *GlobalMiddlewares) CORS() echo.MiddlewareFunc {
	return middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  global.server.Config.Server.CORSAllowedOrigins,
		AllowHeaders:  []string{echo.HeaderContentType, APIKeyHeader},
		ExposeHeaders: []string{echo.HeaderXRequestID, "X-Cache", "Age"},
	})
}

// RequestLogger emits one "API" log line per request with a level picked
// from the final status.
func (global *GlobalMiddlewares) RequestLogger() echo.MiddlewareFunc {
	return middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:     true,
		LogStatus:  true,
		LogError:   true,
		LogLatency: true,
		LogHost:    true,
		LogMethod:  true,
		LogURIPath: true,

		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			statusCode := v.Status

			// When a handler returns an error the global error handler has not
			// written the response yet, so derive the status from the error.
			// See https://github.com/labstack/echo/issues/2310#issuecomment-1288196898
			if v.Error != nil {
				statusCode = statusFromError(v.Error)
			}

			logger := GetLogger(c)

			var e *zerolog.Event
			switch {
			case statusCode >= 500:
				e = logger.Error().Err(v.Error)
			case statusCode >= 400:
				e = logger.Warn()
			default:
				e = logger.Info()
			}

			if userID := GetUserID(c); userID != "" {
				e = e.Str("user_id", userID)
			}
			if cacheStatus := c.Response().Header().Get("X-Cache"); cacheStatus != "" {
				e = e.Str("cache", cacheStatus)
			}

			e.
				Dur("latency", v.Latency).
				Int("status", statusCode).
				Str("uri", v.URI).
				Str("host", v.Host).
				Str("user_agent", c.Request().UserAgent()).
				Msg("API")

			return nil
		},
	})
}

// statusFromError predicts the status GlobalErrorHandler will write for err.
func statusFromError(err error) int {
	if httpErr, ok := errs.Parse(err); ok {
		return httpErr.Status
	}

	var echoErr *echo.HTTPError
	if errors.As(err, &echoErr) {
		return echoErr.Code
	}
	if sqlerr.IsDriverError(err) {
		if httpErr, ok := errs.Parse(sqlerr.HandleError(err)); ok {
			return httpErr.Status
		}
	}
	return http.StatusInternalServerError
}

// Recover turns handler panics into errors for GlobalErrorHandler.
func (global *GlobalMiddlewares) Recover() echo.MiddlewareFunc {
	return middleware.Recover()
}

// Secure adds the standard security headers.
func (global *GlobalMiddlewares) Secure() echo.MiddlewareFunc {
	return middleware.Secure()
}

// GlobalErrorHandler is the final error funnel for the entire HTTP server.
//
// Errors that carry the HTTPError shape, either as a value in the chain or
// as a JSON document in their text, are written as JSON with their own
// status. echo routing errors and Postgres driver errors are converted to
// that shape first. Anything else becomes a plain text 500 whose body is
// the error text.
func (global *GlobalMiddlewares) GlobalErrorHandler(err error, c echo.Context) {
	originalErr := err
	logger := GetLogger(c)

	httpErr, ok := errs.Parse(err)
	if !ok {
		var echoErr *echo.HTTPError
		switch {
		case errors.As(err, &echoErr):
			httpErr, ok = fromEchoError(echoErr), true
		case sqlerr.IsDriverError(err):
			httpErr, ok = errs.Parse(sqlerr.HandleError(err))
		}
	}

	if !ok {
		message := err.Error()
		if message == "" {
			message = unknownErrorText
		}

		logger.Error().Stack().
			Err(originalErr).
			Int("status", http.StatusInternalServerError).
			Msg("unhandled error")

		if !c.Response().Committed {
			_ = c.String(http.StatusInternalServerError, message)
		}
		return
	}

	event := logger.Warn()
	if httpErr.Status >= http.StatusInternalServerError {
		event = logger.Error().Stack()
	}
	event.
		Err(originalErr).
		Int("status", httpErr.Status).
		Str("code", httpErr.Code).
		Int("error_code", httpErr.ErrorCode).
		Msg(httpErr.Message)

	if c.Response().Committed {
		return
	}

	body, err := httpErr.Body()
	if err != nil {
		logger.Error().Err(err).Msg("failed to encode error response")
		_ = c.String(http.StatusInternalServerError, unknownErrorText)
		return
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(httpErr.Status)
		return
	}
	_ = c.Blob(httpErr.Status, echo.MIMEApplicationJSON, body)
}

// fromEchoError converts echo's own errors into the HTTPError shape.
func fromEchoError(echoErr *echo.HTTPError) *errs.HTTPError {
	if echoErr.Code == http.StatusNotFound {
		return errs.NewNotFoundError("Not Found", nil)
	}

	message, ok := echoErr.Message.(string)
	if !ok {
		message = http.StatusText(echoErr.Code)
	}

	return &errs.HTTPError{
		Code:      errs.MakeUpperCaseWithUnderscores(http.StatusText(echoErr.Code)),
		Message:   message,
		Status:    echoErr.Code,
		ErrorCode: echoErr.Code,
	}
}
