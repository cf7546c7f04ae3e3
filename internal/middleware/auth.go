package middleware

import (
	"time"

	"github.com/labstack/echo/v4"

	"github.com/deppfellow/shortlink-edge/internal/service"
)

// APIKeyHeader carries the caller's API key.
const APIKeyHeader = "X-AUTH-KEY"

// AuthMiddleware identifies callers by API key.
type AuthMiddleware struct {
	auth *service.AuthService
}

func NewAuthMiddleware(auth *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// IdentifyUser resolves the X-AUTH-KEY header to a user when present.
//
// Authentication is optional: requests without a key, or with an unknown
// key, continue anonymously. Handlers decide what anonymous callers may
// do. A key that resolves to an unreadable user record fails the request.
func (auth *AuthMiddleware) IdentifyUser(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		start := time.Now()

		apiKey := c.Request().Header.Get(APIKeyHeader)
		if apiKey == "" {
			return next(c)
		}

		user, err := auth.auth.Authenticate(c.Request().Context(), apiKey)
		if err != nil {
			GetLogger(c).Error().
				Err(err).
				Str("function", "IdentifyUser").
				Dur("duration", time.Since(start)).
				Msg("could not resolve api key")
			return err
		}

		if user == nil {
			GetLogger(c).Debug().
				Str("function", "IdentifyUser").
				Msg("unknown api key, continuing anonymously")
			return next(c)
		}

		c.Set(UserIDKey, user.Username)
		c.Set(UserKey, user)
		setLogger(c, GetLogger(c).With().Str("user_id", user.Username).Logger())

		GetLogger(c).Debug().
			Str("function", "IdentifyUser").
			Dur("duration", time.Since(start)).
			Msg("user identified")

		return next(c)
	}
}
