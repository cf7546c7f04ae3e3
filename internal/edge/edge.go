// Package edge is the request dispatcher that fronts the application
// module with a shared response cache.
//
// For every request the dispatcher asks the module whether the URL is
// cacheable. Cacheable GET and HEAD requests are answered from the cache
// when possible. On a miss the module handles the request and a
// successful response is written back to the cache in the background,
// without delaying the client.
package edge

import (
	"net/url"

	"github.com/labstack/echo/v4"
)

// Module is the application the dispatcher delegates to.
type Module interface {
	// Cacheable reports whether responses for u may be served from cache.
	Cacheable(u *url.URL) bool

	// Handle serves the request. Errors are passed to echo's error handler
	// unchanged.
	Handle(c echo.Context) error
}
