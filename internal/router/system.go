package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/shortlink-edge/internal/edge"
	"github.com/deppfellow/shortlink-edge/internal/handler"
	"github.com/deppfellow/shortlink-edge/internal/middleware"
)

// HealthPath is outside the id space: "_" is not a base62 digit.
const HealthPath = "/_health"

// registerSystemRoutes registers endpoints that bypass the dispatcher.
func registerSystemRoutes(r *echo.Echo, h *handler.Handlers) {
	r.GET(HealthPath, h.Health.CheckHealth)
}

// registerEdgeRoutes sends every other request through the dispatcher.
// Link creation is rate limited and identifies the caller first.
func registerEdgeRoutes(r *echo.Echo, d *edge.Dispatcher, mw *middleware.Middlewares) {
	r.Any("/new", d.Serve, mw.RateLimit.LimitCreate(), mw.Auth.IdentifyUser)
	r.Any("/*", d.Serve)
}
