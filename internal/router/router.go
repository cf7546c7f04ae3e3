// Package router builds the echo instance: global middlewares, system
// routes and the edge dispatcher that fronts the shortener.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/deppfellow/shortlink-edge/internal/edge"
	"github.com/deppfellow/shortlink-edge/internal/handler"
	"github.com/deppfellow/shortlink-edge/internal/middleware"
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

// NewRouter wires middlewares and routes and registers the dispatcher on
// s so that Shutdown drains its pending cache writes.
func NewRouter(s *server.Server, h *handler.Handlers, services *service.Services) *echo.Echo {
	middlewares := middleware.NewMiddlewares(s, services)

	router := echo.New()
	router.HideBanner = true
	router.HidePort = true
	router.HTTPErrorHandler = middlewares.Global.GlobalErrorHandler

	router.Use(
		middleware.RequestID(),
		middlewares.Tracing.NewRelicMiddleware(),
		middlewares.Tracing.EnhanceTracing(),
		middlewares.ContextEnhancer.EnhanceContext(),
		middlewares.Global.RequestLogger(),
		middlewares.Global.Recover(),
		middlewares.Global.Secure(),
		middlewares.Global.CORS(),
	)

	registerSystemRoutes(router, h)

	dispatcher := edge.NewDispatcher(h.Shortener, edge.NewKVResponseCache(s.Store), s.Config.Cache, s.Logger)
	s.Dispatcher = dispatcher
	registerEdgeRoutes(router, dispatcher, middlewares)

	return router
}
