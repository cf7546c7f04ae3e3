// Package handler is the HTTP layer between the router and the services.
//
// It decodes and validates requests through the validation package,
// calls the service layer and writes responses. ShortenerHandler is the
// module the edge dispatcher delegates to.
package handler

import (
	"github.com/deppfellow/shortlink-edge/internal/server"
	"github.com/deppfellow/shortlink-edge/internal/service"
)

// Handlers groups all HTTP handlers.
type Handlers struct {
	Health    *HealthHandler
	Shortener *ShortenerHandler
}

func NewHandlers(s *server.Server, services *service.Services) *Handlers {
	return &Handlers{
		Health:    NewHealthHandler(s),
		Shortener: NewShortenerHandler(s, services.Shortener, services.Assets),
	}
}
