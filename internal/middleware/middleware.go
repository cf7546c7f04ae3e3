// Package middleware stores global and route-specific middleware.
//
// These intercept requests to handle cross-cutting concerns
// such as API key identification, request logging, CORS,
// rate limiting, tracing and panic recovery, and translate
// every returned error into the client-facing response.
package middleware
